package entity

// User is a member of the users collection.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u User) GetID() int64 { return u.ID }
func (User) Collection() string { return Users }
func (u User) Draft() UserDraft { return UserDraft{Name: u.Name, Email: u.Email, Role: u.Role} }

// UserDraft is a User without an identifier.
type UserDraft struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Task is an item on a to-do list.
type Task struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

func (t Task) GetID() int64 { return t.ID }
func (Task) Collection() string { return Tasks }
func (t Task) Draft() TaskDraft { return TaskDraft{Title: t.Title, Completed: t.Completed} }

// TaskDraft is a Task without an identifier.
type TaskDraft struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Product is an inventory line.
type Product struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

func (p Product) GetID() int64 { return p.ID }
func (Product) Collection() string { return Products }
func (p Product) Draft() ProductDraft { return ProductDraft{Name: p.Name, Price: p.Price, Stock: p.Stock} }

// ProductDraft is a Product without an identifier.
type ProductDraft struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

// Book is an entry in the library catalog.
type Book struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	ISBN          string `json:"isbn"`
	PublishedYear int    `json:"publishedYear"`
	Available     bool   `json:"available"`
}

func (b Book) GetID() int64 { return b.ID }
func (Book) Collection() string { return Books }

func (b Book) Draft() BookDraft {
	return BookDraft{
		Title:         b.Title,
		Author:        b.Author,
		ISBN:          b.ISBN,
		PublishedYear: b.PublishedYear,
		Available:     b.Available,
	}
}

// BookDraft is a Book without an identifier.
type BookDraft struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	ISBN          string `json:"isbn"`
	PublishedYear int    `json:"publishedYear"`
	Available     bool   `json:"available"`
}
