// Package entity defines the record kinds managed by the collection stores.
//
// Each kind comes as a pair: the entity itself, which carries the
// server-assigned identifier, and a draft with the same attributes but no
// identifier, used when creating new records.
package entity

// Entity is implemented by every record kind that can live in a collection.
type Entity interface {
	// GetID returns the server-assigned identifier. Zero means unassigned.
	GetID() int64

	// Collection returns the remote collection name, e.g. "users".
	Collection() string
}

// Collection names served by the remote source.
const (
	Users    = "users"
	Tasks    = "tasks"
	Products = "products"
	Books    = "books"
)

// Kinds lists every collection name in display order.
func Kinds() []string {
	return []string{Users, Tasks, Products, Books}
}

// CollectionOf returns the collection name for the entity type E.
func CollectionOf[E Entity]() string {
	var zero E
	return zero.Collection()
}
