package collection

import "context"

// Pending is the eventual result of an operation started in the background.
type Pending[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func start[T any](fn func() (T, error)) *Pending[T] {
	p := &Pending[T]{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.val, p.err = fn()
	}()
	return p
}

// Done is closed once the operation has finished.
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the operation finishes or ctx is done. Giving up on the
// wait does not cancel the operation; cancel the context passed when it was
// started for that.
func (p *Pending[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// FetchAllAsync starts FetchAll in the background.
func (s *Store[E, D]) FetchAllAsync(ctx context.Context) *Pending[[]E] {
	return start(func() ([]E, error) { return s.FetchAll(ctx) })
}

// CreateAsync starts Create in the background.
func (s *Store[E, D]) CreateAsync(ctx context.Context, draft D) *Pending[E] {
	return start(func() (E, error) { return s.Create(ctx, draft) })
}

// UpdateAsync starts Update in the background.
func (s *Store[E, D]) UpdateAsync(ctx context.Context, e E) *Pending[E] {
	return start(func() (E, error) { return s.Update(ctx, e) })
}
