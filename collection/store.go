// Package collection keeps an in-memory collection consistent with its
// remote source of record.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/stevemurr/collection-sync/entity"
	"github.com/stevemurr/collection-sync/remote"
)

// DefaultTimeout bounds every remote call made by a Store.
const DefaultTimeout = 10 * time.Second

// Option configures a Store.
type Option func(*config)

type config struct {
	timeout time.Duration
}

// WithTimeout sets the per-call remote timeout. Non-positive values disable it.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// Store owns the authoritative local copy of one collection.
//
// Reads are served from memory. FetchAll, Create and Update go to the remote
// source first and only touch local state once the remote call has succeeded,
// so a failed call never leaves a partial result behind. Mutations are
// serialized per Store; concurrent FetchAll calls share a single request.
type Store[E entity.Entity, D any] struct {
	source  remote.Source[E, D]
	timeout time.Duration

	// mutate serializes remote round trips that end in a local write.
	mutate  sync.Mutex
	fetches singleflight.Group

	mu    sync.RWMutex
	items []E
	index map[int64]int
}

// New returns an empty Store synchronized against source.
func New[E entity.Entity, D any](source remote.Source[E, D], opts ...Option) *Store[E, D] {
	c := config{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&c)
	}
	return &Store[E, D]{
		source:  source,
		timeout: c.timeout,
		items:   []E{},
		index:   map[int64]int{},
	}
}

// Items returns a copy of the collection in display order.
func (s *Store[E, D]) Items() []E {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]E, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the entity with the given id.
func (s *Store[E, D]) Get(id int64) (E, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i, ok := s.index[id]; ok {
		return s.items[i], true
	}
	var zero E
	return zero, false
}

// Len returns the number of entities held locally.
func (s *Store[E, D]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// FetchAll replaces the local collection with the remote one and returns it.
// On failure the local collection is left as it was.
//
// Concurrent callers share one remote request. The request is bounded by the
// store timeout only, so a caller that gives up early fails alone and the
// others still get the result.
func (s *Store[E, D]) FetchAll(ctx context.Context) ([]E, error) {
	ch := s.fetches.DoChan("all", func() (any, error) {
		return s.fetchAll(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.([]E)
		out := make([]E, len(shared))
		copy(out, shared)
		return out, nil
	case <-ctx.Done():
		return nil, remoteErr("fetch all", ctx.Err())
	}
}

func (s *Store[E, D]) fetchAll(ctx context.Context) ([]E, error) {
	s.mutate.Lock()
	defer s.mutate.Unlock()

	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	items, err := s.source.List(callCtx)
	if err != nil {
		return nil, remoteErr("fetch all", err)
	}
	index, err := buildIndex(items)
	if err != nil {
		return nil, remoteErr("fetch all", err)
	}

	fresh := make([]E, len(items))
	copy(fresh, items)

	s.mu.Lock()
	s.items = fresh
	s.index = index
	s.mu.Unlock()
	return items, nil
}

// Create sends draft to the remote source and appends the returned entity.
func (s *Store[E, D]) Create(ctx context.Context, draft D) (E, error) {
	s.mutate.Lock()
	defer s.mutate.Unlock()

	var zero E
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	created, err := s.source.Create(callCtx, draft)
	if err != nil {
		return zero, remoteErr("create", err)
	}
	id := created.GetID()
	if id == 0 {
		return zero, remoteErr("create", errors.New("created entity has no id"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.index[id]; exists {
		return zero, remoteErr("create", fmt.Errorf("created id %d already present locally", id))
	}
	s.index[id] = len(s.items)
	s.items = append(s.items, created)
	return created, nil
}

// Update sends e to the remote source for a full replace and swaps the
// returned version in at the same position. e must have been obtained from
// this store; an unknown id fails with ErrNotFound before any remote call.
func (s *Store[E, D]) Update(ctx context.Context, e E) (E, error) {
	s.mutate.Lock()
	defer s.mutate.Unlock()

	var zero E
	id := e.GetID()
	if _, ok := s.Get(id); !ok {
		return zero, fmt.Errorf("update %s %d: %w", e.Collection(), id, ErrNotFound)
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	updated, err := s.source.Replace(callCtx, e)
	if err != nil {
		return zero, remoteErr("update", err)
	}
	if got := updated.GetID(); got != id {
		return zero, remoteErr("update", fmt.Errorf("server returned id %d for %d", got, id))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return zero, fmt.Errorf("update %s %d: %w", e.Collection(), id, ErrNotFound)
	}
	s.items[i] = updated
	return updated, nil
}

func (s *Store[E, D]) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// buildIndex maps id to position and rejects zero or repeated ids.
func buildIndex[E entity.Entity](items []E) (map[int64]int, error) {
	index := make(map[int64]int, len(items))
	for i, item := range items {
		id := item.GetID()
		if id == 0 {
			return nil, fmt.Errorf("entity at position %d has no id", i)
		}
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("duplicate id %d", id)
		}
		index[id] = i
	}
	return index, nil
}
