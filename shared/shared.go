// Package shared controls how callers obtain the single authoritative
// instance of a value, typically a collection store.
//
// Two strategies satisfy the same Accessor contract. A Scope is built once at
// an explicit composition point and handed down, either directly or through a
// context.Context. A Singleton is a lazily filled process-wide slot.
package shared

import (
	"context"
	"sync"
)

// Accessor returns the same instance for the lifetime of its scope.
type Accessor[S any] interface {
	Instance() S
}

var (
	_ Accessor[int] = (*Scope[int])(nil)
	_ Accessor[int] = (*Singleton[int])(nil)
)

// Scope holds one instance constructed at the root of a scope.
type Scope[S any] struct {
	mu       sync.RWMutex
	instance S
	closed   bool
	release  func(S)
}

// NewScope constructs the scope's instance immediately.
func NewScope[S any](build func() S) *Scope[S] {
	return &Scope[S]{instance: build()}
}

// NewScopeWithRelease is NewScope with a hook run once on Close.
func NewScopeWithRelease[S any](build func() S, release func(S)) *Scope[S] {
	return &Scope[S]{instance: build(), release: release}
}

// Instance returns the scope's instance, or the zero value once closed.
func (s *Scope[S]) Instance() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instance
}

// Closed reports whether Close has been called.
func (s *Scope[S]) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Close ends the scope and drops its reference to the instance.
func (s *Scope[S]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	inst := s.instance
	var zero S
	s.instance = zero
	s.closed = true
	release := s.release
	s.mu.Unlock()

	if release != nil {
		release(inst)
	}
}

type scopeKey[S any] struct{}

// NewContext returns a copy of ctx carrying scope.
func NewContext[S any](ctx context.Context, scope *Scope[S]) context.Context {
	return context.WithValue(ctx, scopeKey[S]{}, scope)
}

// FromContext returns the scope for S carried by ctx.
func FromContext[S any](ctx context.Context) (*Scope[S], bool) {
	scope, ok := ctx.Value(scopeKey[S]{}).(*Scope[S])
	return scope, ok && scope != nil
}

// Singleton is a process-wide slot holding at most one instance. The first
// call to Instance builds it; later calls return the same value.
type Singleton[S any] struct {
	build func() S

	mu       sync.Mutex
	built    bool
	instance S
}

// NewSingleton returns an empty slot that fills itself with build on first use.
func NewSingleton[S any](build func() S) *Singleton[S] {
	return &Singleton[S]{build: build}
}

func (s *Singleton[S]) Instance() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.built {
		s.instance = s.build()
		s.built = true
	}
	return s.instance
}

// Reset empties the slot so the next Instance call builds a new value.
// Only test setup should call this.
func (s *Singleton[S]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero S
	s.instance = zero
	s.built = false
}
