// Package remote talks to the service of record for a collection.
package remote

import (
	"context"
	"fmt"
)

// Source is the remote service of record for one collection of E, created
// from drafts of type D.
type Source[E, D any] interface {
	// List returns the full collection.
	List(ctx context.Context) ([]E, error)

	// Create sends a draft and returns the stored entity with its assigned id.
	Create(ctx context.Context, draft D) (E, error)

	// Replace sends the full entity and returns the server's version of it.
	Replace(ctx context.Context, e E) (E, error)
}

// StatusError reports a response with a non-success status code.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Code)
}
