package catalog

import (
	"context"
	"fmt"

	"github.com/stevemurr/collection-sync/shared"
)

// NewScope builds a Catalog once and wraps it for scoped sharing. Thread the
// scope down explicitly or through WithScope/FromContext.
func NewScope(cfg Config) (*shared.Scope[*Catalog], error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return shared.NewScope(func() *Catalog { return c }), nil
}

// WithScope returns a copy of ctx carrying scope.
func WithScope(ctx context.Context, scope *shared.Scope[*Catalog]) context.Context {
	return shared.NewContext(ctx, scope)
}

// FromContext returns the Catalog of the scope carried by ctx.
func FromContext(ctx context.Context) (*Catalog, bool) {
	scope, ok := shared.FromContext[*Catalog](ctx)
	if !ok {
		return nil, false
	}
	c := scope.Instance()
	return c, c != nil
}

type built struct {
	catalog *Catalog
	err     error
}

var defaultCatalog = shared.NewSingleton(func() built {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return built{err: fmt.Errorf("catalog: %w", err)}
	}
	c, err := New(cfg)
	if err != nil {
		return built{err: fmt.Errorf("catalog: %w", err)}
	}
	return built{catalog: c}
})

// Default returns the process-wide Catalog, building it from the environment
// on first use. A configuration error is kept and returned on every call
// until ResetDefault.
func Default() (*Catalog, error) {
	b := defaultCatalog.Instance()
	return b.catalog, b.err
}

// ResetDefault discards the process-wide Catalog. Only test setup should
// call this.
func ResetDefault() {
	defaultCatalog.Reset()
}
