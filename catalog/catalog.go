// Package catalog composes one collection store per entity kind against a
// single remote source.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stevemurr/collection-sync/collection"
	"github.com/stevemurr/collection-sync/entity"
	"github.com/stevemurr/collection-sync/remote"
)

// DefaultBaseURL is used when neither Config nor COLLECTIONS_BASE_URL sets one.
const DefaultBaseURL = "http://localhost:8080"

// Config describes how to reach the remote source.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// ConfigFromEnv reads COLLECTIONS_BASE_URL and COLLECTIONS_TIMEOUT.
func ConfigFromEnv() (Config, error) {
	cfg := Config{BaseURL: DefaultBaseURL, Timeout: collection.DefaultTimeout}
	if v := os.Getenv("COLLECTIONS_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("COLLECTIONS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("COLLECTIONS_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

// Catalog holds the authoritative store for every entity kind.
type Catalog struct {
	Users    *collection.Store[entity.User, entity.UserDraft]
	Tasks    *collection.Store[entity.Task, entity.TaskDraft]
	Products *collection.Store[entity.Product, entity.ProductDraft]
	Books    *collection.Store[entity.Book, entity.BookDraft]
}

// New builds a Catalog. Callers that need a shared instance should build it
// once at their composition root, see NewScope.
func New(cfg Config) (*Catalog, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = collection.DefaultTimeout
	}
	opts := []remote.Option{remote.WithLogger(cfg.Logger)}
	if cfg.HTTPClient != nil {
		opts = append(opts, remote.WithHTTPClient(cfg.HTTPClient))
	}

	users, err := remote.NewHTTPSource[entity.User, entity.UserDraft](cfg.BaseURL, opts...)
	if err != nil {
		return nil, err
	}
	tasks, err := remote.NewHTTPSource[entity.Task, entity.TaskDraft](cfg.BaseURL, opts...)
	if err != nil {
		return nil, err
	}
	products, err := remote.NewHTTPSource[entity.Product, entity.ProductDraft](cfg.BaseURL, opts...)
	if err != nil {
		return nil, err
	}
	books, err := remote.NewHTTPSource[entity.Book, entity.BookDraft](cfg.BaseURL, opts...)
	if err != nil {
		return nil, err
	}

	timeout := collection.WithTimeout(cfg.Timeout)
	return &Catalog{
		Users:    collection.New[entity.User, entity.UserDraft](users, timeout),
		Tasks:    collection.New[entity.Task, entity.TaskDraft](tasks, timeout),
		Products: collection.New[entity.Product, entity.ProductDraft](products, timeout),
		Books:    collection.New[entity.Book, entity.BookDraft](books, timeout),
	}, nil
}

// FetchAll refreshes every collection concurrently. Each store is replaced
// independently and one failure does not cut the others short; the first
// failure is returned and the stores whose fetch failed keep their previous
// contents.
func (c *Catalog) FetchAll(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { _, err := c.Users.FetchAll(ctx); return err })
	g.Go(func() error { _, err := c.Tasks.FetchAll(ctx); return err })
	g.Go(func() error { _, err := c.Products.FetchAll(ctx); return err })
	g.Go(func() error { _, err := c.Books.FetchAll(ctx); return err })
	return g.Wait()
}

// Counts returns the number of locally held entities per collection name.
func (c *Catalog) Counts() map[string]int {
	return map[string]int{
		entity.Users:    c.Users.Len(),
		entity.Tasks:    c.Tasks.Len(),
		entity.Products: c.Products.Len(),
		entity.Books:    c.Books.Len(),
	}
}
