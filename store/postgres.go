package store

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// DefaultPostgresDSN is used when no DSN is configured.
const DefaultPostgresDSN = "postgres://localhost/collections?sslmode=disable"

// NewPostgresStore connects to Postgres at dsn and ensures the tables exist.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	if dsn == "" {
		dsn = DefaultPostgresDSN
	}
	s, err := openSQL(dialect{driver: "pgx", rebind: dollarPlaceholders}, dsn)
	if err != nil {
		return nil, err
	}
	if err := s.db.PingContext(context.Background()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return s, nil
}
