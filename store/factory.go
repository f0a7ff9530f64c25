package store

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrUnknownBackend is returned by New for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown store backend")

// New creates a Store based on the backend name.
//
// Supported backends:
//
//	"json"     - JSON files in dataDir (default)
//	"sqlite"   - SQLite database at dataDir/collections.db
//	"postgres" - Postgres database at dsn
//	"memory"   - In-memory (ephemeral, for testing)
func New(backend, dataDir, dsn string) (Store, error) {
	switch backend {
	case "json", "":
		return NewJSONFileStore(dataDir)
	case "sqlite":
		return NewSQLiteStore(filepath.Join(dataDir, "collections.db"))
	case "postgres":
		return NewPostgresStore(dsn)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: json, sqlite, postgres, memory)", ErrUnknownBackend, backend)
	}
}
