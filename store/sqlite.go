package store

import (
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	return openSQL(dialect{
		driver: "sqlite3",
		setup:  []string{"PRAGMA journal_mode=WAL"},
	}, dbPath)
}
