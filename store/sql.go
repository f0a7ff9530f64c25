package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/stevemurr/collection-sync/schema"
)

// dialect captures the differences between the SQL backends.
type dialect struct {
	driver string
	// setup runs once after the connection is opened, before the tables exist.
	setup []string
	// rebind rewrites '?' placeholders for drivers that need another style.
	rebind func(string) string
}

// SQLStore stores all collections in a single SQL database.
//
// Tables:
//
//	documents(collection, id, data)  PRIMARY KEY (collection, id)
//	schemas(collection, schema)      PRIMARY KEY (collection)
type SQLStore struct {
	mu      sync.RWMutex
	db      *sql.DB
	dialect dialect
}

var _ Store = (*SQLStore)(nil)

func openSQL(d dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}
	stmts := append(append([]string{}, d.setup...),
		`CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id BIGINT NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		)`,
		`CREATE TABLE IF NOT EXISTS schemas (
			collection TEXT PRIMARY KEY,
			schema TEXT NOT NULL
		)`,
	)
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init %s: %w", d.driver, err)
		}
	}
	if d.rebind == nil {
		d.rebind = func(q string) string { return q }
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// dollarPlaceholders turns '?' placeholders into $1, $2, ...
func dollarPlaceholders(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) q(query string) string {
	return s.dialect.rebind(query)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func decodeDoc(raw string) (Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *SQLStore) List(ctx context.Context, collection string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT data FROM documents WHERE collection = ? ORDER BY id"), collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []Document{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		doc, err := decodeDoc(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s document: %w", collection, err)
		}
		result = append(result, doc)
	}
	return result, rows.Err()
}

func (s *SQLStore) Get(ctx context.Context, collection string, id int64) (Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var raw string
	err := s.db.QueryRowContext(ctx,
		s.q("SELECT data FROM documents WHERE collection = ? AND id = ?"),
		collection, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	doc, err := decodeDoc(raw)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (s *SQLStore) Insert(ctx context.Context, collection string, doc Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	if err := tx.QueryRowContext(ctx,
		s.q("SELECT COALESCE(MAX(id), 0) + 1 FROM documents WHERE collection = ?"), collection,
	).Scan(&id); err != nil {
		return nil, err
	}
	stored := withID(doc, id)
	b, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		s.q("INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)"),
		collection, id, string(b),
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return decodeDoc(string(b))
}

func (s *SQLStore) Replace(ctx context.Context, collection string, id int64, doc Document) (Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := withID(doc, id)
	b, err := json.Marshal(stored)
	if err != nil {
		return nil, false, err
	}
	res, err := s.db.ExecContext(ctx,
		s.q("UPDATE documents SET data = ? WHERE collection = ? AND id = ?"),
		string(b), collection, id,
	)
	if err != nil {
		return nil, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		return nil, false, nil
	}
	out, err := decodeDoc(string(b))
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (s *SQLStore) Delete(ctx context.Context, collection string, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		s.q("DELETE FROM documents WHERE collection = ? AND id = ?"),
		collection, id,
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLStore) ListCollections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT collection FROM documents ORDER BY collection")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLStore) GetSchema(ctx context.Context, collection string) (*schema.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var raw string
	err := s.db.QueryRowContext(ctx,
		s.q("SELECT schema FROM schemas WHERE collection = ?"), collection,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sch schema.Schema
	if err := json.Unmarshal([]byte(raw), &sch); err != nil {
		return nil, err
	}
	return &sch, nil
}

func (s *SQLStore) PutSchema(ctx context.Context, collection string, sch *schema.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := json.Marshal(sch)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		s.q(`INSERT INTO schemas (collection, schema) VALUES (?, ?)
		 ON CONFLICT(collection) DO UPDATE SET schema = excluded.schema`),
		collection, string(b),
	)
	return err
}

func (s *SQLStore) DeleteSchema(ctx context.Context, collection string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, s.q("DELETE FROM schemas WHERE collection = ?"), collection)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLStore) ListSchemas(ctx context.Context) (map[string]*schema.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, "SELECT collection, schema FROM schemas")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[string]*schema.Schema)
	for rows.Next() {
		var name, raw string
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, err
		}
		var sch schema.Schema
		if err := json.Unmarshal([]byte(raw), &sch); err != nil {
			return nil, fmt.Errorf("decode schema %q: %w", name, err)
		}
		result[name] = &sch
	}
	return result, rows.Err()
}
