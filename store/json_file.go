package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/stevemurr/collection-sync/schema"
)

// JSONFileStore stores each collection as a separate JSON array on disk.
//
// Layout:
//
//	data_dir/
//	  _schemas.json   # schema registry
//	  users.json      # "users" collection, ascending id order
//	  tasks.json      # "tasks" collection
type JSONFileStore struct {
	mu  sync.RWMutex
	dir string
}

var _ Store = (*JSONFileStore)(nil)

func NewJSONFileStore(dir string) (*JSONFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &JSONFileStore{dir: dir}, nil
}

func (s *JSONFileStore) collectionPath(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

func (s *JSONFileStore) schemasPath() string {
	return filepath.Join(s.dir, "_schemas.json")
}

func (s *JSONFileStore) loadCollection(collection string) ([]Document, error) {
	data, err := os.ReadFile(s.collectionPath(collection))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Document{}, nil
		}
		return nil, err
	}
	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	return docs, nil
}

func (s *JSONFileStore) saveCollection(collection string, docs []Document) error {
	if len(docs) == 0 {
		err := os.Remove(s.collectionPath(collection))
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return writeJSONFile(s.collectionPath(collection), docs)
}

func (s *JSONFileStore) loadSchemas() (map[string]*schema.Schema, error) {
	data, err := os.ReadFile(s.schemasPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]*schema.Schema{}, nil
		}
		return nil, err
	}
	schemas := map[string]*schema.Schema{}
	if err := json.Unmarshal(data, &schemas); err != nil {
		return nil, fmt.Errorf("decode schemas: %w", err)
	}
	return schemas, nil
}

// writeJSONFile writes through a temp file so readers never see a torn file.
func writeJSONFile(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func indexOf(docs []Document, id int64) int {
	for i, doc := range docs {
		if docID, ok := DocID(doc); ok && docID == id {
			return i
		}
	}
	return -1
}

func (s *JSONFileStore) List(_ context.Context, collection string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadCollection(collection)
}

func (s *JSONFileStore) Get(_ context.Context, collection string, id int64) (Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs, err := s.loadCollection(collection)
	if err != nil {
		return nil, false, err
	}
	if i := indexOf(docs, id); i >= 0 {
		return docs[i], true, nil
	}
	return nil, false, nil
}

func (s *JSONFileStore) Insert(_ context.Context, collection string, doc Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.loadCollection(collection)
	if err != nil {
		return nil, err
	}
	var maxID int64
	for _, d := range docs {
		if id, ok := DocID(d); ok && id > maxID {
			maxID = id
		}
	}
	stored := deepCopy(withID(doc, maxID+1))
	if err := s.saveCollection(collection, append(docs, stored)); err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *JSONFileStore) Replace(_ context.Context, collection string, id int64, doc Document) (Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.loadCollection(collection)
	if err != nil {
		return nil, false, err
	}
	i := indexOf(docs, id)
	if i < 0 {
		return nil, false, nil
	}
	docs[i] = deepCopy(withID(doc, id))
	if err := s.saveCollection(collection, docs); err != nil {
		return nil, false, err
	}
	return docs[i], true, nil
}

func (s *JSONFileStore) Delete(_ context.Context, collection string, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.loadCollection(collection)
	if err != nil {
		return false, err
	}
	i := indexOf(docs, id)
	if i < 0 {
		return false, nil
	}
	docs = append(docs[:i], docs[i+1:]...)
	return true, s.saveCollection(collection, docs)
}

func (s *JSONFileStore) ListCollections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *JSONFileStore) GetSchema(_ context.Context, collection string) (*schema.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schemas, err := s.loadSchemas()
	if err != nil {
		return nil, err
	}
	return schemas[collection], nil
}

func (s *JSONFileStore) PutSchema(_ context.Context, collection string, sch *schema.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	schemas, err := s.loadSchemas()
	if err != nil {
		return err
	}
	schemas[collection] = sch
	return writeJSONFile(s.schemasPath(), schemas)
}

func (s *JSONFileStore) DeleteSchema(_ context.Context, collection string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	schemas, err := s.loadSchemas()
	if err != nil {
		return false, err
	}
	if _, ok := schemas[collection]; !ok {
		return false, nil
	}
	delete(schemas, collection)
	return true, writeJSONFile(s.schemasPath(), schemas)
}

func (s *JSONFileStore) ListSchemas(_ context.Context) (map[string]*schema.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadSchemas()
}

func (s *JSONFileStore) Close() error { return nil }
