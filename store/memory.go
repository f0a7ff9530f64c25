package store

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/stevemurr/collection-sync/schema"
)

type memCollection struct {
	order []int64
	docs  map[int64]Document
}

func (c *memCollection) nextID() int64 {
	if len(c.order) == 0 {
		return 1
	}
	return c.order[len(c.order)-1] + 1
}

// MemoryStore keeps everything in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	schemas     map[string]*schema.Schema
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memCollection),
		schemas:     make(map[string]*schema.Schema),
	}
}

func (m *MemoryStore) List(_ context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll, ok := m.collections[collection]
	if !ok {
		return []Document{}, nil
	}
	result := make([]Document, 0, len(coll.order))
	for _, id := range coll.order {
		result = append(result, deepCopy(coll.docs[id]))
	}
	return result, nil
}

func (m *MemoryStore) Get(_ context.Context, collection string, id int64) (Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll, ok := m.collections[collection]
	if !ok {
		return nil, false, nil
	}
	doc, ok := coll.docs[id]
	if !ok {
		return nil, false, nil
	}
	return deepCopy(doc), true, nil
}

func (m *MemoryStore) Insert(_ context.Context, collection string, doc Document) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[collection]
	if !ok {
		coll = &memCollection{docs: make(map[int64]Document)}
		m.collections[collection] = coll
	}
	id := coll.nextID()
	stored := deepCopy(withID(doc, id))
	coll.order = append(coll.order, id)
	coll.docs[id] = stored
	return deepCopy(stored), nil
}

func (m *MemoryStore) Replace(_ context.Context, collection string, id int64, doc Document) (Document, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[collection]
	if !ok {
		return nil, false, nil
	}
	if _, exists := coll.docs[id]; !exists {
		return nil, false, nil
	}
	stored := deepCopy(withID(doc, id))
	coll.docs[id] = stored
	return deepCopy(stored), true, nil
}

func (m *MemoryStore) Delete(_ context.Context, collection string, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[collection]
	if !ok {
		return false, nil
	}
	if _, exists := coll.docs[id]; !exists {
		return false, nil
	}
	delete(coll.docs, id)
	i := sort.Search(len(coll.order), func(i int) bool { return coll.order[i] >= id })
	coll.order = append(coll.order[:i], coll.order[i+1:]...)
	if len(coll.order) == 0 {
		delete(m.collections, collection)
	}
	return true, nil
}

func (m *MemoryStore) ListCollections(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := maps.Keys(m.collections)
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) GetSchema(_ context.Context, collection string) (*schema.Schema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySchema(m.schemas[collection]), nil
}

func (m *MemoryStore) PutSchema(_ context.Context, collection string, s *schema.Schema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[collection] = copySchema(s)
	return nil
}

func (m *MemoryStore) DeleteSchema(_ context.Context, collection string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schemas[collection]; !ok {
		return false, nil
	}
	delete(m.schemas, collection)
	return true, nil
}

func (m *MemoryStore) ListSchemas(_ context.Context) (map[string]*schema.Schema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]*schema.Schema, len(m.schemas))
	for k, v := range m.schemas {
		result[k] = copySchema(v)
	}
	return result, nil
}

func (m *MemoryStore) Close() error { return nil }
