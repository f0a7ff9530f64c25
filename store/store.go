// Package store defines the backing store interface and implementations.
package store

import (
	"context"
	"encoding/json"
	"math"

	"github.com/stevemurr/collection-sync/schema"
)

// Document is a single JSON record in a collection.
type Document = map[string]any

// IDField is the document field holding the server-assigned identifier.
const IDField = "id"

// Store is the interface that all backing stores must implement.
// It operates on named collections of documents. Each document is keyed by
// an integer id the store assigns on insert; ids are never reused while a
// higher id exists, so ascending id order is insertion order.
type Store interface {
	// List returns every document in a collection in ascending id order.
	List(ctx context.Context, collection string) ([]Document, error)

	// Get returns a single document by id.
	Get(ctx context.Context, collection string, id int64) (Document, bool, error)

	// Insert stores doc under a newly assigned id and returns the stored copy.
	// Any id already present in doc is ignored.
	Insert(ctx context.Context, collection string, doc Document) (Document, error)

	// Replace overwrites the document with the given id if it exists.
	Replace(ctx context.Context, collection string, id int64, doc Document) (Document, bool, error)

	// Delete removes a document. Returns true if it existed.
	Delete(ctx context.Context, collection string, id int64) (bool, error)

	// ListCollections returns the names of all collections that contain data.
	ListCollections(ctx context.Context) ([]string, error)

	// GetSchema returns the schema for a collection, or nil.
	GetSchema(ctx context.Context, collection string) (*schema.Schema, error)

	// PutSchema stores a schema for a collection.
	PutSchema(ctx context.Context, collection string, s *schema.Schema) error

	// DeleteSchema removes the schema for a collection. Returns true if it existed.
	DeleteSchema(ctx context.Context, collection string) (bool, error)

	// ListSchemas returns all schemas as collection name -> schema.
	ListSchemas(ctx context.Context) (map[string]*schema.Schema, error)

	// Close releases any resources held by the store.
	Close() error
}

// DocID returns the integer id of doc, accepting the numeric forms produced
// by JSON and YAML decoding.
func DocID(doc Document) (int64, bool) {
	switch v := doc[IDField].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

// withID returns a shallow copy of doc carrying id.
func withID(doc Document, id int64) Document {
	out := make(Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out[IDField] = id
	return out
}

// deepCopy returns a deep copy of a document by round-tripping through JSON.
func deepCopy(src Document) Document {
	if src == nil {
		return nil
	}
	b, _ := json.Marshal(src)
	var dst Document
	_ = json.Unmarshal(b, &dst)
	return dst
}

func copySchema(src *schema.Schema) *schema.Schema {
	if src == nil {
		return nil
	}
	b, _ := json.Marshal(src)
	var dst schema.Schema
	_ = json.Unmarshal(b, &dst)
	return &dst
}
