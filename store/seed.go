package store

import (
	"context"
	"fmt"
	"os"
	"sort"

	"golang.org/x/exp/maps"
	"gopkg.in/yaml.v3"

	"github.com/stevemurr/collection-sync/schema"
)

// Seed is the initial content of a remote source, loaded from YAML:
//
//	schemas:
//	  users: {type: object, required: [name]}
//	collections:
//	  users:
//	    - {name: Ana, email: ana@example.com}
type Seed struct {
	Schemas     map[string]*schema.Schema `yaml:"schemas"`
	Collections map[string][]Document     `yaml:"collections"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return &seed, nil
}

// Apply writes seed into s. Schemas are only added for collections without
// one, and documents only for collections that are currently empty, so
// applying the same seed on every start is safe. Document ids in the seed
// are ignored; the store assigns them in file order.
func Apply(ctx context.Context, s Store, seed *Seed) (int, error) {
	if seed == nil {
		return 0, nil
	}
	for _, name := range sortedKeys(seed.Schemas) {
		existing, err := s.GetSchema(ctx, name)
		if err != nil {
			return 0, err
		}
		if existing != nil {
			continue
		}
		if err := s.PutSchema(ctx, name, seed.Schemas[name]); err != nil {
			return 0, fmt.Errorf("seed schema %s: %w", name, err)
		}
	}

	inserted := 0
	for _, name := range sortedKeys(seed.Collections) {
		docs, err := s.List(ctx, name)
		if err != nil {
			return inserted, err
		}
		if len(docs) > 0 {
			continue
		}
		for _, doc := range seed.Collections[name] {
			if _, err := s.Insert(ctx, name, doc); err != nil {
				return inserted, fmt.Errorf("seed %s: %w", name, err)
			}
			inserted++
		}
	}
	return inserted, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	sort.Strings(keys)
	return keys
}
