package store

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed default_seed.yaml
var defaultSeed []byte

// DefaultSeed returns example users, tasks, products and books with their schemas.
func DefaultSeed() *Seed {
	var seed Seed
	if err := yaml.Unmarshal(defaultSeed, &seed); err != nil {
		panic(fmt.Sprintf("embedded seed: %v", err))
	}
	return &seed
}
