package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the optional YAML extension file for the verb and level
// registries. Loaded exactly once during bootstrap, before the server starts
// handling requests.
type Catalog struct {
	Verbs  []Verb  `yaml:"verbs"`
	Levels []Level `yaml:"levels"`
}

// LoadCatalog reads a catalog file and registers its entries into the
// process-wide registries. Duplicates against the builtins fail loudly.
func LoadCatalog(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read catalog file: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	for _, v := range catalog.Verbs {
		if err := Verbs().Register(v); err != nil {
			return fmt.Errorf("catalog verb %q: %w", v.Infinitive, err)
		}
	}
	for _, l := range catalog.Levels {
		if err := Levels().Register(l); err != nil {
			return fmt.Errorf("catalog level %q: %w", l.Name, err)
		}
	}
	return nil
}
