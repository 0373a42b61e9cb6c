package search

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

// KGIndexes lists the category indexes of one knowledge graph.
type KGIndexes struct {
	// Indexes maps a category to the path of its bleve index.
	Indexes map[string]string `yaml:"indexes"`
	// FilterOut names categories that are never searched.
	FilterOut []string `yaml:"indexes_to_filter_out"`
}

// IndexMappings maps a knowledge graph name to its indexes.
type IndexMappings map[string]KGIndexes

// Searchable returns the category -> path pairs of kg that are not filtered out.
func (k KGIndexes) Searchable() map[string]string {
	out := make(map[string]string, len(k.Indexes))
	for category, path := range k.Indexes {
		if slices.Contains(k.FilterOut, category) {
			continue
		}
		out[category] = path
	}
	return out
}

// KGs returns the configured knowledge graph names, sorted.
func (m IndexMappings) KGs() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadIndexMappings reads the YAML mappings file. Relative index paths are
// resolved against the directory of the file.
func LoadIndexMappings(path string) (IndexMappings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index mappings: %w", err)
	}
	mappings, err := ParseIndexMappings(data)
	if err != nil {
		return nil, fmt.Errorf("parse index mappings %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for kg, idx := range mappings {
		for category, p := range idx.Indexes {
			if !filepath.IsAbs(p) {
				idx.Indexes[category] = filepath.Join(base, p)
			}
		}
		mappings[kg] = idx
	}
	return mappings, nil
}

// ParseIndexMappings decodes mappings and checks every kg has at least one searchable index.
func ParseIndexMappings(data []byte) (IndexMappings, error) {
	var mappings IndexMappings
	if err := yaml.Unmarshal(data, &mappings); err != nil {
		return nil, err
	}
	for kg, idx := range mappings {
		if len(idx.Searchable()) == 0 {
			return nil, fmt.Errorf("kg %q has no searchable index", kg)
		}
	}
	return mappings, nil
}
