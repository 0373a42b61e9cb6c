package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mappingsYAML = `
wikidata:
  indexes:
    entities: wikidata/entities.bleve
    types: /srv/wikidata/types.bleve
  indexes_to_filter_out:
    - types
crunchbase:
  indexes:
    organizations: crunchbase/orgs.bleve
`

func TestParseIndexMappings(t *testing.T) {
	m, err := ParseIndexMappings([]byte(mappingsYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{"crunchbase", "wikidata"}, m.KGs())
	assert.Equal(t, map[string]string{"entities": "wikidata/entities.bleve"}, m["wikidata"].Searchable())
	assert.Equal(t, []string{"types"}, m["wikidata"].FilterOut)
}

func TestParseIndexMappingsRejectsEmptyKG(t *testing.T) {
	_, err := ParseIndexMappings([]byte("wikidata:\n  indexes:\n    types: t.bleve\n  indexes_to_filter_out: [types]\n"))
	require.Error(t, err)

	_, err = ParseIndexMappings([]byte("wikidata: [not, a, map]"))
	require.Error(t, err)
}

func TestLoadIndexMappingsResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index_mappings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(mappingsYAML), 0o644))

	m, err := LoadIndexMappings(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "wikidata/entities.bleve"), m["wikidata"].Indexes["entities"])
	assert.Equal(t, "/srv/wikidata/types.bleve", m["wikidata"].Indexes["types"])

	_, err = LoadIndexMappings(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
