package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTOMLRoundTripAndRecovery(t *testing.T) {
	type section struct {
		Limit int    `toml:"limit"`
		KG    string `toml:"kg"`
	}
	type doc struct {
		Server section `toml:"server"`
	}

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, SaveTOMLFile(doc{Server: section{Limit: 5, KG: "wikidata"}}, path))

	var got doc
	require.NoError(t, LoadTOMLFile(path, &got))
	assert.Equal(t, 5, got.Server.Limit)

	raw, err := ParseTOMLWithRecovery(path)
	require.NoError(t, err)
	server, ok := ExtractSection(raw, "server")
	require.True(t, ok)

	var limit int
	assert.True(t, Assign(server, "limit", &limit))
	assert.Equal(t, 5, limit)
	var kg string
	assert.True(t, Assign(server, "kg", &kg))
	assert.Equal(t, "wikidata", kg)

	// wrong type and missing keys leave the target alone
	fuzzy := true
	assert.False(t, Assign(server, "kg", &fuzzy))
	assert.False(t, Assign(server, "missing", &fuzzy))
	assert.True(t, fuzzy)

	require.NoError(t, os.WriteFile(path, []byte("[server\nlimit = "), 0o644))
	_, err = ParseTOMLWithRecovery(path)
	assert.Error(t, err)
}

func TestIsDataDir(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, IsDataDir(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, IndexMappingsFile), []byte("{}"), 0o644))
	assert.True(t, IsDataDir(dir))
	assert.False(t, IsDataDir(filepath.Join(dir, IndexMappingsFile)))
}

func TestResolveRelativePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/srv", "data", "x.db"), ResolveRelativePath("/srv", filepath.Join("data", "x.db")))
	assert.Equal(t, "/abs/x.db", ResolveRelativePath("/srv", "/abs/x.db"))
	assert.Equal(t, "", ResolveRelativePath("/srv", ""))
}

func TestStrings(t *testing.T) {
	assert.True(t, IsBlank(" \t\n"))
	assert.False(t, IsBlank(" obama "))
	assert.Equal(t, 7, RuneLen("münchen"))
	assert.Equal(t, "barack…", Truncate("barack obama", 7))
	assert.Equal(t, "obama", Truncate("obama", 7))
}
