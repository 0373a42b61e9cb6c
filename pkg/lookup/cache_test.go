package lookup

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCacheKey(t *testing.T) {
	a := NewCacheKey("obama", []string{"Q5", "Q215627"}, "wikidata", false, 10)
	b := NewCacheKey("obama", []string{"Q215627", "Q5"}, "wikidata", false, 10)
	assert.Equal(t, a, b)
	assert.Equal(t, "Q215627 Q5", a.Types)

	none := NewCacheKey("obama", nil, "wikidata", false, 10)
	assert.Equal(t, "", none.Types)
	assert.NotEqual(t, a, none)
	assert.NotEqual(t, none, NewCacheKey("obama", nil, "wikidata", true, 10))
	assert.NotEqual(t, none, NewCacheKey("obama", nil, "wikidata", false, 20))
	assert.NotEqual(t, none, NewCacheKey("obama", nil, "crunchbase", false, 10))

	types := []string{"b", "a"}
	NewCacheKey("x", types, "kg", false, 1)
	assert.Equal(t, []string{"b", "a"}, types)
}

func TestStoreCache(t *testing.T) {
	store := newFakeCacheStore()
	c := NewStoreCache(store)
	tick := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return tick }

	key := NewCacheKey("obama", nil, "wikidata", false, 10)
	_, ok := c.Get(context.Background(), key)
	assert.False(t, ok)

	cands := []Candidate{{ID: "Q76", Name: "Barack Obama"}}
	w := c.Put(context.Background(), key, cands, BuildPrimary("obama", false))
	require.True(t, w.Stored())
	assert.False(t, w.Race())
	assert.Equal(t, tick, store.entries[key].LastAccessed)

	tick = tick.Add(time.Hour)
	got, ok := c.Get(context.Background(), key)
	require.True(t, ok)
	assert.Equal(t, cands, got)
	assert.Equal(t, tick, store.entries[key].LastAccessed)

	again := c.Put(context.Background(), key, cands, BuildPrimary("obama", false))
	assert.False(t, again.Stored())
	assert.True(t, again.Race())
}

func TestCacheWrite(t *testing.T) {
	wrapped := CacheWrite{Err: fmt.Errorf("insert: %w", ErrDuplicateKey)}
	assert.True(t, wrapped.Race())

	other := CacheWrite{Err: errors.New("disk full")}
	assert.False(t, other.Stored())
	assert.False(t, other.Race())
}

func TestNopCache(t *testing.T) {
	var c NopCache
	key := NewCacheKey("obama", nil, "wikidata", false, 10)
	assert.True(t, c.Put(context.Background(), key, []Candidate{{ID: "Q76"}}, Query{}).Stored())
	_, ok := c.Get(context.Background(), key)
	assert.False(t, ok)
}
