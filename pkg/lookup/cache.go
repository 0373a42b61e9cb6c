package lookup

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// ErrDuplicateKey is returned by a CacheStore when an entry with the same key already exists.
var ErrDuplicateKey = errors.New("duplicate cache key")

// CacheKey identifies a cached candidate list. Types holds the sorted,
// space-joined type filter, empty when none was given.
type CacheKey struct {
	Cell  string `json:"cell" msgpack:"cell"`
	Types string `json:"type" msgpack:"type"`
	KG    string `json:"kg" msgpack:"kg"`
	Fuzzy bool   `json:"fuzzy" msgpack:"fuzzy"`
	Limit int    `json:"limit" msgpack:"limit"`
}

// NewCacheKey builds the key of a lookup. The type filter is sorted so that the
// same set in any order maps to one entry.
func NewCacheKey(mention string, types []string, kg string, fuzzy bool, limit int) CacheKey {
	sorted := slices.Clone(types)
	slices.Sort(sorted)
	return CacheKey{
		Cell:  mention,
		Types: strings.Join(sorted, " "),
		KG:    kg,
		Fuzzy: fuzzy,
		Limit: limit,
	}
}

// String renders the key as a single unambiguous string.
func (k CacheKey) String() string {
	return fmt.Sprintf("%q|%q|%q|%t|%d", k.Cell, k.Types, k.KG, k.Fuzzy, k.Limit)
}

// CacheEntry is one stored candidate list.
type CacheEntry struct {
	Key          CacheKey
	Candidates   []Candidate
	Query        string
	LastAccessed time.Time
}

// CacheStore persists cache entries under a unique composite key.
//
// FindOneAndUpdate returns nil without error when the key is absent, otherwise it
// refreshes LastAccessed and returns the entry. InsertOne fails with an error
// wrapping ErrDuplicateKey when the key is already taken.
type CacheStore interface {
	FindOneAndUpdate(ctx context.Context, key CacheKey, lastAccessed time.Time) (*CacheEntry, error)
	InsertOne(ctx context.Context, entry CacheEntry) error
}

// CacheWrite is the outcome of a best-effort cache write. Callers log Err and move on.
type CacheWrite struct {
	Key CacheKey
	Err error
}

// Stored reports whether the entry was written.
func (w CacheWrite) Stored() bool {
	return w.Err == nil
}

// Race reports whether a concurrent writer stored the same key first.
func (w CacheWrite) Race() bool {
	return errors.Is(w.Err, ErrDuplicateKey)
}

// Cache memoizes final candidate lists of the pipeline.
type Cache interface {
	Get(ctx context.Context, key CacheKey) ([]Candidate, bool)
	Put(ctx context.Context, key CacheKey, candidates []Candidate, query Query) CacheWrite
}

// NopCache never hits and never stores.
type NopCache struct{}

func (NopCache) Get(context.Context, CacheKey) ([]Candidate, bool) { return nil, false }

func (NopCache) Put(_ context.Context, key CacheKey, _ []Candidate, _ Query) CacheWrite {
	return CacheWrite{Key: key}
}

// StoreCache is a Cache over a CacheStore. Read failures degrade to misses.
type StoreCache struct {
	store CacheStore
	now   func() time.Time
}

// NewStoreCache wraps store.
func NewStoreCache(store CacheStore) *StoreCache {
	return &StoreCache{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the cached candidates of key and refreshes its access time.
func (c *StoreCache) Get(ctx context.Context, key CacheKey) ([]Candidate, bool) {
	entry, err := c.store.FindOneAndUpdate(ctx, key, c.now())
	if err != nil {
		log.Warnf("Cache read failed for %s: %v", key, err)
		return nil, false
	}
	if entry == nil {
		return nil, false
	}
	return entry.Candidates, true
}

// Put stores candidates under key.
func (c *StoreCache) Put(ctx context.Context, key CacheKey, candidates []Candidate, query Query) CacheWrite {
	err := c.store.InsertOne(ctx, CacheEntry{
		Key:          key,
		Candidates:   candidates,
		Query:        query.String(),
		LastAccessed: c.now(),
	})
	return CacheWrite{Key: key, Err: err}
}
