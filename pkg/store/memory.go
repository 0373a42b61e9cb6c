package store

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"sync"
	"time"

	"github.com/bastiangx/linkserve/internal/logger"
	"github.com/bastiangx/linkserve/pkg/lookup"
	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tchap/go-patricia/v2/patricia"
)

// DefaultMaxEntries bounds the memory cache when no size is configured.
const DefaultMaxEntries = 10000

// keySep cannot appear in kg names, categories or entity ids.
const keySep = "\x00"

type memEntry struct {
	candidates   []byte
	query        string
	lastAccessed time.Time
}

// MemoryStore keeps items in a patricia trie keyed kg/category/entity and cache
// entries in a bounded LRU. Candidates are stored encoded so callers never share slices.
type MemoryStore struct {
	mu    sync.RWMutex
	items *patricia.Trie
	cache *lru.Cache[lookup.CacheKey, *memEntry]
	log   *log.Logger
}

// NewMemory returns an empty store whose cache holds at most maxEntries entries.
func NewMemory(maxEntries int) (*MemoryStore, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	s := &MemoryStore{
		items: patricia.NewTrie(),
		log:   logger.New("store"),
	}
	cache, err := lru.NewWithEvict[lookup.CacheKey, *memEntry](maxEntries, func(key lookup.CacheKey, _ *memEntry) {
		s.log.Debugf("Evicted cache entry %s", key)
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

func itemKey(kg, category, entity string) patricia.Prefix {
	return patricia.Prefix(kg + keySep + category + keySep + entity)
}

// PutItems inserts or replaces documents of kg.
func (s *MemoryStore) PutItems(kg string, docs ...lookup.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		doc.Labels = maps.Clone(doc.Labels)
		s.items.Set(itemKey(kg, doc.Category, doc.Entity), doc)
	}
	return nil
}

// Find implements lookup.BackingStore. Without an entity filter the whole
// category subtree is visited.
func (s *MemoryStore) Find(ctx context.Context, kg, collection string, filter lookup.Filter) iter.Seq2[lookup.Document, error] {
	return func(yield func(lookup.Document, error) bool) {
		if collection != lookup.CollectionItems {
			yield(lookup.Document{}, fmt.Errorf("%w: %s", lookup.ErrUnknownCollection, collection))
			return
		}
		if err := ctx.Err(); err != nil {
			yield(lookup.Document{}, err)
			return
		}

		for _, doc := range s.collect(kg, filter) {
			if !yield(doc, nil) {
				return
			}
		}
	}
}

// collect copies the matching documents out under the read lock so that
// yielding never happens while holding it.
func (s *MemoryStore) collect(kg string, filter lookup.Filter) []lookup.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []lookup.Document
	if len(filter.Entities) > 0 {
		for _, entity := range filter.Entities {
			if item := s.items.Get(itemKey(kg, filter.Category, entity)); item != nil {
				docs = append(docs, copyDocument(item.(lookup.Document)))
			}
		}
		return docs
	}

	prefix := patricia.Prefix(kg + keySep + filter.Category + keySep)
	_ = s.items.VisitSubtree(prefix, func(_ patricia.Prefix, item patricia.Item) error {
		docs = append(docs, copyDocument(item.(lookup.Document)))
		return nil
	})
	return docs
}

func copyDocument(doc lookup.Document) lookup.Document {
	doc.Labels = maps.Clone(doc.Labels)
	return doc
}

// FindOneAndUpdate implements lookup.CacheStore.
func (s *MemoryStore) FindOneAndUpdate(_ context.Context, key lookup.CacheKey, lastAccessed time.Time) (*lookup.CacheEntry, error) {
	s.mu.Lock()
	e, ok := s.cache.Get(key)
	if !ok {
		s.mu.Unlock()
		return nil, nil
	}
	e.lastAccessed = lastAccessed
	blob, query := e.candidates, e.query
	s.mu.Unlock()

	candidates, err := decodeCandidates(blob)
	if err != nil {
		return nil, err
	}
	return &lookup.CacheEntry{Key: key, Candidates: candidates, Query: query, LastAccessed: lastAccessed}, nil
}

// InsertOne implements lookup.CacheStore. A taken key fails with lookup.ErrDuplicateKey.
func (s *MemoryStore) InsertOne(_ context.Context, entry lookup.CacheEntry) error {
	blob, err := encodeCandidates(entry.Candidates)
	if err != nil {
		return err
	}
	e := &memEntry{candidates: blob, query: entry.Query, lastAccessed: entry.LastAccessed}

	s.mu.Lock()
	defer s.mu.Unlock()
	if found, _ := s.cache.ContainsOrAdd(entry.Key, e); found {
		return fmt.Errorf("%w: %s", lookup.ErrDuplicateKey, entry.Key)
	}
	s.log.Debugf("Cached %s, %d entries held", entry.Key, s.CacheLen())
	return nil
}

// CacheLen is the number of cached entries.
func (s *MemoryStore) CacheLen() int {
	return s.cache.Len()
}

// Close drops all data.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = patricia.NewTrie()
	s.cache.Purge()
	return nil
}

var _ Store = (*MemoryStore)(nil)
