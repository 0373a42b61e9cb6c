package lookup

import (
	"context"
	"iter"
	"sync"
	"time"
)

type searchCall struct {
	Kind  QueryKind
	Query Query
	KG    string
	Limit int
}

// fakeGateway answers by query kind and records every call.
type fakeGateway struct {
	mu        sync.Mutex
	responses map[QueryKind][]Hit
	err       error
	calls     []searchCall
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{responses: make(map[QueryKind][]Hit)}
}

func (g *fakeGateway) Search(_ context.Context, q Query, kg string, limit int) ([]Hit, map[string]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, searchCall{Kind: q.Kind, Query: q, KG: kg, Limit: limit})
	if g.err != nil {
		return nil, nil, g.err
	}
	hits := g.responses[q.Kind]
	sources := make(map[string]string, len(hits))
	for _, h := range hits {
		sources[h.ID] = "entities"
	}
	out := make([]Hit, len(hits))
	copy(out, hits)
	return out, sources, nil
}

func (g *fakeGateway) callsOf(kind QueryKind) []searchCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []searchCall
	for _, c := range g.calls {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// fakeStore serves type documents from a map.
type fakeStore struct {
	mu      sync.Mutex
	labels  map[string]string
	err     error
	finds   int
	filters []Filter
}

func (s *fakeStore) Find(_ context.Context, _ string, collection string, filter Filter) iter.Seq2[Document, error] {
	s.mu.Lock()
	s.finds++
	s.filters = append(s.filters, filter)
	s.mu.Unlock()

	return func(yield func(Document, error) bool) {
		if s.err != nil {
			yield(Document{}, s.err)
			return
		}
		if collection != CollectionItems {
			yield(Document{}, ErrUnknownCollection)
			return
		}
		for _, id := range filter.Entities {
			label, ok := s.labels[id]
			if !ok {
				continue
			}
			doc := Document{Entity: id, Category: CategoryType, Labels: map[string]string{LabelLanguage: label}}
			if !yield(doc, nil) {
				return
			}
		}
	}
}

// fakeCacheStore keeps entries in a map and can be told to fail inserts.
type fakeCacheStore struct {
	mu        sync.Mutex
	entries   map[CacheKey]CacheEntry
	insertErr error
	readErr   error
	inserts   int
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{entries: make(map[CacheKey]CacheEntry)}
}

func (s *fakeCacheStore) FindOneAndUpdate(_ context.Context, key CacheKey, lastAccessed time.Time) (*CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	entry.LastAccessed = lastAccessed
	s.entries[key] = entry
	return &entry, nil
}

func (s *fakeCacheStore) InsertOne(_ context.Context, entry CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, ok := s.entries[entry.Key]; ok {
		return ErrDuplicateKey
	}
	s.entries[entry.Key] = entry
	return nil
}

func hit(id, name string, types ...string) Hit {
	return Hit{
		ID:         id,
		Name:       name,
		Types:      types,
		TokenCount: len(types) + 1,
		Length:     len(name),
		Popularity: 1,
	}
}
