package search

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/bastiangx/linkserve/internal/logger"
	"github.com/bastiangx/linkserve/pkg/lookup"
	"github.com/bastiangx/linkserve/pkg/similarity"
	"github.com/blevesearch/bleve/v2"
	blevesearch "github.com/blevesearch/bleve/v2/search"
	"github.com/charmbracelet/log"
)

var (
	// ErrUnknownKG is returned when a search names a knowledge graph with no indexes.
	ErrUnknownKG = errors.New("unknown knowledge graph")
	// ErrGatewayClosed is returned by searches after Close.
	ErrGatewayClosed = errors.New("search gateway closed")
)

// graph is the searchable view of one knowledge graph.
type graph struct {
	alias      bleve.IndexAlias
	categories []string
}

// Gateway runs lookup queries against bleve indexes, one alias per knowledge graph.
type Gateway struct {
	mu     sync.RWMutex
	graphs map[string]*graph
	owned  []bleve.Index
	closed bool
	log    *log.Logger
}

// NewGateway returns a gateway without knowledge graphs. Use Register to add them.
func NewGateway() *Gateway {
	return &Gateway{
		graphs: make(map[string]*graph),
		log:    logger.New("search"),
	}
}

// Open opens every searchable index named in mappings read-only.
// Indexes of filtered out categories are never opened.
func Open(mappings IndexMappings) (*Gateway, error) {
	g := NewGateway()
	for _, kg := range mappings.KGs() {
		searchable := mappings[kg].Searchable()
		indexes := make(map[string]bleve.Index, len(searchable))
		for category, path := range searchable {
			idx, err := bleve.OpenUsing(path, map[string]interface{}{"read_only": true})
			if err != nil {
				_ = g.Close()
				return nil, fmt.Errorf("open index %s/%s at %s: %w", kg, category, path, err)
			}
			g.owned = append(g.owned, idx)
			indexes[category] = idx
		}
		g.Register(kg, indexes)
		g.log.Debugf("Opened kg %s with %d indexes", kg, len(indexes))
	}
	return g, nil
}

// Register makes indexes searchable under kg, replacing any previous registration.
// Each index is renamed to its category so hits report where they came from.
// The caller keeps ownership of indexes it did not get from Open.
func (g *Gateway) Register(kg string, indexes map[string]bleve.Index) {
	categories := slices.Sorted(maps.Keys(indexes))
	members := make([]bleve.Index, 0, len(indexes))
	for _, category := range categories {
		idx := indexes[category]
		idx.SetName(category)
		members = append(members, idx)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.graphs[kg] = &graph{alias: bleve.NewIndexAlias(members...), categories: categories}
}

// Has reports whether kg can be searched.
func (g *Gateway) Has(kg string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.graphs[kg]
	return ok
}

// KGs lists the registered knowledge graphs, sorted.
func (g *Gateway) KGs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Sorted(maps.Keys(g.graphs))
}

// Search implements lookup.SearchGateway. Hits keep the order of the request sort,
// PosScore is rank over hit count and ESScore is score over the best score.
func (g *Gateway) Search(ctx context.Context, q lookup.Query, kg string, limit int) ([]lookup.Hit, map[string]string, error) {
	g.mu.RLock()
	if g.closed {
		g.mu.RUnlock()
		return nil, nil, ErrGatewayClosed
	}
	gr, ok := g.graphs[kg]
	g.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownKG, kg)
	}

	req, err := NewRequest(q, limit)
	if err != nil {
		return nil, nil, err
	}
	res, err := gr.alias.SearchInContext(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("search %s: %w", kg, err)
	}

	hits := make([]lookup.Hit, 0, len(res.Hits))
	sources := make(map[string]string, len(res.Hits))
	if len(res.Hits) == 0 {
		return hits, sources, nil
	}

	total := float64(len(res.Hits))
	for i, dm := range res.Hits {
		h := projectHit(dm)
		h.PosScore = similarity.Round(float64(i+1)/total, 3)
		if res.MaxScore > 0 {
			h.ESScore = similarity.Round(dm.Score/res.MaxScore, 3)
		}
		hits = append(hits, h)

		source := dm.Index
		if source == "" && len(gr.categories) == 1 {
			source = gr.categories[0]
		}
		sources[h.ID] = source
	}
	g.log.Debugf("%s query on %s (fuzzy %t) returned %d hits", q.Kind, kg, q.Fuzzy(), len(hits))
	return hits, sources, nil
}

// Close releases the indexes opened by Open. Further searches fail with ErrGatewayClosed.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true

	var errs []error
	for _, gr := range g.graphs {
		if err := gr.alias.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, idx := range g.owned {
		if err := idx.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// projectHit maps the stored fields of a bleve match onto a lookup hit.
func projectHit(dm *blevesearch.DocumentMatch) lookup.Hit {
	f := dm.Fields
	h := lookup.Hit{
		ID:          stringField(f, lookup.FieldID),
		Name:        stringField(f, lookup.FieldName),
		Description: stringField(f, fieldDescription),
		Types:       typesField(f, fieldTypes),
		Popularity:  numberField(f, lookup.FieldPopularity),
		TokenCount:  int(numberField(f, lookup.FieldTokens)),
		Length:      int(numberField(f, fieldLength)),
		Kind:        stringField(f, fieldKind),
		NERType:     stringField(f, fieldNERType),
	}
	if h.ID == "" {
		h.ID = dm.ID
	}
	return h
}

func stringField(fields map[string]interface{}, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// typesField accepts both a space separated string and a list, skipping blanks.
func typesField(fields map[string]interface{}, key string) []string {
	var raw []string
	switch v := fields[key].(type) {
	case string:
		raw = strings.Split(v, " ")
	case []string:
		raw = v
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, strings.Split(s, " ")...)
			}
		}
	}

	types := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	return types
}

func numberField(fields map[string]interface{}, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

var _ lookup.SearchGateway = (*Gateway)(nil)
