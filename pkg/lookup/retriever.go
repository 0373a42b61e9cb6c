package lookup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bastiangx/linkserve/pkg/similarity"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultFallbackLimit is the result size of the forced fuzzy retry.
	DefaultFallbackLimit = 1000
	// DefaultIDsLimit is the result size of the id-anchored query.
	DefaultIDsLimit = 1000
	// DefaultWorkers bounds concurrent pipelines in LookupBatch.
	DefaultWorkers = 4
)

// Params are the inputs of one lookup.
type Params struct {
	Name  string
	Limit int
	KG    string
	Fuzzy bool
	Types []string
	IDs   []string
}

// Options configure a Retriever. Cache may be nil for no caching.
type Options struct {
	Gateway       SearchGateway
	Store         BackingStore
	Cache         Cache
	FallbackLimit int
	IDsLimit      int
	Workers       int
}

// LookupError ties a pipeline failure to the mention that caused it.
type LookupError struct {
	Mention string
	Err     error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %q: %v", e.Mention, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Retriever runs the candidate retrieval pipeline: retrieval with fallback and
// id anchoring, ambiguity estimation, type enrichment, ranking and merging.
// It holds no per-request state and is safe for concurrent use.
type Retriever struct {
	gateway       SearchGateway
	store         BackingStore
	cache         Cache
	fallbackLimit int
	idsLimit      int
	workers       int
}

// NewRetriever builds a Retriever, applying defaults for unset options.
func NewRetriever(opts Options) *Retriever {
	r := &Retriever{
		gateway:       opts.Gateway,
		store:         opts.Store,
		cache:         opts.Cache,
		fallbackLimit: opts.FallbackLimit,
		idsLimit:      opts.IDsLimit,
		workers:       opts.Workers,
	}
	if r.cache == nil {
		r.cache = NopCache{}
	}
	if r.fallbackLimit <= 0 {
		r.fallbackLimit = DefaultFallbackLimit
	}
	if r.idsLimit <= 0 {
		r.idsLimit = DefaultIDsLimit
	}
	if r.workers <= 0 {
		r.workers = DefaultWorkers
	}
	return r
}

// Lookup returns the candidates of p.Name keyed by its normalized form.
// Gateway and store failures are returned as they are.
func (r *Retriever) Lookup(ctx context.Context, p Params) (map[string][]Candidate, error) {
	mention := similarity.Normalize(p.Name)
	candidates, err := r.candidates(ctx, mention, p)
	if err != nil {
		return nil, err
	}
	return map[string][]Candidate{mention: candidates}, nil
}

// LookupBatch runs Lookup for each distinct normalized name, at most Workers at a time.
// p.Name is ignored. The first failure cancels the rest and is returned as a *LookupError.
func (r *Retriever) LookupBatch(ctx context.Context, names []string, p Params) (map[string][]Candidate, error) {
	results := make(map[string][]Candidate, len(names))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		mention := similarity.Normalize(name)
		if _, dup := seen[mention]; dup {
			continue
		}
		seen[mention] = struct{}{}

		g.Go(func() error {
			candidates, err := r.candidates(gctx, mention, p)
			if err != nil {
				return &LookupError{Mention: mention, Err: err}
			}
			mu.Lock()
			results[mention] = candidates
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// candidates runs the pipeline for an already normalized mention, consulting the cache first.
func (r *Retriever) candidates(ctx context.Context, mention string, p Params) ([]Candidate, error) {
	key := NewCacheKey(mention, p.Types, p.KG, p.Fuzzy, p.Limit)
	if cached, ok := r.cache.Get(ctx, key); ok {
		log.Debug("Cache hit", "mention", mention, "kg", p.KG)
		return cached, nil
	}

	start := time.Now()

	var (
		hits   []Hit
		corpus []Hit
		last   Query
	)
	// The token-only corpus does not depend on the retrieval branch, so both run together.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hits, last, err = r.retrieve(gctx, mention, p)
		return err
	})
	g.Go(func() error {
		var err error
		corpus, _, err = r.gateway.Search(gctx, BuildTokenOnly(mention), p.KG, p.Limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := NewMention(mention)
	amb := EstimateAmbiguity(m.Clean, corpus)

	labels, err := ResolveTypeLabels(ctx, r.store, p.KG, CollectTypeIDs(hits))
	if err != nil {
		return nil, err
	}

	candidates := RankHits(m, hits, amb, labels)
	log.Debugf("Ranked %d candidates from %d hits for '%s' in %v", len(candidates), len(hits), mention, time.Since(start))

	if w := r.cache.Put(ctx, key, candidates, last); !w.Stored() {
		if w.Race() {
			log.Debugf("Cache entry for %s was written concurrently", key)
		} else {
			log.Debugf("Skipping cache write for %s: %v", key, w.Err)
		}
	}
	return candidates, nil
}

// retrieve runs the primary query, the forced fuzzy retry when it finds nothing,
// and the id-anchored query when ids are given. It returns the pooled hits in
// execution order together with the last query issued.
func (r *Retriever) retrieve(ctx context.Context, mention string, p Params) ([]Hit, Query, error) {
	q := BuildPrimary(mention, p.Fuzzy)
	hits, _, err := r.gateway.Search(ctx, q, p.KG, p.Limit)
	if err != nil {
		return nil, q, err
	}

	if len(hits) == 0 {
		q = BuildPrimary(mention, true)
		hits, _, err = r.gateway.Search(ctx, q, p.KG, r.fallbackLimit)
		if err != nil {
			return nil, q, err
		}
	}

	if len(p.IDs) > 0 {
		q = BuildIDAnchored(mention, p.IDs)
		anchored, _, err := r.gateway.Search(ctx, q, p.KG, r.idsLimit)
		if err != nil {
			return nil, q, err
		}
		hits = append(hits, anchored...)
	}
	return hits, q, nil
}
