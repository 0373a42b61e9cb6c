// Package lookup is the core, retrieving entity candidates for a mention from the search
// index, enriching them with type labels and scoring them against the mention.
package lookup

import "context"

// ILookup defines the interface for candidate retrieval engines
type ILookup interface {
	// Lookup returns candidates for one mention keyed by its normalized form
	Lookup(ctx context.Context, p Params) (map[string][]Candidate, error)

	// LookupBatch runs Lookup for many mentions sharing the same parameters
	LookupBatch(ctx context.Context, names []string, p Params) (map[string][]Candidate, error)
}

var _ ILookup = (*Retriever)(nil)
