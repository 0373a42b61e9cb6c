package lookup

import "context"

// Hit is one ranked entity returned by the search index.
// PosScore is rank/total and ESScore is score/max score, both rounded to 3dp.
type Hit struct {
	ID          string   `json:"id" msgpack:"id"`
	Name        string   `json:"name" msgpack:"name"`
	Description string   `json:"description" msgpack:"description"`
	Types       []string `json:"types" msgpack:"types"`
	Popularity  float64  `json:"popularity" msgpack:"popularity"`
	PosScore    float64  `json:"pos_score" msgpack:"pos_score"`
	ESScore     float64  `json:"es_score" msgpack:"es_score"`
	TokenCount  int      `json:"ntoken_entity" msgpack:"ntoken_entity"`
	Length      int      `json:"length_entity" msgpack:"length_entity"`
	Kind        string   `json:"kind,omitempty" msgpack:"kind,omitempty"`
	NERType     string   `json:"NERtype,omitempty" msgpack:"NERtype,omitempty"`
}

// SearchGateway executes queries against the full-text index of a knowledge graph.
//
// Implementations keep the requested sort order, return an empty slice and map
// when nothing matches, and report for each hit id the physical index it came from.
type SearchGateway interface {
	Search(ctx context.Context, q Query, kg string, limit int) ([]Hit, map[string]string, error)
}
