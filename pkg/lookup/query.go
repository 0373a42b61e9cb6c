package lookup

import (
	"encoding/json"
	"strings"
)

// Index fields the builders target.
const (
	FieldName       = "name"
	FieldID         = "id"
	FieldTokens     = "ntoken"
	FieldPopularity = "popularity"
)

const (
	exactBoost    = 2.0
	idAnchorBoost = 2.0
	tokenSlack    = 3
	fuzzinessAuto = "auto"
)

// QueryKind tells which builder produced a Query.
type QueryKind string

const (
	KindPrimary    QueryKind = "primary"
	KindFuzzy      QueryKind = "fuzzy"
	KindIDAnchored QueryKind = "id_anchored"
	KindTokenOnly  QueryKind = "token_only"
)

// Clause is one condition inside a Query.
type Clause interface {
	clause()
}

// MatchClause is a full-text match on Field. Fuzziness is either "" or "auto".
type MatchClause struct {
	Field     string  `json:"field"`
	Text      string  `json:"query"`
	Boost     float64 `json:"boost,omitempty"`
	Fuzziness string  `json:"fuzziness,omitempty"`
}

// RangeClause bounds a numeric field, both ends inclusive.
type RangeClause struct {
	Field string `json:"field"`
	Gte   int    `json:"gte"`
	Lte   int    `json:"lte"`
}

// TermsClause matches documents whose Field equals any of Values.
type TermsClause struct {
	Field  string   `json:"field"`
	Values []string `json:"values"`
	Boost  float64  `json:"boost,omitempty"`
}

func (MatchClause) clause() {}
func (RangeClause) clause() {}
func (TermsClause) clause() {}

// MarshalJSON wraps the clause under its type name, {"match": {...}}.
func (c MatchClause) MarshalJSON() ([]byte, error) {
	type plain MatchClause
	return json.Marshal(map[string]plain{"match": plain(c)})
}

// MarshalJSON wraps the clause under its type name, {"range": {...}}.
func (c RangeClause) MarshalJSON() ([]byte, error) {
	type plain RangeClause
	return json.Marshal(map[string]plain{"range": plain(c)})
}

// MarshalJSON wraps the clause under its type name, {"terms": {...}}.
func (c TermsClause) MarshalJSON() ([]byte, error) {
	type plain TermsClause
	return json.Marshal(map[string]plain{"terms": plain(c)})
}

// SortField orders results by a stored numeric field.
type SortField struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc"`
}

// Query is a backend neutral boolean query. Must clauses all have to match,
// Should clauses only add to the score when Must is non-empty.
type Query struct {
	Kind   QueryKind   `json:"kind"`
	Must   []Clause    `json:"must,omitempty"`
	Should []Clause    `json:"should,omitempty"`
	Sort   []SortField `json:"sort,omitempty"`
}

// Fuzzy reports whether any clause requests fuzzy matching.
func (q Query) Fuzzy() bool {
	for _, c := range append(append([]Clause{}, q.Must...), q.Should...) {
		if m, ok := c.(MatchClause); ok && m.Fuzziness != "" {
			return true
		}
	}
	return false
}

// String renders the query as JSON, used when persisting it next to cached candidates.
func (q Query) String() string {
	data, err := json.Marshal(q)
	if err != nil {
		return string(q.Kind)
	}
	return string(data)
}

var popularityDesc = []SortField{{Field: FieldPopularity, Desc: true}}

// BuildPrimary matches the mention against entity names, restricted to entities whose
// token count is within three of the mention's. Exact matching boosts the name clause,
// fuzzy matching asks the engine for automatic fuzziness instead.
func BuildPrimary(mention string, fuzzy bool) Query {
	ntokens := len(strings.Split(mention, " "))

	name := MatchClause{Field: FieldName, Text: mention}
	kind := KindPrimary
	if fuzzy {
		name.Fuzziness = fuzzinessAuto
		kind = KindFuzzy
	} else {
		name.Boost = exactBoost
	}

	return Query{
		Kind: kind,
		Must: []Clause{
			RangeClause{Field: FieldTokens, Gte: ntokens - tokenSlack, Lte: ntokens + tokenSlack},
			name,
		},
		Sort: popularityDesc,
	}
}

// BuildIDAnchored restricts results to the supplied entity ids while still scoring
// by name similarity.
func BuildIDAnchored(mention string, ids []string) Query {
	anchored := make([]string, len(ids))
	copy(anchored, ids)

	return Query{
		Kind:   KindIDAnchored,
		Should: []Clause{MatchClause{Field: FieldName, Text: mention}},
		Must:   []Clause{TermsClause{Field: FieldID, Values: anchored, Boost: idAnchorBoost}},
		Sort:   popularityDesc,
	}
}

// BuildTokenOnly is an unfiltered name match. Its results only feed ambiguity
// statistics and never reach the caller.
func BuildTokenOnly(mention string) Query {
	return Query{
		Kind: KindTokenOnly,
		Must: []Clause{MatchClause{Field: FieldName, Text: mention}},
	}
}
