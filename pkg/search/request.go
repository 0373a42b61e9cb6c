package search

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bastiangx/linkserve/pkg/lookup"
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// NewRequest translates a lookup query into a bleve search request returning all stored fields.
func NewRequest(q lookup.Query, limit int) (*bleve.SearchRequest, error) {
	bq, err := Translate(q)
	if err != nil {
		return nil, err
	}
	req := bleve.NewSearchRequestOptions(bq, limit, 0, false)
	req.Fields = []string{"*"}
	if len(q.Sort) > 0 {
		order := make([]string, 0, len(q.Sort)+1)
		for _, s := range q.Sort {
			if s.Desc {
				order = append(order, "-"+s.Field)
			} else {
				order = append(order, s.Field)
			}
		}
		// score breaks popularity ties
		order = append(order, "-_score")
		req.SortBy(order)
	}
	return req, nil
}

// Translate builds the bleve query of q. Must clauses become a conjunction,
// should clauses only add to the score.
func Translate(q lookup.Query) (query.Query, error) {
	if len(q.Must) == 0 && len(q.Should) == 0 {
		return nil, fmt.Errorf("translate %s query: no clauses", q.Kind)
	}

	bq := bleve.NewBooleanQuery()
	for _, c := range q.Must {
		tq, err := translateClause(c)
		if err != nil {
			return nil, err
		}
		bq.AddMust(tq)
	}
	for _, c := range q.Should {
		tq, err := translateClause(c)
		if err != nil {
			return nil, err
		}
		bq.AddShould(tq)
	}
	return bq, nil
}

func translateClause(c lookup.Clause) (query.Query, error) {
	switch c := c.(type) {
	case lookup.MatchClause:
		return matchQuery(c), nil
	case lookup.RangeClause:
		lo, hi := float64(c.Gte), float64(c.Lte)
		inclusive := true
		rq := bleve.NewNumericRangeInclusiveQuery(&lo, &hi, &inclusive, &inclusive)
		rq.SetField(c.Field)
		return rq, nil
	case lookup.TermsClause:
		terms := make([]query.Query, 0, len(c.Values))
		for _, v := range c.Values {
			tq := bleve.NewTermQuery(v)
			tq.SetField(c.Field)
			terms = append(terms, tq)
		}
		dq := bleve.NewDisjunctionQuery(terms...)
		if c.Boost > 0 {
			dq.SetBoost(c.Boost)
		}
		return dq, nil
	default:
		return nil, fmt.Errorf("unsupported clause %T", c)
	}
}

// matchQuery maps a match clause. Automatic fuzziness is applied per token the
// way Elasticsearch's AUTO does it, so each token gets its own edit budget.
func matchQuery(c lookup.MatchClause) query.Query {
	if c.Fuzziness == "" {
		mq := bleve.NewMatchQuery(c.Text)
		mq.SetField(c.Field)
		if c.Boost > 0 {
			mq.SetBoost(c.Boost)
		}
		return mq
	}

	tokens := strings.Fields(c.Text)
	parts := make([]query.Query, 0, len(tokens))
	for _, token := range tokens {
		mq := bleve.NewMatchQuery(token)
		mq.SetField(c.Field)
		mq.SetFuzziness(AutoFuzziness(token))
		parts = append(parts, mq)
	}
	dq := bleve.NewDisjunctionQuery(parts...)
	if c.Boost > 0 {
		dq.SetBoost(c.Boost)
	}
	return dq
}

// AutoFuzziness is the edit budget of a term: none up to two characters,
// one up to five, two beyond.
func AutoFuzziness(term string) int {
	switch n := utf8.RuneCountInString(term); {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}
