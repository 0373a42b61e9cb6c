package lookup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrimary(t *testing.T) {
	t.Run("exact", func(t *testing.T) {
		q := BuildPrimary("barack obama", false)
		assert.Equal(t, KindPrimary, q.Kind)
		require.Len(t, q.Must, 2)
		assert.Equal(t, RangeClause{Field: FieldTokens, Gte: -1, Lte: 5}, q.Must[0])
		assert.Equal(t, MatchClause{Field: FieldName, Text: "barack obama", Boost: 2}, q.Must[1])
		assert.Equal(t, []SortField{{Field: FieldPopularity, Desc: true}}, q.Sort)
		assert.False(t, q.Fuzzy())
	})

	t.Run("fuzzy", func(t *testing.T) {
		q := BuildPrimary("obama", true)
		assert.Equal(t, KindFuzzy, q.Kind)
		assert.Equal(t, RangeClause{Field: FieldTokens, Gte: -2, Lte: 4}, q.Must[0])
		assert.Equal(t, MatchClause{Field: FieldName, Text: "obama", Fuzziness: "auto"}, q.Must[1])
		assert.True(t, q.Fuzzy())
	})
}

func TestBuildIDAnchored(t *testing.T) {
	ids := []string{"Q76", "Q1"}
	q := BuildIDAnchored("obama", ids)
	ids[0] = "mutated"

	assert.Equal(t, KindIDAnchored, q.Kind)
	assert.Equal(t, []Clause{MatchClause{Field: FieldName, Text: "obama"}}, q.Should)
	assert.Equal(t, []Clause{TermsClause{Field: FieldID, Values: []string{"Q76", "Q1"}, Boost: 2}}, q.Must)
	assert.Equal(t, []SortField{{Field: FieldPopularity, Desc: true}}, q.Sort)
}

func TestBuildTokenOnly(t *testing.T) {
	q := BuildTokenOnly("obama")
	assert.Equal(t, KindTokenOnly, q.Kind)
	assert.Equal(t, []Clause{MatchClause{Field: FieldName, Text: "obama"}}, q.Must)
	assert.Empty(t, q.Should)
	assert.Empty(t, q.Sort)
}

func TestQueryString(t *testing.T) {
	s := BuildPrimary("obama", true).String()
	assert.Contains(t, s, `"kind":"fuzzy"`)
	assert.Contains(t, s, `{"match":{"field":"name","query":"obama","fuzziness":"auto"}}`)
	assert.Contains(t, s, `{"range":{"field":"ntoken","gte":-2,"lte":4}}`)
}
