package lookup

import (
	"strings"
	"unicode/utf8"

	"github.com/bastiangx/linkserve/pkg/similarity"
	"github.com/charmbracelet/log"
)

// TypeRef is a type id with its display label, null when unknown.
type TypeRef struct {
	ID   string  `json:"id" msgpack:"id"`
	Name *string `json:"name" msgpack:"name"`
}

// Candidate is a scored entity proposed as the referent of a mention.
type Candidate struct {
	ID                string    `json:"id" msgpack:"id"`
	Name              string    `json:"name" msgpack:"name"`
	Description       string    `json:"description" msgpack:"description"`
	Types             []TypeRef `json:"types" msgpack:"types"`
	AmbiguityMention  float64   `json:"ambiguity_mention" msgpack:"ambiguity_mention"`
	CorrectTokens     float64   `json:"corrects_tokens" msgpack:"corrects_tokens"`
	MentionTokens     int       `json:"ntoken_mention" msgpack:"ntoken_mention"`
	EntityTokens      int       `json:"ntoken_entity" msgpack:"ntoken_entity"`
	MentionLength     int       `json:"length_mention" msgpack:"length_mention"`
	EntityLength      int       `json:"length_entity" msgpack:"length_entity"`
	Popularity        float64   `json:"popularity" msgpack:"popularity"`
	PosScore          float64   `json:"pos_score" msgpack:"pos_score"`
	ESScore           float64   `json:"es_score" msgpack:"es_score"`
	EditDistance      float64   `json:"ed_score" msgpack:"ed_score"`
	JaccardScore      float64   `json:"jaccard_score" msgpack:"jaccard_score"`
	JaccardNgramScore float64   `json:"jaccardNgram_score" msgpack:"jaccardNgram_score"`
	Kind              string    `json:"kind,omitempty" msgpack:"kind,omitempty"`
	NERType           string    `json:"NERtype,omitempty" msgpack:"NERtype,omitempty"`
}

// mergeScore is the quantity compared when two hits share an entity id.
func (c Candidate) mergeScore() float64 {
	return c.EditDistance + c.JaccardScore
}

// Mention is the normalized mention with the measures derived from it once per request.
type Mention struct {
	Text       string
	Clean      string
	TokenCount int
	Length     int
}

// NewMention derives the per-request measures of an already normalized mention.
func NewMention(normalized string) Mention {
	return Mention{
		Text:       normalized,
		Clean:      similarity.Clean(normalized),
		TokenCount: len(strings.Split(normalized, " ")),
		Length:     utf8.RuneCountInString(normalized),
	}
}

// ScoreHit builds the candidate for hit, computing its similarity to the mention.
func ScoreHit(m Mention, hit Hit, amb Ambiguity, labels TypeLabels) Candidate {
	nameClean := similarity.Clean(hit.Name)

	types := make([]TypeRef, 0, len(hit.Types))
	for _, id := range hit.Types {
		types = append(types, TypeRef{ID: id, Name: labels.Name(id)})
	}

	return Candidate{
		ID:                hit.ID,
		Name:              hit.Name,
		Description:       hit.Description,
		Types:             types,
		AmbiguityMention:  amb.Mention,
		CorrectTokens:     amb.CorrectTokens,
		MentionTokens:     m.TokenCount,
		EntityTokens:      hit.TokenCount,
		MentionLength:     m.Length,
		EntityLength:      hit.Length,
		Popularity:        hit.Popularity,
		PosScore:          hit.PosScore,
		ESScore:           hit.ESScore,
		EditDistance:      similarity.Round(similarity.EditSimilarity(nameClean, m.Clean), 2),
		JaccardScore:      similarity.Round(similarity.Jaccard(nameClean, m.Clean), 2),
		JaccardNgramScore: similarity.Round(similarity.JaccardNgram(nameClean, m.Clean, similarity.DefaultNgram), 2),
		Kind:              hit.Kind,
		NERType:           hit.NERType,
	}
}

// Merger keeps one candidate per entity id. It is owned by a single request.
type Merger struct {
	index      map[string]int
	candidates []Candidate
}

// NewMerger returns an empty merger sized for about n candidates.
func NewMerger(n int) *Merger {
	return &Merger{
		index:      make(map[string]int, n),
		candidates: make([]Candidate, 0, n),
	}
}

// Add inserts c when its id is new. An existing candidate is replaced only when
// c has a strictly higher edit distance + jaccard sum, so the first one wins ties.
// The replacement keeps the slot of the original. Reports whether c was stored.
func (m *Merger) Add(c Candidate) bool {
	pos, ok := m.index[c.ID]
	if !ok {
		m.index[c.ID] = len(m.candidates)
		m.candidates = append(m.candidates, c)
		return true
	}
	if c.mergeScore() > m.candidates[pos].mergeScore() {
		m.candidates[pos] = c
		return true
	}
	return false
}

// Len is the number of distinct ids held.
func (m *Merger) Len() int {
	return len(m.candidates)
}

// Candidates returns the merged candidates in first-insertion order of their ids.
func (m *Merger) Candidates() []Candidate {
	out := make([]Candidate, len(m.candidates))
	copy(out, m.candidates)
	return out
}

// RankHits scores every hit in order and merges duplicates by entity id.
func RankHits(m Mention, hits []Hit, amb Ambiguity, labels TypeLabels) []Candidate {
	merger := NewMerger(len(hits))
	for _, hit := range hits {
		merger.Add(ScoreHit(m, hit, amb, labels))
	}
	if dropped := len(hits) - merger.Len(); dropped > 0 {
		log.Debugf("Merged %d duplicate hits for '%s'", dropped, m.Text)
	}
	return merger.Candidates()
}
