package lookup

import "github.com/bastiangx/linkserve/pkg/similarity"

// Ambiguity holds the request scoped statistics computed from the token-only corpus.
// Both values are copied unchanged into every candidate of one lookup.
type Ambiguity struct {
	// Mention is the share of distinct corpus entities whose cleaned name equals the mention.
	Mention float64
	// CorrectTokens is the share of mention tokens that occur anywhere in the corpus names.
	CorrectTokens float64
}

// EstimateAmbiguity folds the token-only hits into the ambiguity statistics of mentionClean.
// An entity id counts towards homonymy only the first time it is seen.
func EstimateAmbiguity(mentionClean string, corpus []Hit) Ambiguity {
	seenIDs := make(map[string]struct{}, len(corpus))
	corpusTokens := make(map[string]struct{})
	ambiguous := 0

	for _, hit := range corpus {
		nameClean := similarity.Clean(hit.Name)
		for _, token := range similarity.Tokens(nameClean) {
			corpusTokens[token] = struct{}{}
		}
		if _, seen := seenIDs[hit.ID]; !seen && nameClean == mentionClean {
			ambiguous++
		}
		seenIDs[hit.ID] = struct{}{}
	}

	mentionTokens := similarity.TokenSet(mentionClean)
	correct := 0
	for token := range mentionTokens {
		if _, ok := corpusTokens[token]; ok {
			correct++
		}
	}

	return Ambiguity{
		Mention:       similarity.Ratio(ambiguous, len(seenIDs), 3),
		CorrectTokens: similarity.Ratio(correct, len(mentionTokens), 3),
	}
}
