// Package similarity holds the deterministic string measures used to score entity
// candidates against a mention: normalization, token and n-gram Jaccard, and a
// normalized edit distance.
package similarity

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// DefaultNgram is the character n-gram size used for JaccardNgram scores.
const DefaultNgram = 3

// Normalize applies the fixed mention rule: trim then lower-case.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Clean canonicalizes a label for comparison. It folds compatibility forms (NFKC),
// lower-cases, treats underscores as spaces and collapses runs of whitespace.
func Clean(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

// Tokens splits a cleaned string into its word tokens.
func Tokens(s string) []string {
	return strings.Fields(s)
}

// TokenSet returns the distinct tokens of s.
func TokenSet(s string) map[string]struct{} {
	tokens := Tokens(s)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Ngrams returns the distinct character n-grams of s.
// Strings shorter than n yield themselves as a single gram.
func Ngrams(s string, n int) map[string]struct{} {
	set := make(map[string]struct{})
	if s == "" || n <= 0 {
		return set
	}
	runes := []rune(s)
	if len(runes) <= n {
		set[s] = struct{}{}
		return set
	}
	for i := 0; i+n <= len(runes); i++ {
		set[string(runes[i:i+n])] = struct{}{}
	}
	return set
}

// EditSimilarity is 1 - levenshtein(a, b) / max(len(a), len(b)), measured in runes.
// Two empty strings are identical and score 1.
func EditSimilarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// Jaccard is the word-level token set similarity of a and b.
func Jaccard(a, b string) float64 {
	return jaccard(TokenSet(a), TokenSet(b))
}

// JaccardNgram is the character n-gram set similarity of a and b.
func JaccardNgram(a, b string, n int) float64 {
	return jaccard(Ngrams(a, n), Ngrams(b, n))
}

// jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both sets are empty.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for k := range small {
		if _, ok := large[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Round rounds x to the given number of decimal places. Rounding works on the
// exact binary value and sends exact halves to the even digit, so 0.125 becomes 0.12.
func Round(x float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	if err != nil {
		return x
	}
	return r
}

// Ratio returns num/den rounded to places, or 0 when den is zero.
func Ratio(num, den int, places int) float64 {
	if den == 0 {
		return 0
	}
	return Round(float64(num)/float64(den), places)
}
