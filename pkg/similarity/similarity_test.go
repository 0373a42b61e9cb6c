package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "barack obama", Normalize("  Barack Obama\t"))
	assert.Equal(t, "", Normalize("   "))
}

func TestClean(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"Barack_Obama", "barack obama"},
		{"  New   York  City ", "new york city"},
		{"ＡＢＣ", "abc"}, // full-width forms fold under NFKC
		{"", ""},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, Clean(tc.input), "Clean(%q)", tc.input)
	}
}

func TestEditSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, EditSimilarity("obama", "obama"))
	assert.Equal(t, 1.0, EditSimilarity("", ""))
	assert.Equal(t, 0.0, EditSimilarity("abc", ""))
	assert.Equal(t, 0.42, Round(EditSimilarity("barack obama", "obama"), 2))
	assert.Equal(t, 0.8, Round(EditSimilarity("obama", "obamo"), 2))

	// symmetric
	assert.Equal(t, EditSimilarity("kitten", "sitting"), EditSimilarity("sitting", "kitten"))
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 0.5, Jaccard("barack obama", "obama"))
	assert.Equal(t, 1.0, Jaccard("obama barack", "barack obama"))
	assert.Equal(t, 0.0, Jaccard("obama", "paris"))
	assert.Equal(t, 0.0, Jaccard("", ""))
}

func TestJaccardNgram(t *testing.T) {
	assert.Equal(t, 0.3, JaccardNgram("barack obama", "obama", DefaultNgram))
	assert.Equal(t, 1.0, JaccardNgram("obama", "obama", DefaultNgram))
	// shorter than n compares whole strings
	assert.Equal(t, 1.0, JaccardNgram("ab", "ab", DefaultNgram))
	assert.Equal(t, 0.0, JaccardNgram("ab", "ba", DefaultNgram))
}

func TestNgrams(t *testing.T) {
	grams := Ngrams("obama", 3)
	assert.Len(t, grams, 3)
	assert.Contains(t, grams, "oba")
	assert.Contains(t, grams, "bam")
	assert.Contains(t, grams, "ama")
	assert.Empty(t, Ngrams("", 3))
}

func TestRoundAndRatio(t *testing.T) {
	assert.Equal(t, 0.333, Round(1.0/3.0, 3))
	assert.Equal(t, 0.67, Round(2.0/3.0, 2))
	assert.Equal(t, 0.667, Ratio(2, 3, 3))
	assert.Equal(t, 0.0, Ratio(5, 0, 3))

	// exact halves go to the even digit
	assert.Equal(t, 0.12, Round(0.125, 2))
	assert.Equal(t, 0.62, Round(0.625, 2))
	assert.Equal(t, 0.38, Round(0.375, 2))
	assert.Equal(t, 0.0, Round(0.5, 0))
	assert.Equal(t, 2.0, Round(1.5, 0))
	// 2.675 is stored below the half, so it rounds down
	assert.Equal(t, 2.67, Round(2.675, 2))
	assert.Equal(t, 0.12, Round(Jaccard("a b c d e f g h", "a"), 2))
	assert.Equal(t, 0.62, Ratio(5, 8, 2))
}
