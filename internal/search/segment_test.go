package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmentStripsFTSOperators(t *testing.T) {
	tokens := Segment(`validate AND "user" OR NOT parse`)
	assert.Contains(t, tokens, "validate")
	assert.Contains(t, tokens, "user")
	assert.Contains(t, tokens, "parse")
	assert.NotContains(t, tokens, "and")
	assert.NotContains(t, tokens, "or")
	assert.NotContains(t, tokens, "not")
}

func TestSegmentEmitsCodeVariants(t *testing.T) {
	tokens := Segment("api_key validateUser")
	assert.Contains(t, tokens, "api_key")
	assert.Contains(t, tokens, "apikey")
	assert.Contains(t, tokens, "validate")
	assert.Contains(t, tokens, "user")
}

func TestSegmentDeduplicates(t *testing.T) {
	tokens := Segment("parse parse PARSE")
	count := 0
	for _, tok := range tokens {
		if tok == "parse" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestSegmentHandlesEmptyQuery(t *testing.T) {
	tokens := Segment("   ")
	assert.Empty(t, tokens)
}

func TestSegmentFoldsFullwidthForms(t *testing.T) {
	// "parse" typed in fullwidth form, as pasted from a CJK input method.
	tokens := Segment("ｐａｒｓｅ")
	assert.Contains(t, tokens, "parse")
}

func TestSegmentNormalizesDecomposedAccents(t *testing.T) {
	decomposed := "cafe\u0301" // "e" + combining acute accent, U+0301 (NFD form)
	precomposed := "caf\u00e9" // precomposed e-acute, U+00E9 (NFC form)
	assert.Equal(t, Segment(precomposed), Segment(decomposed))
}
