package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFusePrefersChunkInBothLists(t *testing.T) {
	vec := []Candidate{{ChunkID: "c1", VecScore: 0.9}, {ChunkID: "c2", VecScore: 0.8}}
	lex := []Candidate{{ChunkID: "c1", LexScore: 5}, {ChunkID: "c3", LexScore: 4}}

	out := fuse(vec, lex)
	assert.Equal(t, "c1", out[0].ChunkID, "c1 appears in both lists and should rank first")
}

func TestFuseKeepsVectorOnlyAndLexicalOnlyResults(t *testing.T) {
	vec := []Candidate{{ChunkID: "v1", VecScore: 0.9}}
	lex := []Candidate{{ChunkID: "l1", LexScore: 5}}

	out := fuse(vec, lex)
	ids := map[string]bool{}
	for _, c := range out {
		ids[c.ChunkID] = true
	}
	assert.True(t, ids["v1"])
	assert.True(t, ids["l1"])
}

func TestFuseCapsAtFusedTopM(t *testing.T) {
	var vec []Candidate
	for i := 0; i < fusedTopM+20; i++ {
		vec = append(vec, Candidate{ChunkID: string(rune('a' + i%26)) + string(rune(i)), VecScore: 1})
	}
	out := fuse(vec, nil)
	assert.LessOrEqual(t, len(out), fusedTopM)
}
