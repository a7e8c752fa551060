package graph

import (
	"regexp"
	"strings"
)

// overlapScore is the same token-overlap heuristic spec §4.7 defines for
// lexical-recall chunk selection, reused here (§4.8) to pick which
// chunks of a resolved import target best match the query when one is
// available.
func overlapScore(tokens []string, text string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	var score float64
	for _, tok := range tokens {
		tok = strings.ToLower(tok)
		if tok == "" {
			continue
		}
		boundary := regexp.MustCompile(`\b` + regexp.QuoteMeta(tok) + `\b`)
		if boundary.MatchString(lower) {
			score += 1
		} else if strings.Contains(lower, tok) {
			score += 0.5
		}
	}
	return score
}
