package search

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/contextweaver/contextweaver/internal/store"
)

// ftsOperatorChars are FTS5 query-syntax characters stripped during
// sanitization so a query containing them can't be mistaken for FTS
// operator syntax (spec §4.6 step 1).
var ftsOperatorChars = regexp.MustCompile("[()\":*^.\\\\/:@#$%&=+\\[\\]{}<>|~`!?,;]")

var ftsKeywordRe = regexp.MustCompile(`(?i)\b(AND|OR|NOT|NEAR)\b`)

var whitespaceRe = regexp.MustCompile(`\s+`)

// camelBoundaryRe matches a lowercase-to-uppercase boundary; looksLikeCode
// combines it with a check for `.`, `_` and `/` for the "looks like an
// identifier" test from spec §4.6 step 2.
var camelBoundaryRe = regexp.MustCompile(`[a-z][A-Z]`)

// Segment turns a free-text query into the deduplicated token set used for
// both lexical recall and token-overlap scoring (spec §4.6).
func Segment(query string) []string {
	sanitized := sanitize(query)

	seen := make(map[string]bool)
	var out []string
	add := func(tok string) {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" || seen[tok] {
			return
		}
		seen[tok] = true
		out = append(out, tok)
	}

	for _, raw := range strings.Fields(query) {
		if looksLikeCode(raw) {
			for _, variant := range codeVariants(raw) {
				add(variant)
			}
		}
	}

	for _, seg := range segmentWords(sanitized) {
		add(seg)
		for _, variant := range codeVariants(seg) {
			add(variant)
		}
	}

	return out
}

func sanitize(query string) string {
	s := normalizeQuery(query)
	s = ftsOperatorChars.ReplaceAllString(s, " ")
	s = ftsKeywordRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// normalizeQuery folds fullwidth/halfwidth form variants (pasted from a
// CJK input method, e.g. fullwidth "ＡＰＩ") down to their canonical ASCII
// form, then applies NFC normalization so a combining-character sequence
// (e.g. "e" + U+0301 combining acute) matches its precomposed equivalent
// ("é"). This is the fallback the segmenter relies on for anything the
// word-boundary algorithm itself doesn't canonicalize.
func normalizeQuery(query string) string {
	return norm.NFC.String(width.Fold.String(query))
}

func looksLikeCode(tok string) bool {
	return strings.ContainsAny(tok, "._/") || camelBoundaryRe.MatchString(tok)
}

// codeVariants emits the lowercased original, the separator-stripped form
// (api_key -> apikey), and the camelCase/snake_case sub-words.
func codeVariants(tok string) []string {
	lower := strings.ToLower(tok)
	stripped := strings.NewReplacer(".", "", "_", "", "/", "").Replace(lower)

	variants := []string{lower, stripped}
	variants = append(variants, store.SplitCodeToken(tok)...)
	return variants
}

// segmentWords runs a locale-aware word segmenter (required for CJK text)
// over the sanitized query and returns the word-like segments, skipping
// pure punctuation/whitespace tokens the segmenter also yields.
func segmentWords(sanitized string) []string {
	var out []string
	seg := words.NewSegmenter([]byte(sanitized))
	for seg.Next() {
		tok := string(seg.Value())
		if !isWordLike(tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func isWordLike(tok string) bool {
	for _, r := range tok {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}
