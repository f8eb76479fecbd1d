package search

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/maktabalab/maktabamcp/internal/normalize"
)

// Routing patterns. The Arabic narrator pattern anchors on whitespace rather
// than \b because Go's word boundary is ASCII-only.
var (
	narratedPat   = regexp.MustCompile(`(?i)\b(narrated by|reported by|said by)\b\s*(.+)$`)
	arNarratorPat = regexp.MustCompile(`(?:^|\s)عن\s+(.+)$`)
	exactRefPat   = regexp.MustCompile(`(?i)\b(?:book|kitab|bk)?\s*\d+(?:\s*[:\-/]\s*\d+)?\b`)

	doubleQuotedPat = regexp.MustCompile(`"([^"]{3,})"`)
	singleQuotedPat = regexp.MustCompile(`'([^']{3,})'`)

	// Lowercase alphanumeric runs plus the Arabic block.
	tokenPat = regexp.MustCompile(`[\w\x{0600}-\x{06FF}]+`)
)

// Route classifies a raw query into a QueryIntent. It is a total function:
// any input, including empty or punctuation-only strings, routes to some
// intent without error.
//
// Priority: exact reference > narrator > thematic (>= 4 tokens or a quoted
// phrase) > mixed.
func Route(query string) QueryIntent {
	q := strings.TrimSpace(query)
	phrase := firstQuotedPhrase(q)

	narrator := ""
	if m := narratedPat.FindStringSubmatch(q); m != nil {
		narrator = narratorOrRaw(m[2])
	}
	if narrator == "" {
		if m := arNarratorPat.FindStringSubmatch(q); m != nil {
			narrator = narratorOrRaw(m[1])
		}
	}

	var intentType IntentType
	switch {
	case exactRefPat.MatchString(q):
		intentType = IntentExactReference
	case narrator != "":
		intentType = IntentNarrator
	default:
		if len(tokenize(q)) >= 4 || phrase != "" {
			intentType = IntentThematic
		} else {
			intentType = IntentMixed
		}
	}

	normalized := stripQuotes(q)
	return QueryIntent{
		Type:          intentType,
		Raw:           query,
		Normalized:    normalized,
		NarratorQuery: narrator,
		Phrase:        phrase,
		Tokens:        tokenize(normalized),
	}
}

// narratorOrRaw canonicalizes the captured narrator sub-query, falling back
// to the trimmed capture when normalization strips everything.
func narratorOrRaw(captured string) string {
	if name := normalize.ExtractNarratorName(captured); name != "" {
		return name
	}
	return strings.TrimSpace(captured)
}

// stripQuotes removes one pair of enclosing quotes, if present.
func stripQuotes(q string) string {
	q = strings.TrimSpace(q)
	if len(q) >= 2 {
		if (strings.HasPrefix(q, `"`) && strings.HasSuffix(q, `"`)) ||
			(strings.HasPrefix(q, `'`) && strings.HasSuffix(q, `'`)) {
			return strings.TrimSpace(q[1 : len(q)-1])
		}
	}
	return q
}

// firstQuotedPhrase returns the first double- or single-quoted phrase of at
// least 3 characters.
func firstQuotedPhrase(q string) string {
	if m := doubleQuotedPat.FindStringSubmatch(q); m != nil {
		return m[1]
	}
	if m := singleQuotedPat.FindStringSubmatch(q); m != nil {
		return m[1]
	}
	return ""
}

// tokenize lowercases the query and returns alphanumeric-plus-Arabic runs
// longer than one character.
func tokenize(q string) []string {
	q = strings.ToLower(q)
	matches := tokenPat.FindAllString(q, -1)
	tokens := make([]string, 0, len(matches))
	for _, t := range matches {
		if utf8.RuneCountInString(t) > 1 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
