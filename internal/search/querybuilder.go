package search

import (
	"fmt"
	"strings"
)

// maxQueryTerms caps how many tokens a lexical expression carries. Long
// queries keep only their leading terms; coverage scoring still sees them all.
const maxQueryTerms = 6

// BuildLexicalQuery compiles a routed intent into a lexical query expression.
//
// The grammar is the conjunction of prefix terms (`tok*`), optionally scoped
// to the narrator field (`narrator:tok*`), or a single quoted phrase. A query
// that yields no tokens falls back to the normalized text verbatim so the
// lexical index still sees something searchable.
func BuildLexicalQuery(intent QueryIntent) string {
	switch intent.Type {
	case IntentNarrator:
		toks := tokenize(intent.NarratorQuery)
		if len(toks) == 0 {
			toks = intent.Tokens
		}
		if len(toks) == 0 {
			return intent.Normalized
		}
		parts := make([]string, 0, maxQueryTerms)
		for _, t := range capTerms(toks) {
			parts = append(parts, fmt.Sprintf("narrator:%s*", t))
		}
		return strings.Join(parts, " AND ")

	case IntentExactReference, IntentThematic, IntentMixed:
		return generalExpression(intent)

	default:
		return generalExpression(intent)
	}
}

// generalExpression prefers a quoted phrase, then prefix terms, then the
// normalized query verbatim.
func generalExpression(intent QueryIntent) string {
	if len(intent.Phrase) >= 3 {
		return `"` + intent.Phrase + `"`
	}

	toks := capTerms(intent.Tokens)
	if len(toks) == 0 {
		return intent.Normalized
	}

	parts := make([]string, 0, len(toks))
	for _, t := range toks {
		parts = append(parts, t+"*")
	}
	return strings.Join(parts, " AND ")
}

func capTerms(toks []string) []string {
	if len(toks) > maxQueryTerms {
		return toks[:maxQueryTerms]
	}
	return toks
}
