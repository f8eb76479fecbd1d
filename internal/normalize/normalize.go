// Package normalize canonicalizes narrator names and related metadata.
//
// Scraped narrator strings carry honorific parentheticals ("(may Allah be
// pleased with him)", Arabic equivalents) and reporting verbs ("narrated",
// "reported") that must be stripped before narrator matching or grouping.
package normalize

import (
	"regexp"
	"strings"
)

var (
	honorificsPattern = regexp.MustCompile(`(?i)\((?:may|may allah be pleased|رضي الله عن(?:ه|ها|هم))[^)]*\)`)
	verbPattern       = regexp.MustCompile(`(?i)\b(reported|narrated|said|stated)\b:?`)
	whitespacePattern = regexp.MustCompile(`\s+`)

	punctuationReplacer = strings.NewReplacer(":", "", "،", "")
)

// trimCutset covers spaces, dashes, and the invisible RTL/LTR marks and BOM
// that leak out of scraped bilingual text. Spelled with escapes: a raw BOM
// in source is itself invalid mid-file.
const trimCutset = " -\u200f\u200e\ufeff"

// ExtractNarratorName returns a canonical narrator name stripped of
// honorifics and reporting verbs. Returns "" when nothing remains.
func ExtractNarratorName(raw string) string {
	if raw == "" {
		return ""
	}

	cleaned := honorificsPattern.ReplaceAllString(raw, "")
	cleaned = verbPattern.ReplaceAllString(cleaned, "")
	cleaned = punctuationReplacer.Replace(cleaned)
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	return strings.Trim(cleaned, trimCutset)
}
