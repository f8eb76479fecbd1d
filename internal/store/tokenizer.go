package store

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// textTokenRegex matches letter and digit runs in any script.
var textTokenRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

// DefaultStopWords are high-frequency English function words that carry no
// retrieval signal in hadith translations. Arabic particles are left alone:
// stripping them breaks isnad phrases like "عن أبيه".
var DefaultStopWords = []string{
	"the", "a", "an", "of", "to", "in", "on", "at", "and", "or", "is",
	"was", "were", "be", "been", "it", "he", "she", "they", "his", "her",
	"him", "them", "that", "this", "who", "whom", "which", "with", "for",
	"from", "by", "as", "then", "when", "while", "so", "said",
}

// TokenizeText splits hadith text into lowercase tokens. Arabic diacritics
// are stripped first so vowelled and unvowelled spellings index identically.
// Tokens shorter than two runes are dropped.
func TokenizeText(text string) []string {
	text = strings.ToLower(StripArabicDiacritics(text))

	words := textTokenRegex.FindAllString(text, -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) >= 2 {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// StripArabicDiacritics removes harakat, the superscript alef, and tatweel.
// The base letters are untouched.
func StripArabicDiacritics(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 0x064B && r <= 0x0652) || r == 0x0670 || r == 0x0640 {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FilterStopWords removes stop words from a token list.
func FilterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := stopWords[strings.ToLower(token)]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

// BuildStopWordMap converts a slice of stop words to a lookup map.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}
