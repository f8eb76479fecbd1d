package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"english", "The Night Prayer", []string{"the", "night", "prayer"}},
		{"drops single runes", "a prayer b", []string{"prayer"}},
		{"arabic", "عن عائشة", []string{"عن", "عائشة"}},
		{"strips diacritics", "الصَّلَاةُ", []string{"الصلاة"}},
		{"mixed punctuation", "prayer, fasting; charity.", []string{"prayer", "fasting", "charity"}},
		{"numbers kept", "book 12", []string{"book", "12"}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenizeText(tt.input))
		})
	}
}

func TestStripArabicDiacritics(t *testing.T) {
	// Fatha, damma, kasra, shadda, sukun all removed; letters kept.
	assert.Equal(t, "محمد", StripArabicDiacritics("مُحَمَّدٌ"))
	// Tatweel removed.
	assert.Equal(t, "كتاب", StripArabicDiacritics("كـتـاب"))
	// Latin text untouched.
	assert.Equal(t, "Prayer", StripArabicDiacritics("Prayer"))
}

func TestFilterStopWords(t *testing.T) {
	stopWords := BuildStopWordMap(DefaultStopWords)

	got := FilterStopWords([]string{"the", "night", "prayer", "of", "believer"}, stopWords)
	assert.Equal(t, []string{"night", "prayer", "believer"}, got)

	// Case-insensitive matching.
	got = FilterStopWords([]string{"The", "Night"}, stopWords)
	assert.Equal(t, []string{"Night"}, got)
}

func TestBuildStopWordMap(t *testing.T) {
	m := BuildStopWordMap([]string{"The", "AND"})
	_, hasThe := m["the"]
	_, hasAnd := m["and"]
	assert.True(t, hasThe)
	assert.True(t, hasAnd)
	assert.Len(t, m, 2)
}
