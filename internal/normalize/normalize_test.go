package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractNarratorName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "empty input",
			raw:  "",
			want: "",
		},
		{
			name: "plain name untouched",
			raw:  "Abu Hurairah",
			want: "Abu Hurairah",
		},
		{
			name: "english honorific stripped",
			raw:  "Abu Hurairah (May Allah be pleased with him)",
			want: "Abu Hurairah",
		},
		{
			name: "arabic honorific stripped",
			raw:  "أبو هريرة (رضي الله عنه)",
			want: "أبو هريرة",
		},
		{
			name: "arabic feminine honorific stripped",
			raw:  "عائشة (رضي الله عنها)",
			want: "عائشة",
		},
		{
			name: "reporting verb stripped",
			raw:  "Abu Hurairah reported:",
			want: "Abu Hurairah",
		},
		{
			name: "narrated verb stripped",
			raw:  "Narrated Aisha",
			want: "Aisha",
		},
		{
			name: "verb and honorific together",
			raw:  "Umar bin Al-Khattab (May Allah be pleased with him) said:",
			want: "Umar bin Al-Khattab",
		},
		{
			name: "arabic comma removed",
			raw:  "أنس بن مالك،",
			want: "أنس بن مالك",
		},
		{
			name: "whitespace collapsed",
			raw:  "Abu   \t Hurairah",
			want: "Abu Hurairah",
		},
		{
			name: "trailing dash trimmed",
			raw:  "Ibn Abbas -",
			want: "Ibn Abbas",
		},
		{
			name: "only honorific leaves nothing",
			raw:  "(May Allah be pleased with him)",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractNarratorName(tt.raw))
		})
	}
}

func TestExtractNarratorName_StripsDirectionMarks(t *testing.T) {
	raw := "‏أبو هريرة‎"
	assert.Equal(t, "أبو هريرة", ExtractNarratorName(raw))
}

func TestExtractNarratorName_StripsByteOrderMark(t *testing.T) {
	raw := "\ufeffNarrated Abu Hurairah\ufeff"
	assert.Equal(t, "Abu Hurairah", ExtractNarratorName(raw))
}
