package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynonymExpanderGroups(t *testing.T) {
	x := NewSynonymExpander()
	intent := Route("prayer fasting rewards believers")
	require.Equal(t, IntentThematic, intent.Type)

	groups := x.Groups(intent)
	require.Len(t, groups, 4)

	assert.Equal(t, []string{"prayer", "salah", "salat", "prostration"}, groups[0])
	assert.Equal(t, []string{"fasting", "sawm", "siyam", "fast"}, groups[1])
	// Unknown terms stand alone.
	assert.Equal(t, []string{"rewards"}, groups[2])
	assert.Equal(t, []string{"believers"}, groups[3])
}

func TestSynonymExpanderSkipsNarratorAndReference(t *testing.T) {
	x := NewSynonymExpander()

	assert.Nil(t, x.Groups(Route("narrated by Abu Huraira")))
	assert.Nil(t, x.Groups(Route("bukhari 1:1")))
}

func TestSynonymExpanderCapsGroups(t *testing.T) {
	x := NewSynonymExpander()
	intent := Route("one two three four five six seven eight")
	groups := x.Groups(intent)
	assert.Len(t, groups, maxSynonymGroups)
}

func TestSynonymExpanderEmptyIntent(t *testing.T) {
	x := NewSynonymExpander()
	assert.Nil(t, x.Groups(QueryIntent{Type: IntentMixed}))
}

func TestSynonymExpanderCustomDict(t *testing.T) {
	x := NewSynonymExpanderWithDict(map[string][]string{"water": {"maa"}})
	intent := QueryIntent{Type: IntentMixed, Tokens: []string{"water"}}
	groups := x.Groups(intent)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"water", "maa"}, groups[0])
}
