package search

import "strings"

// ThematicSynonyms maps English query terms to transliterated Arabic
// equivalents and common variants found in hadith translations. The corpus
// mixes both vocabularies freely: one translator writes "prayer" where
// another keeps "salah", so lexical coverage needs the whole group.
//
// Keys are lowercase. Values never repeat the key.
var ThematicSynonyms = map[string][]string{
	// Pillars and worship
	"prayer":      {"salah", "salat", "prostration"},
	"salah":       {"prayer", "salat"},
	"fasting":     {"sawm", "siyam", "fast"},
	"fast":        {"fasting", "sawm"},
	"ramadan":     {"fasting", "sawm"},
	"charity":     {"zakat", "sadaqah", "alms"},
	"zakat":       {"charity", "alms"},
	"alms":        {"charity", "sadaqah", "zakat"},
	"pilgrimage":  {"hajj", "umrah"},
	"hajj":        {"pilgrimage"},
	"ablution":    {"wudu", "ghusl", "purification"},
	"wudu":        {"ablution", "purification"},
	"supplication": {"dua", "invocation", "prayer"},
	"dua":          {"supplication", "invocation"},
	"recitation":   {"quran", "reciting"},
	"quran":        {"koran", "recitation", "revelation"},

	// Belief and character
	"faith":     {"iman", "belief"},
	"belief":    {"faith", "iman"},
	"intention": {"niyyah", "intent"},
	"patience":  {"sabr", "perseverance", "endurance"},
	"gratitude": {"shukr", "thankfulness"},
	"repentance": {"tawbah", "forgiveness"},
	"sincerity":  {"ikhlas"},
	"piety":      {"taqwa", "righteousness"},
	"knowledge":  {"ilm", "learning"},
	"mercy":      {"rahmah", "compassion"},
	"kindness":   {"mercy", "compassion", "gentleness"},

	// Eschatology
	"paradise":     {"jannah", "heaven", "garden"},
	"heaven":       {"paradise", "jannah"},
	"hell":         {"jahannam", "hellfire", "fire"},
	"hellfire":     {"hell", "jahannam", "fire"},
	"resurrection": {"qiyamah", "judgement", "judgment"},
	"judgement":    {"qiyamah", "resurrection", "judgment"},

	// Law and transactions
	"marriage":    {"nikah", "wedlock"},
	"divorce":     {"talaq"},
	"inheritance": {"mirath", "estate"},
	"usury":       {"riba", "interest"},
	"trade":       {"business", "transaction", "selling"},
	"oath":        {"vow", "swearing"},
	"forbidden":   {"haram", "unlawful", "prohibited"},
	"lawful":      {"halal", "permitted", "permissible"},

	// People and places
	"prophet":   {"messenger", "rasul", "nabi"},
	"messenger": {"prophet", "rasul"},
	"companions": {"sahaba", "companion"},
	"mosque":     {"masjid"},
	"kaaba":      {"kabah", "house"},

	// Practice
	"funeral":  {"janazah", "burial"},
	"travel":   {"journey", "traveller", "traveler"},
	"eating":   {"food", "meal"},
	"clothing": {"garment", "dress"},
}

// maxSynonymGroups caps how many term groups a query contributes,
// mirroring the lexical query term cap.
const maxSynonymGroups = maxQueryTerms

// SynonymExpander derives synonym groups from a routed intent.
type SynonymExpander struct {
	dict map[string][]string
}

// NewSynonymExpander creates an expander over the built-in thematic dictionary.
func NewSynonymExpander() *SynonymExpander {
	return &SynonymExpander{dict: ThematicSynonyms}
}

// NewSynonymExpanderWithDict creates an expander over a custom dictionary.
// A nil dictionary falls back to the built-in one.
func NewSynonymExpanderWithDict(dict map[string][]string) *SynonymExpander {
	if dict == nil {
		dict = ThematicSynonyms
	}
	return &SynonymExpander{dict: dict}
}

// Groups returns one group per intent token: the token plus its synonyms when
// the dictionary knows it, the token alone when it does not. Reference and
// narrator intents get no groups; expanding a citation or a name adds noise,
// not recall.
func (x *SynonymExpander) Groups(intent QueryIntent) [][]string {
	if intent.Type == IntentExactReference || intent.Type == IntentNarrator {
		return nil
	}

	tokens := intent.Tokens
	if len(tokens) > maxSynonymGroups {
		tokens = tokens[:maxSynonymGroups]
	}

	groups := make([][]string, 0, len(tokens))
	for _, tok := range tokens {
		key := strings.ToLower(tok)
		syns := x.dict[key]
		group := make([]string, 0, 1+len(syns))
		group = append(group, key)
		group = append(group, syns...)
		groups = append(groups, group)
	}

	if len(groups) == 0 {
		return nil
	}
	return groups
}
