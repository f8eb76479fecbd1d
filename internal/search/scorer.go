package search

import (
	"math"
	"strings"
)

// DefaultNearWindow is the token window for the proximity bonus.
const DefaultNearWindow = 5

// Scorer combines retrieval signals into a single priority score.
// It is stateless beyond its weights; Score is a pure function of its inputs.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weights.
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Weights returns the weights this scorer applies.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// ScoreInputs carries the per-candidate signals for scoring.
// Nil pointers mean the candidate was absent from that source.
type ScoreInputs struct {
	// Text is the candidate's English text used for phrase, coverage, and
	// proximity checks.
	Text string

	// VectorSimilarity is the normalized similarity, nil if the candidate
	// did not appear in the vector results.
	VectorSimilarity *float64

	// LexicalCost is the lower-is-better relevance cost, nil if the
	// candidate did not appear in the lexical results.
	LexicalCost *float64

	// SynonymGroups optionally groups related terms. When set, coverage
	// counts groups with at least one member present, and the proximity
	// bonus fires when members of the first two groups co-occur within
	// NearWindow tokens.
	SynonymGroups [][]string

	// NearWindow is the proximity token window; values < 1 clamp to 1.
	NearWindow int
}

// Score computes the breakdown for one candidate.
//
// The lexical cost maps to a bounded signal via 1/(1+max(0,cost)), so cost 0
// scores 1.0 and grows toward 0 as the cost rises. The total is the weighted
// sum of both signals, coverage, and the flat bonuses, clamped to [0,1].
func (s *Scorer) Score(intent QueryIntent, in ScoreInputs) ScoreBreakdown {
	v := 0.0
	if in.VectorSimilarity != nil {
		v = clamp01(*in.VectorSimilarity)
	}

	lexSignal := 0.0
	if in.LexicalCost != nil {
		lexSignal = clamp01(1.0 / (1.0 + math.Max(0, *in.LexicalCost)))
	}

	lowerText := strings.ToLower(in.Text)

	phraseBonus := 0.0
	if intent.Phrase != "" && strings.Contains(lowerText, strings.ToLower(intent.Phrase)) {
		phraseBonus = s.weights.Phrase
	}

	coverage := termCoverage(intent, lowerText, in.SynonymGroups)

	proximityBonus := 0.0
	if nearGroups(lowerText, in.SynonymGroups, in.NearWindow) {
		proximityBonus = s.weights.Proximity
	}

	base := s.weights.Vector*v + s.weights.Lexical*lexSignal
	total := clamp01(base + phraseBonus + proximityBonus + s.weights.TermCoverage*coverage)

	return ScoreBreakdown{
		VectorSimilarity: v,
		LexicalSignal:    lexSignal,
		PhraseBonus:      phraseBonus,
		ProximityBonus:   proximityBonus,
		TermCoverage:     coverage,
		Total:            total,
	}
}

// termCoverage measures how many query term groups appear in the text.
// With synonym groups, a group counts when any member is a substring; without
// them, each intent token counts individually.
func termCoverage(intent QueryIntent, lowerText string, groups [][]string) float64 {
	if len(groups) > 0 {
		hits := 0
		for _, group := range groups {
			for _, tok := range group {
				if strings.Contains(lowerText, strings.ToLower(tok)) {
					hits++
					break
				}
			}
		}
		return float64(hits) / float64(len(groups))
	}

	if len(intent.Tokens) == 0 {
		return 0
	}
	hits := 0
	for _, tok := range intent.Tokens {
		if strings.Contains(lowerText, tok) {
			hits++
		}
	}
	return float64(hits) / float64(len(intent.Tokens))
}

// nearGroups reports whether members of the first two synonym groups occur
// within the near window of each other. Only the first two groups take part:
// they are the query's primary concept pair, and widening the check dilutes
// the bonus.
func nearGroups(lowerText string, groups [][]string, nearWindow int) bool {
	if len(groups) < 2 {
		return false
	}

	tokens := tokenPat.FindAllString(lowerText, -1)
	if len(tokens) == 0 {
		return false
	}

	g0 := toSet(groups[0])
	g1 := toSet(groups[1])

	var posG0, posG1 []int
	for i, w := range tokens {
		if g0[w] {
			posG0 = append(posG0, i)
		}
		if g1[w] {
			posG1 = append(posG1, i)
		}
	}
	if len(posG0) == 0 || len(posG1) == 0 {
		return false
	}

	window := nearWindow
	if window < 1 {
		window = 1
	}

	// Pointer walk: for each g0 position, advance the g1 pointer toward the
	// nearest position before testing the window.
	j := 0
	for _, i := range posG0 {
		for j+1 < len(posG1) && abs(posG1[j+1]-i) <= abs(posG1[j]-i) {
			j++
		}
		if abs(posG1[j]-i) <= window {
			return true
		}
	}
	return false
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = true
	}
	return set
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
