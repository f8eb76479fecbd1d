package search

// Search modes selecting a weight preset.
const (
	ModeBalanced     = "balanced"
	ModeTermPriority = "term-priority"
)

// Weights configures the hybrid score combination.
// Vector and Lexical weight the two retrieval signals; TermCoverage weights
// the coverage ratio; Phrase and Proximity are flat bonuses added when their
// conditions hold.
type Weights struct {
	Vector       float64 `json:"weight_vector"`
	Lexical      float64 `json:"weight_lexical"`
	TermCoverage float64 `json:"weight_term_coverage"`
	Phrase       float64 `json:"bonus_phrase"`
	Proximity    float64 `json:"bonus_proximity"`
}

// WeightOverrides adjusts individual weights on top of a preset.
// Nil fields keep the preset value.
type WeightOverrides struct {
	Vector       *float64
	Lexical      *float64
	TermCoverage *float64
	Phrase       *float64
}

// WeightsForMode returns the preset for a mode name.
// Unknown or empty modes fall back to balanced. The proximity bonus is fixed
// across presets.
func WeightsForMode(mode string) Weights {
	switch mode {
	case ModeTermPriority:
		return Weights{
			Vector:       0.30,
			Lexical:      0.30,
			TermCoverage: 0.60,
			Phrase:       0.20,
			Proximity:    0.10,
		}
	default:
		return Weights{
			Vector:       0.60,
			Lexical:      0.40,
			TermCoverage: 0.20,
			Phrase:       0.05,
			Proximity:    0.10,
		}
	}
}

// NormalizeMode maps an unknown or empty mode name to the mode actually used.
func NormalizeMode(mode string) string {
	if mode == ModeTermPriority {
		return ModeTermPriority
	}
	return ModeBalanced
}

// Merge applies field-by-field overrides, returning the resulting weights.
func (w Weights) Merge(o WeightOverrides) Weights {
	if o.Vector != nil {
		w.Vector = *o.Vector
	}
	if o.Lexical != nil {
		w.Lexical = *o.Lexical
	}
	if o.TermCoverage != nil {
		w.TermCoverage = *o.TermCoverage
	}
	if o.Phrase != nil {
		w.Phrase = *o.Phrase
	}
	return w
}
