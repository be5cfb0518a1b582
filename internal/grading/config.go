package grading

import "math"

// Default values applied when upstream settings are missing or unusable.
const (
	DefaultContentWeightage  = 60.0
	DefaultLanguageWeightage = 40.0
	DefaultMaxMarks          = 100.0
	DefaultStrictness        = 50.0
)

// GradingConfig is the fully resolved configuration for one grading attempt.
// It is derived fresh per attempt and never persisted; after resolution the
// content and language weightages always sum to exactly 100.
type GradingConfig struct {
	MaxMarks          float64
	ContentWeightage  float64
	LanguageWeightage float64
	Strictness        float64
	Instructions      string
}

// ContentBudget returns the share of max marks allotted to content accuracy.
func (c GradingConfig) ContentBudget() float64 {
	return c.MaxMarks * c.ContentWeightage / 100
}

// LanguageBudget returns the share of max marks allotted to language quality.
func (c GradingConfig) LanguageBudget() float64 {
	return c.MaxMarks * c.LanguageWeightage / 100
}

// ResolveConfig merges possibly partial, possibly out-of-range grading
// settings into a complete configuration. Nil pointers mean the value was
// absent upstream; non-finite values are treated the same way. The function
// is total: any combination of inputs yields a usable config.
//
// Precedence for max marks: a positive academic-level override wins over a
// positive exam-level value, which wins over the default of 100.
func ResolveConfig(content, language, maxMarks, fallbackMaxMarks, strictness *float64, instructions string) GradingConfig {
	cw, lw := resolveWeightages(sanitize(content), sanitize(language))

	resolved := DefaultMaxMarks
	if mm := sanitize(maxMarks); mm != nil && *mm > 0 {
		resolved = *mm
	} else if mm := sanitize(fallbackMaxMarks); mm != nil && *mm > 0 {
		resolved = *mm
	}

	level := DefaultStrictness
	if s := sanitize(strictness); s != nil {
		level = math.Min(math.Max(*s, 0), 100)
	}

	return GradingConfig{
		MaxMarks:          resolved,
		ContentWeightage:  cw,
		LanguageWeightage: lw,
		Strictness:        level,
		Instructions:      instructions,
	}
}

// resolveWeightages clamps each provided value into [0,100], fills in the
// missing half of the pair, then rescales so the two always sum to exactly
// 100. Content is rounded to two decimals and language is its exact
// complement so the invariant holds without float drift.
func resolveWeightages(content, language *float64) (float64, float64) {
	var cw, lw float64

	switch {
	case content == nil && language == nil:
		return DefaultContentWeightage, DefaultLanguageWeightage
	case content == nil:
		lw = clamp(*language, 0, 100)
		cw = 100 - lw
	case language == nil:
		cw = clamp(*content, 0, 100)
		lw = 100 - cw
	default:
		cw = clamp(*content, 0, 100)
		lw = clamp(*language, 0, 100)
	}

	sum := cw + lw
	if sum <= 0 {
		return DefaultContentWeightage, DefaultLanguageWeightage
	}

	if sum != 100 {
		cw = math.Round(cw/sum*100*100) / 100
		lw = 100 - cw
	}

	return cw, lw
}

// sanitize drops NaN and infinite inputs, treating them as absent.
func sanitize(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}
