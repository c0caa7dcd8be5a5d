package analyze

import (
	"fmt"

	"github.com/Alias1177/WinGoTrader/internal/calculate"
	"github.com/Alias1177/WinGoTrader/internal/patterns"
)

// Preset names a built-in rule table
type Preset string

const (
	// PresetPattern ranks the whole matcher library by fixed confidence.
	PresetPattern Preset = "pattern"
	// PresetSequence replays the "Smart Predict" order: recurring
	// substrings, then weighted majority, then the previous symbol.
	PresetSequence Preset = "sequence"
)

// Rule pairs a matcher with its static confidence. Rules are evaluated in
// slice order, which is also the tie-break priority.
type Rule struct {
	Name       string
	Confidence int
	// New builds the matcher for one projection, so alphabet-aware
	// matchers can pick the right symbol set.
	New func(p calculate.Projection) patterns.Matcher
}

func fixed(m patterns.Matcher) func(calculate.Projection) patterns.Matcher {
	return func(calculate.Projection) patterns.Matcher { return m }
}

// PatternRules is the default rule table.
func PatternRules() []Rule {
	return []Rule{
		{Name: "run-4", Confidence: 10, New: fixed(patterns.Run(4))},
		{Name: "alternation-4", Confidence: 9, New: fixed(patterns.Alternation(4))},
		{Name: "alternation-3", Confidence: 8, New: fixed(patterns.Alternation(3))},
		{Name: "block-reversal", Confidence: 7, New: fixed(patterns.BlockReversal())},
		{Name: "run-3", Confidence: 6, New: fixed(patterns.Run(3))},
		{Name: "self-similar", Confidence: 6, New: fixed(patterns.SelfSimilar(3, 6))},
		{Name: "run-2", Confidence: 5, New: fixed(patterns.Run(2))},
		{Name: "alternation-2", Confidence: 4, New: fixed(patterns.Alternation(2))},
		{Name: "weighted-majority", Confidence: 3, New: fixed(patterns.WeightedMajority())},
		{Name: "majority", Confidence: 2, New: func(p calculate.Projection) patterns.Matcher {
			return patterns.Majority(calculate.Alphabet(p))
		}},
	}
}

// SequenceRules is the rule table of PresetSequence.
func SequenceRules() []Rule {
	return []Rule{
		{Name: "sequence", Confidence: 3, New: fixed(patterns.SelfSimilar(3, 6))},
		{Name: "weighted-majority", Confidence: 2, New: fixed(patterns.WeightedMajority())},
		{Name: "alternate", Confidence: 1, New: fixed(patterns.Lag(1))},
	}
}

// ParsePreset validates a preset name from configuration.
func ParsePreset(s string) (Preset, error) {
	switch p := Preset(s); p {
	case "":
		return PresetPattern, nil
	case PresetPattern, PresetSequence:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, s)
}

func rulesFor(p Preset) []Rule {
	if p == PresetSequence {
		return SequenceRules()
	}
	return PatternRules()
}
