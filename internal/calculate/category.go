package calculate

import (
	"fmt"
	"strconv"

	"github.com/Alias1177/WinGoTrader/models"
)

// ColorRule selects how the cross-color digits 0 and 5 are classified
type ColorRule string

const (
	ColorRulePurple   ColorRule = "purple"    // 0 and 5 are Purple
	ColorRuleTwoColor ColorRule = "two-color" // 0 is Red, 5 is Green
)

// Single-letter symbols used by the pattern matchers.
const (
	SymRed    = "R"
	SymGreen  = "G"
	SymPurple = "P"
	SymSmall  = "S"
	SymBig    = "B"
)

// smallMax is the largest digit counted as SMALL.
const smallMax = 4

// ParseColorRule accepts "purple" and "two-color" (empty means purple).
func ParseColorRule(s string) (ColorRule, error) {
	switch ColorRule(s) {
	case "", ColorRulePurple:
		return ColorRulePurple, nil
	case ColorRuleTwoColor:
		return ColorRuleTwoColor, nil
	}
	return "", fmt.Errorf("unknown color rule %q", s)
}

// Classify maps a digit to its color and size category.
func Classify(outcome int, rule ColorRule) models.Category {
	return models.Category{Color: ColorOf(outcome, rule), Size: SizeOf(outcome)}
}

// ColorOf returns the color of a digit under the given rule.
func ColorOf(outcome int, rule ColorRule) models.Color {
	switch {
	case outcome == 0 && rule == ColorRuleTwoColor:
		return models.ColorRed
	case outcome == 5 && rule == ColorRuleTwoColor:
		return models.ColorGreen
	case outcome == 0 || outcome == 5:
		return models.ColorPurple
	case outcome%2 == 0:
		return models.ColorRed
	default:
		return models.ColorGreen
	}
}

// SizeOf returns SMALL for 0..4 and BIG otherwise.
func SizeOf(outcome int) models.Size {
	if outcome <= smallMax {
		return models.SizeSmall
	}
	return models.SizeBig
}

// ColorSymbol is the matcher symbol of a color.
func ColorSymbol(c models.Color) string {
	switch c {
	case models.ColorRed:
		return SymRed
	case models.ColorGreen:
		return SymGreen
	default:
		return SymPurple
	}
}

// SizeSymbol is the matcher symbol of a size.
func SizeSymbol(s models.Size) string {
	if s == models.SizeSmall {
		return SymSmall
	}
	return SymBig
}

// ValueSymbol is the matcher symbol of a raw outcome.
func ValueSymbol(outcome int) string {
	return strconv.Itoa(outcome)
}
