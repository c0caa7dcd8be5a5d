package calculate

import (
	"fmt"
	"strconv"

	"github.com/Alias1177/WinGoTrader/models"
)

// Projection is a categorical view of the raw history
type Projection string

const (
	ProjectionColor Projection = "color"
	ProjectionSize  Projection = "size"
	ProjectionValue Projection = "value"
)

// ParseProjection validates a projection name from configuration.
func ParseProjection(s string) (Projection, error) {
	switch p := Projection(s); p {
	case ProjectionColor, ProjectionSize, ProjectionValue:
		return p, nil
	}
	return "", fmt.Errorf("unknown projection %q", s)
}

// Project turns newest-first history into newest-first symbols.
func Project(history []models.Entry, p Projection, rule ColorRule) []string {
	seq := make([]string, len(history))
	for i, e := range history {
		switch p {
		case ProjectionColor:
			seq[i] = ColorSymbol(ColorOf(e.Outcome, rule))
		case ProjectionSize:
			seq[i] = SizeSymbol(SizeOf(e.Outcome))
		default:
			seq[i] = ValueSymbol(e.Outcome)
		}
	}
	return seq
}

// Alphabet lists the symbols of a projection in enumeration order.
func Alphabet(p Projection) []string {
	switch p {
	case ProjectionColor:
		return []string{SymRed, SymGreen, SymPurple}
	case ProjectionSize:
		return []string{SymSmall, SymBig}
	default:
		out := make([]string, 0, models.MaxDigit-models.MinDigit+1)
		for d := models.MinDigit; d <= models.MaxDigit; d++ {
			out = append(out, strconv.Itoa(d))
		}
		return out
	}
}

// Label renders a predicted symbol for people. With swap set a predicted
// Red is shown as Green and the other way round; Purple is never swapped.
func Label(symbol string, p Projection, swap bool) string {
	switch p {
	case ProjectionColor:
		switch symbol {
		case SymRed:
			if swap {
				return "Color: " + string(models.ColorGreen)
			}
			return "Color: " + string(models.ColorRed)
		case SymGreen:
			if swap {
				return "Color: " + string(models.ColorRed)
			}
			return "Color: " + string(models.ColorGreen)
		default:
			return "Color: " + string(models.ColorPurple)
		}
	case ProjectionSize:
		if symbol == SymSmall {
			return "Size: Small"
		}
		return "Size: Big"
	default:
		return "Number: " + symbol
	}
}
