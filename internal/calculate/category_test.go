package calculate

import (
	"reflect"
	"testing"

	"github.com/Alias1177/WinGoTrader/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		outcome  int
		rule     ColorRule
		expected models.Category
	}{
		{"zero purple", 0, ColorRulePurple, models.Category{Color: models.ColorPurple, Size: models.SizeSmall}},
		{"five purple", 5, ColorRulePurple, models.Category{Color: models.ColorPurple, Size: models.SizeBig}},
		{"zero two-color", 0, ColorRuleTwoColor, models.Category{Color: models.ColorRed, Size: models.SizeSmall}},
		{"five two-color", 5, ColorRuleTwoColor, models.Category{Color: models.ColorGreen, Size: models.SizeBig}},
		{"even small", 2, ColorRulePurple, models.Category{Color: models.ColorRed, Size: models.SizeSmall}},
		{"odd small", 3, ColorRulePurple, models.Category{Color: models.ColorGreen, Size: models.SizeSmall}},
		{"four is small", 4, ColorRulePurple, models.Category{Color: models.ColorRed, Size: models.SizeSmall}},
		{"even big", 8, ColorRulePurple, models.Category{Color: models.ColorRed, Size: models.SizeBig}},
		{"odd big", 9, ColorRuleTwoColor, models.Category{Color: models.ColorGreen, Size: models.SizeBig}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.outcome, tt.rule); got != tt.expected {
				t.Errorf("Classify(%d, %s) = %+v, want %+v", tt.outcome, tt.rule, got, tt.expected)
			}
		})
	}
}

func TestClassifyParitySplit(t *testing.T) {
	for n := 0; n <= 9; n++ {
		got := ColorOf(n, ColorRulePurple)
		if got != ColorOf(n, ColorRulePurple) {
			t.Fatalf("ColorOf(%d) is not deterministic", n)
		}
		switch {
		case n == 0 || n == 5:
			if got != models.ColorPurple {
				t.Errorf("ColorOf(%d) = %s, want Purple", n, got)
			}
		case n%2 == 0:
			if got != models.ColorRed {
				t.Errorf("ColorOf(%d) = %s, want Red", n, got)
			}
		default:
			if got != models.ColorGreen {
				t.Errorf("ColorOf(%d) = %s, want Green", n, got)
			}
		}
	}
}

func TestProject(t *testing.T) {
	history := []models.Entry{{Outcome: 8}, {Outcome: 7}, {Outcome: 0}, {Outcome: 3}}

	if got := Project(history, ProjectionColor, ColorRulePurple); !reflect.DeepEqual(got, []string{"R", "G", "P", "G"}) {
		t.Errorf("color projection = %v", got)
	}
	if got := Project(history, ProjectionSize, ColorRulePurple); !reflect.DeepEqual(got, []string{"B", "B", "S", "S"}) {
		t.Errorf("size projection = %v", got)
	}
	if got := Project(history, ProjectionValue, ColorRulePurple); !reflect.DeepEqual(got, []string{"8", "7", "0", "3"}) {
		t.Errorf("value projection = %v", got)
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		symbol   string
		p        Projection
		swap     bool
		expected string
	}{
		{SymRed, ProjectionColor, false, "Color: Red"},
		{SymRed, ProjectionColor, true, "Color: Green"},
		{SymGreen, ProjectionColor, true, "Color: Red"},
		{SymPurple, ProjectionColor, true, "Color: Purple"},
		{SymSmall, ProjectionSize, true, "Size: Small"},
		{SymBig, ProjectionSize, false, "Size: Big"},
		{"7", ProjectionValue, false, "Number: 7"},
	}
	for _, tt := range tests {
		if got := Label(tt.symbol, tt.p, tt.swap); got != tt.expected {
			t.Errorf("Label(%s, %s, %v) = %q, want %q", tt.symbol, tt.p, tt.swap, got, tt.expected)
		}
	}
}

func TestParseColorRule(t *testing.T) {
	if r, err := ParseColorRule(""); err != nil || r != ColorRulePurple {
		t.Errorf("empty rule = %v, %v", r, err)
	}
	if r, err := ParseColorRule("two-color"); err != nil || r != ColorRuleTwoColor {
		t.Errorf("two-color rule = %v, %v", r, err)
	}
	if _, err := ParseColorRule("rainbow"); err == nil {
		t.Error("expected error for unknown rule")
	}
}
