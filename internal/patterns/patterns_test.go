package patterns

import (
	"reflect"
	"strings"
	"testing"
)

// seq splits "R G R G" into a newest-first symbol slice.
func seq(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

func TestMatchers(t *testing.T) {
	tests := []struct {
		name    string
		matcher Matcher
		input   string
		want    string
		matched bool
	}{
		{"run2 match", Run(2), "R R G", "R", true},
		{"run2 differs", Run(2), "R G", "", false},
		{"run3 match with differing tail", Run(3), "B B B S", "B", true},
		{"run3 without tail", Run(3), "B B B", "B", true},
		{"run3 too short", Run(3), "B B", "", false},
		{"run4 match", Run(4), "G G G G R", "G", true},
		{"run4 broken", Run(4), "G G R G", "", false},

		{"alt2 match", Alternation(2), "R G", "R", true},
		{"alt2 equal", Alternation(2), "R R", "", false},
		{"alt3 match", Alternation(3), "R G R", "G", true},
		{"alt3 equal middle", Alternation(3), "R R R", "", false},
		{"alt4 match", Alternation(4), "R G R G S", "R", true},
		{"alt4 broken", Alternation(4), "R G R P", "", false},
		{"alt4 constant", Alternation(4), "R R R R", "", false},
		{"alt5 unsupported", Alternation(5), "R G R G R", "", false},

		{"block reversal", BlockReversal(), "R R G G", "R", true},
		{"block same", BlockReversal(), "R R R R", "", false},
		{"block broken", BlockReversal(), "R G G G", "", false},

		{"lag1", Lag(1), "R G", "G", true},
		{"lag1 short", Lag(1), "R", "", false},

		{"self similar period 3", SelfSimilar(3, 6), "R G P R G P", "P", true},
		{"self similar overlapping run", SelfSimilar(3, 6), "S S S S", "S", true},
		{"self similar most recent occurrence", SelfSimilar(3, 6), "R G G B R G G P R G G", "B", true},
		{"self similar none", SelfSimilar(3, 6), "R G P S B", "", false},
		{"self similar too short", SelfSimilar(3, 6), "R G P", "", false},

		{"skip ascending", Skip(1, 5), "3 2 1", "4", true},
		{"skip descending by two", Skip(1, 5), "1 3 5", "", false},
		{"skip descending in range", Skip(1, 5), "3 4 5", "2", true},
		{"skip zero step", Skip(1, 5), "2 2 2", "", false},
		{"skip uneven", Skip(1, 5), "4 2 1", "", false},
		{"skip out of range", Skip(1, 5), "5 4 3 ", "6", false},
		{"skip non numeric", Skip(1, 5), "R G P", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.matcher(seq(tt.input))
			if ok != tt.matched {
				t.Fatalf("matched = %v, want %v (got %q)", ok, tt.matched, got)
			}
			if ok && got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunProperty(t *testing.T) {
	for k := 2; k <= 4; k++ {
		for _, tail := range []string{"", "G", "G R"} {
			input := append(seq(strings.Repeat("R ", k)), seq(tail)...)
			got, ok := Run(k)(input)
			if !ok || got != "R" {
				t.Errorf("Run(%d)(%v) = %q, %v", k, input, got, ok)
			}
		}
	}
}

func TestWeightedMajority(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"empty", "", "", false},
		{"newest dominates", "R G G", "G", true}, // R=10, G=9+8
		{"tie goes to first seen", "R G G R", "R", true},
		{"only first ten count", "R R G G G G G G G G B B B B B B", "G", true},
		{"weights favour recency", "G R R R", "R", true}, // G=10, R=9+8+7
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := WeightedMajority()(seq(tt.input))
			if ok != tt.ok || got != tt.want {
				t.Errorf("got %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestMajority(t *testing.T) {
	alphabet := []string{"R", "G", "P"}
	if got, ok := Majority(alphabet)(seq("G R G P")); !ok || got != "G" {
		t.Errorf("plain majority = %q, %v", got, ok)
	}
	if got, ok := Majority(alphabet)(seq("G R")); !ok || got != "R" {
		t.Errorf("tie should follow alphabet order, got %q", got)
	}
	if _, ok := Majority(alphabet)(seq("S B")); ok {
		t.Error("symbols outside the alphabet must not match")
	}
}

func TestCounts(t *testing.T) {
	got := Counts(seq("1 1 2 3 4"), []string{"1", "2", "3", "4", "5"})
	want := map[string]int{"1": 2, "2": 1, "3": 1, "4": 1, "5": 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Counts = %v, want %v", got, want)
	}
}
