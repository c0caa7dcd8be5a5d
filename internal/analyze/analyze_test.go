package analyze

import (
	"errors"
	"testing"
	"time"

	"github.com/Alias1177/WinGoTrader/internal/calculate"
	"github.com/Alias1177/WinGoTrader/internal/patterns"
	"github.com/Alias1177/WinGoTrader/models"
	. "github.com/smartystreets/goconvey/convey"
)

// history builds newest-first entries; the newest digit gets the highest period.
func history(digits ...int) []models.Entry {
	out := make([]models.Entry, len(digits))
	for i, d := range digits {
		out[i] = models.Entry{Outcome: d, Period: int64(100 + len(digits) - 1 - i)}
	}
	return out
}

func newTestArbiter(t *testing.T, cfg Config, opts ...Option) *Arbiter {
	t.Helper()
	fixedNow := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	opts = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "pred-1" }),
	}, opts...)
	a, err := NewArbiter(cfg, opts...)
	if err != nil {
		t.Fatalf("NewArbiter: %v", err)
	}
	return a
}

func TestArbiterPredict(t *testing.T) {
	Convey("Given the default pattern arbiter", t, func() {
		cfg := DefaultConfig()
		a := newTestArbiter(t, cfg)

		Convey("When history is shorter than the minimum", func() {
			p := a.Predict(history(8, 7, 3, 2), nil)

			Convey("Then no prediction is made and the gap is explained", func() {
				So(p.Found(), ShouldBeFalse)
				So(p.Status, ShouldEqual, models.StatusInsufficient)
				So(p.Needed, ShouldEqual, 6)
				So(p.Rationale, ShouldEqual, "Add 6 more entries to get a prediction.")
			})
		})

		Convey("When the color sequence alternates R,G,R,G", func() {
			h := history(2, 3, 8, 7, 2, 3, 8, 7, 2, 3)
			p := a.Predict(h, nil)

			Convey("Then alternation-4 wins with confidence 9 and predicts Red", func() {
				So(p.Status, ShouldEqual, models.StatusReady)
				So(p.Rule, ShouldEqual, "alternation-4")
				So(p.Confidence, ShouldEqual, 9)
				So(p.Value, ShouldEqual, calculate.SymRed)
				So(p.Projection, ShouldEqual, "color")
				So(p.Label, ShouldEqual, "Color: Red")
				So(p.IssuedFor, ShouldEqual, "110")
				So(p.ID, ShouldEqual, "pred-1")
			})
		})

		Convey("When color alternates but size repeats four times", func() {
			p := a.Predict(history(2, 3, 2, 3, 2, 3, 2, 3, 2, 3), nil)

			Convey("Then the higher weighted run-4 on size beats the color alternation", func() {
				So(p.Rule, ShouldEqual, "run-4")
				So(p.Confidence, ShouldEqual, 10)
				So(p.Projection, ShouldEqual, "size")
				So(p.Label, ShouldEqual, "Size: Small")
			})
		})

		Convey("When the same label was emitted twice already", func() {
			h := history(2, 3, 8, 7, 2, 3, 8, 7, 2, 3)
			first := a.Predict(h, nil)
			second := a.Predict(h, []string{first.Label})
			third := a.Predict(h, []string{second.Label, first.Label})

			Convey("Then the third call is suppressed", func() {
				So(first.Found(), ShouldBeTrue)
				So(second.Found(), ShouldBeTrue)
				So(third.Found(), ShouldBeFalse)
				So(third.Status, ShouldEqual, models.StatusSuppressed)
				So(third.Rationale, ShouldContainSubstring, "Color: Red")
			})
		})
	})

	Convey("Given an arbiter with swapped colors", t, func() {
		cfg := DefaultConfig()
		cfg.SwapColors = true
		a := newTestArbiter(t, cfg)

		Convey("When the color sequence alternates R,G,R,G", func() {
			p := a.Predict(history(2, 3, 8, 7, 2, 3, 8, 7, 2, 3), nil)

			Convey("Then a predicted R is shown as Green", func() {
				So(p.Value, ShouldEqual, calculate.SymRed)
				So(p.Label, ShouldEqual, "Color: Green")
			})

			Convey("And a green outcome counts as a hit", func() {
				So(a.Judge(p, 3), ShouldBeTrue)
				So(a.Judge(p, 4), ShouldBeFalse)
			})
		})
	})

	Convey("Given an arbiter with repeat suppression disabled", t, func() {
		cfg := DefaultConfig()
		cfg.SuppressRepeats = false
		a := newTestArbiter(t, cfg)

		Convey("Then repeated labels are still emitted", func() {
			p := a.Predict(history(2, 3, 8, 7, 2, 3, 8, 7, 2, 3), []string{"Color: Red", "Color: Red"})
			So(p.Found(), ShouldBeTrue)
		})
	})
}

func TestArbiterTieBreak(t *testing.T) {
	Convey("Given two injected rules with equal confidence", t, func() {
		cfg := DefaultConfig()
		first := Rule{Name: "lag-1", Confidence: 5, New: fixed(patterns.Lag(1))}
		second := Rule{Name: "lag-0", Confidence: 5, New: fixed(patterns.Lag(0))}

		Convey("Then the rule listed first wins", func() {
			a := newTestArbiter(t, cfg, WithRules(first, second))
			p := a.Predict(history(2, 3, 8, 7, 2, 3, 8, 7, 2, 3), nil)
			So(p.Rule, ShouldEqual, "lag-1")
			So(p.Projection, ShouldEqual, "color")
			So(p.Value, ShouldEqual, calculate.SymGreen)
		})

		Convey("And swapping their order swaps the winner", func() {
			a := newTestArbiter(t, cfg, WithRules(second, first))
			p := a.Predict(history(2, 3, 8, 7, 2, 3, 8, 7, 2, 3), nil)
			So(p.Rule, ShouldEqual, "lag-0")
			So(p.Value, ShouldEqual, calculate.SymRed)
		})
	})

	Convey("Given a rule table that never matches", t, func() {
		never := Rule{Name: "never", Confidence: 1, New: fixed(patterns.Alternation(7))}
		a := newTestArbiter(t, DefaultConfig(), WithRules(never))

		Convey("Then the result is no pattern, not an error", func() {
			p := a.Predict(history(2, 3, 8, 7, 2, 3, 8, 7, 2, 3), nil)
			So(p.Status, ShouldEqual, models.StatusNoPattern)
			So(p.Rationale, ShouldEqual, "No clear prediction found.")
		})
	})
}

func TestSequencePreset(t *testing.T) {
	Convey("Given the sequence preset", t, func() {
		cfg := DefaultConfig()
		cfg.Preset = PresetSequence
		cfg.MinWindow, cfg.MaxWindow = 10, 10
		a := newTestArbiter(t, cfg)

		Convey("When a color cycle recurs in the newest ten rounds", func() {
			// colors newest-first: R G P R G P R G G G
			p := a.Predict(history(2, 3, 0, 4, 1, 5, 6, 7, 9, 1), nil)

			Convey("Then the recurring substring rule predicts the cycle continuation", func() {
				So(p.Rule, ShouldEqual, "sequence")
				So(p.Confidence, ShouldEqual, 3)
				So(p.Value, ShouldEqual, calculate.SymPurple)
				So(p.Label, ShouldEqual, "Color: Purple")
			})
		})

		Convey("When no substring recurs", func() {
			// colors: R G P G R P R G G R ; sizes: S S S B B B B S S B
			p := a.Predict(history(2, 3, 0, 7, 8, 5, 6, 1, 3, 6), nil)

			Convey("Then a majority call is made", func() {
				So(p.Found(), ShouldBeTrue)
				So(p.Rule, ShouldBeIn, []string{"sequence", "weighted-majority"})
			})
		})
	})
}

func TestNewArbiterValidation(t *testing.T) {
	Convey("Given invalid configurations", t, func() {
		cfg := DefaultConfig()
		cfg.MinWindow, cfg.MaxWindow = 6, 4
		_, err := NewArbiter(cfg)
		So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)

		cfg = DefaultConfig()
		cfg.Projections = nil
		_, err = NewArbiter(cfg)
		So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)

		_, err = ParsePreset("fibonacci")
		So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
	})

	Convey("Given the digit validator", t, func() {
		a := newTestArbiter(t, DefaultConfig())
		So(a.Validate(0), ShouldBeNil)
		So(a.Validate(9), ShouldBeNil)
		So(errors.Is(a.Validate(10), ErrOutcomeRange), ShouldBeTrue)
		So(errors.Is(a.Validate(-1), ErrOutcomeRange), ShouldBeTrue)
	})
}
