package boxes

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/Alias1177/WinGoTrader/models"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestPredictor(t *testing.T, cfg Config) *Predictor {
	t.Helper()
	p, err := New(cfg,
		WithRand(rand.New(rand.NewSource(1))),
		WithClock(func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }),
		WithIDGenerator(func() string { return "box-1" }),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestSafestBox(t *testing.T) {
	Convey("Given the default box predictor", t, func() {
		p := newTestPredictor(t, DefaultConfig())

		Convey("The least frequent box is chosen", func() {
			pred := p.SafestBox([]int{1, 1, 2, 3, 4}, 0)
			So(pred.Status, ShouldEqual, models.StatusReady)
			So(pred.Value, ShouldEqual, "5")
			So(pred.Label, ShouldEqual, "Box 5")
			So(pred.Rule, ShouldEqual, "frequency")
			So(pred.Confidence, ShouldEqual, 3)
			So(pred.ID, ShouldEqual, "box-1")
		})

		Convey("Short histories ask for more trades", func() {
			pred := p.SafestBox([]int{1, 2}, 0)
			So(pred.Status, ShouldEqual, models.StatusInsufficient)
			So(pred.Needed, ShouldEqual, 3)
			So(pred.Rationale, ShouldEqual, "Add 3 more trades to get a prediction.")
		})

		Convey("Alternation outranks frequency", func() {
			pred := p.SafestBox([]int{2, 4, 2, 4, 1}, 0)
			So(pred.Value, ShouldEqual, "2")
			So(pred.Rule, ShouldEqual, "alternation-4")
			So(pred.Confidence, ShouldEqual, 9)
		})

		Convey("A constant step is extrapolated", func() {
			pred := p.SafestBox([]int{3, 2, 1, 5, 5}, 0)
			So(pred.Value, ShouldEqual, "4")
			So(pred.Rule, ShouldEqual, "skip")
			So(pred.Confidence, ShouldEqual, 8)
		})

		Convey("A step leaving 1-5 falls back to frequency", func() {
			pred := p.SafestBox([]int{1, 2, 3, 1, 2}, 0)
			So(pred.Rule, ShouldEqual, "frequency")
			So(pred.Value, ShouldEqual, "4")
		})

		Convey("Ties skip the previous call", func() {
			pred := p.SafestBox([]int{1, 2, 3, 1, 2}, 4)
			So(pred.Value, ShouldEqual, "5")
		})

		Convey("Only the newest window is counted", func() {
			pred := p.SafestBox([]int{1, 2, 3, 4, 5, 1, 2, 3, 4}, 0)
			So(pred.Value, ShouldEqual, "1")
		})
	})

	Convey("Given a predictor counting the whole history", t, func() {
		cfg := DefaultConfig()
		cfg.Window = 0
		p := newTestPredictor(t, cfg)

		pred := p.SafestBox([]int{1, 2, 3, 4, 5, 1, 2, 3, 4}, 0)
		So(pred.Value, ShouldEqual, "5")
	})

	Convey("Given pattern checks are disabled", t, func() {
		cfg := DefaultConfig()
		cfg.Patterns = false
		p := newTestPredictor(t, cfg)

		pred := p.SafestBox([]int{2, 4, 2, 4, 1}, 0)
		So(pred.Rule, ShouldEqual, "frequency")
		So(pred.Value, ShouldEqual, "3")
	})
}

func TestTieBreak(t *testing.T) {
	Convey("Given the earliest tie-break", t, func() {
		cfg := DefaultConfig()
		cfg.TieBreak = TieEarliest
		p := newTestPredictor(t, cfg)

		Convey("The tied box nearest the newest trade wins", func() {
			pred := p.SafestBox([]int{5, 1, 3, 2, 4}, 0)
			So(pred.Value, ShouldEqual, "5")
		})

		Convey("Unseen tied boxes fall back to the lowest", func() {
			pred := p.SafestBox([]int{1, 1, 2, 2, 3}, 0)
			So(pred.Value, ShouldEqual, "4")
		})
	})

	Convey("Given the random tie-break", t, func() {
		cfg := DefaultConfig()
		cfg.TieBreak = TieRandom
		p := newTestPredictor(t, cfg)

		for i := 0; i < 20; i++ {
			pred := p.SafestBox([]int{1, 1, 2, 2, 3}, 0)
			So(pred.Value, ShouldBeIn, []string{"4", "5"})
		}
	})

	Convey("Unknown tie-break names are rejected", t, func() {
		_, err := ParseTieBreak("coin")
		So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)

		tb, err := ParseTieBreak("")
		So(err, ShouldBeNil)
		So(tb, ShouldEqual, TieExcludeLast)
	})
}

func TestPostLoss(t *testing.T) {
	Convey("Given post-loss mode", t, func() {
		cfg := DefaultConfig()
		cfg.PostLoss = true
		p := newTestPredictor(t, cfg)

		Convey("A hit call switches to a random other box", func() {
			for i := 0; i < 20; i++ {
				pred := p.SafestBox([]int{3, 1, 2, 4, 5}, 3)
				So(pred.Rule, ShouldEqual, "post-loss")
				So(pred.Value, ShouldNotEqual, "3")
			}
		})

		Convey("A safe call keeps the normal rules", func() {
			pred := p.SafestBox([]int{3, 1, 2, 4, 5}, 2)
			So(pred.Rule, ShouldNotEqual, "post-loss")
		})
	})
}

func TestPredictAdapter(t *testing.T) {
	Convey("Given session entries and a previous call", t, func() {
		p := newTestPredictor(t, DefaultConfig())
		history := []models.Entry{
			{Outcome: 1, Period: 14},
			{Outcome: 2, Period: 13},
			{Outcome: 3, Period: 12},
			{Outcome: 1, Period: 11},
			{Outcome: 2, Period: 10},
		}

		pred := p.Predict(history, []string{"Box 4"})
		So(pred.Value, ShouldEqual, "5")
		So(pred.IssuedFor, ShouldEqual, "15")

		Convey("Judge counts a bomb in the called box as a loss", func() {
			So(p.Judge(pred, 5), ShouldBeFalse)
			So(p.Judge(pred, 3), ShouldBeTrue)
			So(p.Judge(models.Prediction{Status: models.StatusNoPattern}, 3), ShouldBeFalse)
		})
	})
}

func TestHelpers(t *testing.T) {
	Convey("BlastWarning looks at the newest three trades", t, func() {
		So(BlastWarning([]int{2, 3, 2}), ShouldBeTrue)
		So(BlastWarning([]int{1, 2, 3, 1}), ShouldBeFalse)
		So(BlastWarning([]int{4, 4}), ShouldBeFalse)
	})

	Convey("Labels round-trip", t, func() {
		So(BoxFromLabel(Label(3)), ShouldEqual, 3)
		So(BoxFromLabel("Color: Red"), ShouldEqual, 0)
	})

	Convey("Validate accepts boxes 1-5 only", t, func() {
		p := newTestPredictor(t, DefaultConfig())
		So(p.Validate(1), ShouldBeNil)
		So(p.Validate(5), ShouldBeNil)
		So(errors.Is(p.Validate(0), ErrOutcomeRange), ShouldBeTrue)
		So(errors.Is(p.Validate(6), ErrOutcomeRange), ShouldBeTrue)
	})

	Convey("Bad configs are rejected", t, func() {
		_, err := New(Config{MinHistory: 0})
		So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
	})
}
