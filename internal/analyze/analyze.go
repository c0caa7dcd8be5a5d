// Package analyze selects the next WinGo call from the matcher library.
package analyze

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Alias1177/WinGoTrader/internal/calculate"
	"github.com/Alias1177/WinGoTrader/models"
	"github.com/google/uuid"
)

// Default arbiter settings.
const (
	DefaultMinHistory = 10
	DefaultMinWindow  = 4
	DefaultMaxWindow  = 10
)

// Config controls one arbiter. The zero value is not usable; start from DefaultConfig.
type Config struct {
	Preset          Preset
	ColorRule       calculate.ColorRule
	SwapColors      bool
	MinHistory      int
	MinWindow       int
	MaxWindow       int
	Projections     []calculate.Projection
	SuppressRepeats bool
}

// DefaultConfig returns the pattern preset over color and size.
func DefaultConfig() Config {
	return Config{
		Preset:          PresetPattern,
		ColorRule:       calculate.ColorRulePurple,
		MinHistory:      DefaultMinHistory,
		MinWindow:       DefaultMinWindow,
		MaxWindow:       DefaultMaxWindow,
		Projections:     []calculate.Projection{calculate.ProjectionColor, calculate.ProjectionSize},
		SuppressRepeats: true,
	}
}

func (c Config) validate() error {
	switch {
	case c.MinHistory < 1:
		return fmt.Errorf("%w: min history must be positive", ErrInvalidConfig)
	case c.MinWindow < 1 || c.MaxWindow < c.MinWindow:
		return fmt.Errorf("%w: window range %d..%d", ErrInvalidConfig, c.MinWindow, c.MaxWindow)
	case len(c.Projections) == 0:
		return fmt.Errorf("%w: no projections", ErrInvalidConfig)
	}
	return nil
}

// Option customises an Arbiter.
type Option func(*Arbiter)

// WithRules replaces the preset rule table.
func WithRules(rules ...Rule) Option {
	return func(a *Arbiter) {
		if len(rules) > 0 {
			a.rules = rules
		}
	}
}

// WithClock sets the time source stamped on predictions.
func WithClock(now func() time.Time) Option {
	return func(a *Arbiter) {
		if now != nil {
			a.now = now
		}
	}
}

// WithIDGenerator sets how prediction ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(a *Arbiter) {
		if newID != nil {
			a.newID = newID
		}
	}
}

// Arbiter runs every rule over every projection and window and keeps the
// most confident match. It holds no per-session state.
type Arbiter struct {
	cfg   Config
	rules []Rule
	now   func() time.Time
	newID func() string
}

// NewArbiter validates cfg and builds an arbiter.
func NewArbiter(cfg Config, opts ...Option) (*Arbiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	a := &Arbiter{
		cfg:   cfg,
		rules: rulesFor(cfg.Preset),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Config returns the settings the arbiter was built with.
func (a *Arbiter) Config() Config { return a.cfg }

// MinHistory is the number of entries needed before any rule runs.
func (a *Arbiter) MinHistory() int { return a.cfg.MinHistory }

// Validate rejects outcomes outside 0..9.
func (a *Arbiter) Validate(outcome int) error {
	if outcome < models.MinDigit || outcome > models.MaxDigit {
		return fmt.Errorf("%w: %d is not a digit 0-9", ErrOutcomeRange, outcome)
	}
	return nil
}

// candidate is one rule firing on one projection and window.
type candidate struct {
	value      string
	label      string
	rule       int
	projection int
	window     int
}

// Predict proposes the next call for newest-first history. recent holds the
// last emitted labels, newest first, and is only read.
func (a *Arbiter) Predict(history []models.Entry, recent []string) models.Prediction {
	if len(history) < a.cfg.MinHistory {
		return models.Insufficient(len(history), a.cfg.MinHistory, "entries")
	}

	found := a.collect(history)
	if len(found) == 0 {
		return models.Prediction{Status: models.StatusNoPattern, Rationale: "No clear prediction found."}
	}

	sort.SliceStable(found, func(i, j int) bool {
		ci, cj := found[i], found[j]
		if a.rules[ci.rule].Confidence != a.rules[cj.rule].Confidence {
			return a.rules[ci.rule].Confidence > a.rules[cj.rule].Confidence
		}
		if ci.rule != cj.rule {
			return ci.rule < cj.rule
		}
		if ci.projection != cj.projection {
			return ci.projection < cj.projection
		}
		return ci.window < cj.window
	})
	best := found[0]
	rule := a.rules[best.rule]
	projection := a.cfg.Projections[best.projection]

	if a.cfg.SuppressRepeats && len(recent) >= 2 && recent[0] == best.label && recent[1] == best.label {
		return models.Prediction{
			Status:     models.StatusSuppressed,
			Rule:       rule.Name,
			Projection: string(projection),
			Rationale:  fmt.Sprintf("Suppressed: %s was already called twice in a row.", best.label),
		}
	}

	seq := calculate.Project(history[:best.window], projection, a.cfg.ColorRule)
	return models.Prediction{
		ID:         a.newID(),
		Status:     models.StatusReady,
		Value:      best.value,
		Label:      best.label,
		Confidence: rule.Confidence,
		Rule:       rule.Name,
		Projection: string(projection),
		Rationale:  fmt.Sprintf("%s matched the %s sequence %s", rule.Name, projection, strings.Join(seq, " ")),
		IssuedFor:  history[0].NextPeriodLabel(),
		IssuedAt:   a.now(),
	}
}

func (a *Arbiter) collect(history []models.Entry) []candidate {
	var found []candidate
	for pi, projection := range a.cfg.Projections {
		full := calculate.Project(history, projection, a.cfg.ColorRule)
		for _, w := range a.windows(len(full)) {
			seq := full[:w]
			for ri, rule := range a.rules {
				value, ok := rule.New(projection)(seq)
				if !ok {
					continue
				}
				found = append(found, candidate{
					value:      value,
					label:      calculate.Label(value, projection, a.cfg.SwapColors),
					rule:       ri,
					projection: pi,
					window:     w,
				})
			}
		}
	}
	return found
}

// windows lists the window lengths to try for a sequence of n symbols.
func (a *Arbiter) windows(n int) []int {
	if n < a.cfg.MinWindow {
		return []int{n}
	}
	hi := a.cfg.MaxWindow
	if hi > n {
		hi = n
	}
	out := make([]int, 0, hi-a.cfg.MinWindow+1)
	for w := a.cfg.MinWindow; w <= hi; w++ {
		out = append(out, w)
	}
	return out
}

// Judge reports whether outcome satisfies prediction p, comparing the label
// the user saw with the unswapped label of the revealed outcome.
func (a *Arbiter) Judge(p models.Prediction, outcome int) bool {
	if !p.Found() {
		return false
	}
	projection := calculate.Projection(p.Projection)
	symbol := calculate.Project([]models.Entry{{Outcome: outcome}}, projection, a.cfg.ColorRule)[0]
	return calculate.Label(symbol, projection, false) == p.Label
}
