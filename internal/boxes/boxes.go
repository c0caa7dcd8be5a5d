// Package boxes predicts the safest box in the five-box original games.
package boxes

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/Alias1177/WinGoTrader/internal/patterns"
	"github.com/Alias1177/WinGoTrader/models"
	"github.com/google/uuid"
)

// TieBreak decides between boxes that share the lowest count
type TieBreak string

const (
	TieEarliest    TieBreak = "earliest"     // first tied box met in the window, newest first
	TieExcludeLast TieBreak = "exclude-last" // lowest tied box that differs from the last call
	TieRandom      TieBreak = "random"       // uniform among tied boxes
)

// Default predictor settings: a five-trade window.
const (
	DefaultWindow     = 5
	DefaultMinHistory = 5
	blastWindow       = 3
	labelPrefix       = "Box "

	BlastMessage = "Better cash out! High chance of a blast!"
)

var (
	ErrOutcomeRange  = errors.New("box out of range")
	ErrInvalidConfig = errors.New("invalid box predictor config")
)

// Config controls the predictor.
type Config struct {
	Window     int // trades counted by the frequency table; 0 counts all of them
	MinHistory int
	TieBreak   TieBreak
	PostLoss   bool // after a call is hit, pick at random among the other boxes
	Patterns   bool // try alternation and skip before the frequency table
}

// DefaultConfig breaks ties away from the previous call and runs the pattern checks.
func DefaultConfig() Config {
	return Config{
		Window:     DefaultWindow,
		MinHistory: DefaultMinHistory,
		TieBreak:   TieExcludeLast,
		Patterns:   true,
	}
}

// ParseTieBreak validates a tie-break name from configuration.
func ParseTieBreak(s string) (TieBreak, error) {
	switch t := TieBreak(s); t {
	case "":
		return TieExcludeLast, nil
	case TieEarliest, TieExcludeLast, TieRandom:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown tie-break %q", ErrInvalidConfig, s)
}

// Option customises a Predictor.
type Option func(*Predictor)

// WithRand sets the random source used by TieRandom and post-loss picks.
func WithRand(r *rand.Rand) Option {
	return func(p *Predictor) {
		if r != nil {
			p.rng = r
		}
	}
}

// WithClock sets the time source stamped on predictions.
func WithClock(now func() time.Time) Option {
	return func(p *Predictor) {
		if now != nil {
			p.now = now
		}
	}
}

// WithIDGenerator sets how prediction ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(p *Predictor) {
		if newID != nil {
			p.newID = newID
		}
	}
}

// Predictor picks the box least likely to hold the bomb.
type Predictor struct {
	cfg   Config
	rng   *rand.Rand
	now   func() time.Time
	newID func() string
}

// New builds a predictor.
func New(cfg Config, opts ...Option) (*Predictor, error) {
	if cfg.MinHistory < 1 || cfg.Window < 0 {
		return nil, fmt.Errorf("%w: min history %d, window %d", ErrInvalidConfig, cfg.MinHistory, cfg.Window)
	}
	if _, err := ParseTieBreak(string(cfg.TieBreak)); err != nil {
		return nil, err
	}
	p := &Predictor{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // not security sensitive
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// MinHistory is the number of trades needed before a call is made.
func (p *Predictor) MinHistory() int { return p.cfg.MinHistory }

// Validate rejects boxes outside 1..5.
func (p *Predictor) Validate(outcome int) error {
	if outcome < models.MinBox || outcome > models.MaxBox {
		return fmt.Errorf("%w: %d is not a box 1-5", ErrOutcomeRange, outcome)
	}
	return nil
}

// Predict adapts session history to SafestBox. The newest entry of recent
// is the previous call.
func (p *Predictor) Predict(history []models.Entry, recent []string) models.Prediction {
	boxes := make([]int, len(history))
	for i, e := range history {
		boxes[i] = e.Outcome
	}
	last := 0
	if len(recent) > 0 {
		last = BoxFromLabel(recent[0])
	}

	pred := p.SafestBox(boxes, last)
	if pred.Found() {
		pred.IssuedFor = history[0].NextPeriodLabel()
	}
	return pred
}

// Judge reports a win when the bomb landed somewhere other than the called box.
func (p *Predictor) Judge(pred models.Prediction, outcome int) bool {
	if !pred.Found() {
		return false
	}
	return pred.Value != strconv.Itoa(outcome)
}

// SafestBox proposes a box for newest-first history given the previous call
// (0 when there is none).
func (p *Predictor) SafestBox(history []int, last int) models.Prediction {
	if len(history) < p.cfg.MinHistory {
		return models.Insufficient(len(history), p.cfg.MinHistory, "trades")
	}

	if p.cfg.PostLoss && last != 0 && history[0] == last {
		box := p.randomExcept(last)
		return p.ready(box, "post-loss", 1,
			fmt.Sprintf("Box %d was just hit; picking at random among the other boxes", last))
	}

	if p.cfg.Patterns {
		syms := symbols(history)
		if v, ok := patterns.Alternation(4)(syms); ok {
			box, _ := strconv.Atoi(v)
			return p.ready(box, "alternation-4", 9,
				fmt.Sprintf("alternating pattern %s", strings.Join(syms[:4], " ")))
		}
		if v, ok := patterns.Skip(models.MinBox, models.MaxBox)(syms); ok {
			box, _ := strconv.Atoi(v)
			return p.ready(box, "skip", 8,
				fmt.Sprintf("constant step over %s", strings.Join(syms[:3], " ")))
		}
	}

	window := p.window(history)
	counts := Frequencies(window)
	tied := Safest(counts)
	box := tied[0]
	if len(tied) > 1 {
		box = p.breakTie(tied, window, last)
	}
	return p.ready(box, "frequency", 3,
		fmt.Sprintf("Box %d was hit %d time(s) in the last %d trades", box, counts[box], len(window)))
}

func (p *Predictor) window(history []int) []int {
	if p.cfg.Window > 0 && len(history) > p.cfg.Window {
		return history[:p.cfg.Window]
	}
	return history
}

func (p *Predictor) breakTie(tied, window []int, last int) int {
	switch p.cfg.TieBreak {
	case TieEarliest:
		for _, b := range window {
			for _, t := range tied {
				if b == t {
					return b
				}
			}
		}
		return tied[0]
	case TieRandom:
		return tied[p.rng.Intn(len(tied))]
	default:
		for _, t := range tied {
			if t != last {
				return t
			}
		}
		return tied[0]
	}
}

func (p *Predictor) randomExcept(box int) int {
	others := make([]int, 0, models.MaxBox-models.MinBox)
	for b := models.MinBox; b <= models.MaxBox; b++ {
		if b != box {
			others = append(others, b)
		}
	}
	return others[p.rng.Intn(len(others))]
}

func (p *Predictor) ready(box int, rule string, confidence int, rationale string) models.Prediction {
	return models.Prediction{
		ID:         p.newID(),
		Status:     models.StatusReady,
		Value:      strconv.Itoa(box),
		Label:      Label(box),
		Confidence: confidence,
		Rule:       rule,
		Projection: "box",
		Rationale:  rationale,
		IssuedAt:   p.now(),
	}
}

// Frequencies counts each box 1..5 in history; unseen boxes count zero.
func Frequencies(history []int) map[int]int {
	counts := make(map[int]int, models.MaxBox)
	for b := models.MinBox; b <= models.MaxBox; b++ {
		counts[b] = 0
	}
	for _, b := range history {
		if _, ok := counts[b]; ok {
			counts[b]++
		}
	}
	return counts
}

// Safest returns the boxes sharing the lowest count, in ascending order.
func Safest(counts map[int]int) []int {
	var tied []int
	minCount := -1
	for b := models.MinBox; b <= models.MaxBox; b++ {
		c := counts[b]
		switch {
		case minCount < 0 || c < minCount:
			minCount = c
			tied = []int{b}
		case c == minCount:
			tied = append(tied, b)
		}
	}
	return tied
}

// BlastWarning is raised when one box took the bomb at least twice in the newest three trades.
func BlastWarning(history []int) bool {
	if len(history) < blastWindow {
		return false
	}
	seen := make(map[int]int, blastWindow)
	for _, b := range history[:blastWindow] {
		seen[b]++
		if seen[b] >= 2 {
			return true
		}
	}
	return false
}

// Label renders a box call.
func Label(box int) string {
	return labelPrefix + strconv.Itoa(box)
}

// BoxFromLabel parses a Label back into its box, or 0.
func BoxFromLabel(label string) int {
	box, err := strconv.Atoi(strings.TrimPrefix(label, labelPrefix))
	if err != nil {
		return 0
	}
	return box
}

func symbols(history []int) []string {
	out := make([]string, len(history))
	for i, b := range history {
		out[i] = strconv.Itoa(b)
	}
	return out
}

// Warning implements the session warning hook with the blast check.
func (p *Predictor) Warning(history []models.Entry) string {
	boxes := make([]int, len(history))
	for i, e := range history {
		boxes[i] = e.Outcome
	}
	if BlastWarning(boxes) {
		return BlastMessage
	}
	return ""
}
