// Package session owns the state of one prediction session: the history
// buffer, the ring of recent calls, win counters and the expiry deadline of
// the prediction on display. It never schedules anything itself; the live
// package drives Expire and Replace from its timers.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/Alias1177/WinGoTrader/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State of the session machine.
type State string

const (
	StateEmpty        State = "EMPTY"
	StateInsufficient State = "INSUFFICIENT"
	StateReady        State = "READY"
	StateDisplayed    State = "DISPLAYED"
)

const (
	DefaultCapacity    = 20
	DefaultTTL         = 10 * time.Second
	DefaultCelebrateAt = 10
	ringSize           = 2
)

// Engine is a predictor the session can drive: the WinGo arbiter or the box predictor.
type Engine interface {
	MinHistory() int
	Validate(outcome int) error
	Predict(history []models.Entry, recent []string) models.Prediction
	Judge(p models.Prediction, outcome int) bool
}

// Warner is implemented by engines that flag risky histories.
type Warner interface {
	Warning(history []models.Entry) string
}

// Recorder observes issued predictions and judged outcomes.
type Recorder interface {
	Prediction(p models.Prediction)
	Outcome(win bool)
}

// Config controls buffering and display.
type Config struct {
	Capacity     int           // newest entries kept; 0 never evicts
	TTL          time.Duration // lifetime of a displayed prediction
	AutoPredict  bool          // predict after every mutation instead of on request
	RequireStart bool          // first manual entry needs SetStartPeriod
	CelebrateAt  int           // every win from this streak on raises Celebrate
}

// DefaultConfig keeps the newest twenty rounds and shows a call for ten seconds.
func DefaultConfig() Config {
	return Config{
		Capacity:     DefaultCapacity,
		TTL:          DefaultTTL,
		AutoPredict:  true,
		RequireStart: true,
		CelebrateAt:  DefaultCelebrateAt,
	}
}

// Snapshot is a read-only view handed to presentation layers.
type Snapshot struct {
	ID         string            `json:"id"`
	State      State             `json:"state"`
	History    []models.Entry    `json:"history"`
	Prediction models.Prediction `json:"prediction"`
	ExpiresAt  time.Time         `json:"expires_at,omitempty"`
	Wins       int               `json:"wins"`
	Losses     int               `json:"losses"`
	Streak     int               `json:"streak"`
	Celebrate  bool              `json:"celebrate,omitempty"`
	Warning    string            `json:"warning,omitempty"`
	Message    string            `json:"message,omitempty"`
}

// Option customises a Session.
type Option func(*Session)

// WithClock sets the time source used for expiry deadlines.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithLogger replaces the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = l
		s.customLogger = true
	}
}

// WithID sets the session id instead of a random one.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// Session is safe for concurrent use; every operation is applied atomically.
type Session struct {
	mu       sync.Mutex
	id       string
	cfg      Config
	engine   Engine
	now      func() time.Time
	recorder Recorder
	logger   zerolog.Logger

	customLogger bool

	history   []models.Entry
	start     int64
	recent    []string // newest-first labels of issued calls
	pending   models.Prediction
	display   models.Prediction
	expiresAt time.Time
	wins      int
	losses    int
	streak    int
	closed    bool
}

// New creates an empty session around engine.
func New(engine Engine, cfg Config, opts ...Option) *Session {
	if cfg.Capacity < 0 {
		cfg.Capacity = 0
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CelebrateAt <= 0 {
		cfg.CelebrateAt = DefaultCelebrateAt
	}
	s := &Session{
		id:     uuid.NewString(),
		cfg:    cfg,
		engine: engine,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.customLogger {
		s.logger = log.With().Str("component", "session").Str("session", s.id).Logger()
	}
	return s
}

// ID identifies the session in logs and the REST API.
func (s *Session) ID() string { return s.id }

// Snapshot returns the current view without changing anything.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot("")
}

// SetStartPeriod records the period of the first manual entry.
func (s *Session) SetStartPeriod(period int64) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.snapshot(""), ErrClosed
	}
	if period <= 0 {
		return s.snapshot(""), fmt.Errorf("%w: %d", ErrInvalidPeriod, period)
	}
	if len(s.history) > 0 {
		return s.snapshot(""), fmt.Errorf("%w: history already started at %s", ErrStartPeriod, s.history[len(s.history)-1].PeriodLabel())
	}
	s.start = period
	return s.snapshot(fmt.Sprintf("Starting period set to %d.", period)), nil
}

// Append records outcomes in the order they happened, each in the period
// after the newest entry. Either all outcomes are accepted or none is.
func (s *Session) Append(outcomes ...int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.snapshot(""), ErrClosed
	}
	if len(outcomes) == 0 {
		return s.snapshot(""), ErrNoInput
	}
	for _, o := range outcomes {
		if err := s.engine.Validate(o); err != nil {
			return s.snapshot(""), fmt.Errorf("%w: %w", ErrInvalidOutcome, err)
		}
	}

	next, err := s.nextPeriod()
	if err != nil {
		return s.snapshot(""), err
	}

	added := make([]models.Entry, 0, len(outcomes))
	for i, o := range outcomes {
		added = append(added, models.Entry{Outcome: o, Period: next + int64(i)})
	}
	celebrate := s.settle(added)

	grown := make([]models.Entry, 0, len(s.history)+len(added))
	for i := len(added) - 1; i >= 0; i-- {
		grown = append(grown, added[i])
	}
	s.history = s.trim(append(grown, s.history...))
	s.invalidate()

	s.logger.Debug().Int("added", len(added)).Int("size", len(s.history)).Msg("entries appended")
	return s.refresh(celebrate, ""), nil
}

// Edit replaces the outcome recorded for period. Order and numbering are kept.
func (s *Session) Edit(period int64, outcome int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.snapshot(""), ErrClosed
	}
	if err := s.engine.Validate(outcome); err != nil {
		return s.snapshot(""), fmt.Errorf("%w: %w", ErrInvalidOutcome, err)
	}
	idx := -1
	for i, e := range s.history {
		if e.Period == period {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s.snapshot(""), fmt.Errorf("%w %d", ErrUnknownPeriod, period)
	}

	s.history = s.copyHistory()
	s.history[idx].Outcome = outcome
	s.pending = models.Prediction{}
	s.invalidate()

	s.logger.Debug().Int64("period", period).Int("outcome", outcome).Msg("entry edited")
	return s.refresh(false, fmt.Sprintf("Period %d updated.", period)), nil
}

// Undo drops the newest entry. The win streak and the call ring start over
// because the calls they describe may no longer match the history.
func (s *Session) Undo() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.snapshot(""), ErrClosed
	}
	if len(s.history) == 0 {
		return s.snapshot("No history to undo."), nil
	}

	s.history = append([]models.Entry(nil), s.history[1:]...)
	s.streak = 0
	s.recent = nil
	s.pending = models.Prediction{}
	s.invalidate()

	s.logger.Debug().Int("size", len(s.history)).Msg("entry undone")
	return s.refresh(false, "Last entry has been undone."), nil
}

// Reset clears everything back to the empty state.
func (s *Session) Reset() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = nil
	s.start = 0
	s.recent = nil
	s.pending = models.Prediction{}
	s.wins, s.losses, s.streak = 0, 0, 0
	s.invalidate()

	s.logger.Debug().Msg("session reset")
	return s.snapshot("All data has been reset.")
}

// RequestPrediction runs the engine. While a call is on display it is
// returned unchanged until it expires or the history changes.
func (s *Session) RequestPrediction() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.snapshot(""), ErrClosed
	}
	if s.displayed() {
		return s.snapshot(""), nil
	}
	return s.predict(false, ""), nil
}

// Replace swaps the history for a fresh feed snapshot. Nothing changes when
// the newest round is the one already recorded.
func (s *Session) Replace(entries []models.Entry) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.snapshot(""), ErrClosed
	}
	for _, e := range entries {
		if err := s.engine.Validate(e.Outcome); err != nil {
			return s.snapshot(""), fmt.Errorf("%w: period %s: %w", ErrInvalidOutcome, e.PeriodLabel(), err)
		}
	}
	if len(entries) > 0 && len(s.history) > 0 && entries[0] == s.history[0] {
		return s.snapshot(""), nil
	}

	fresh := make([]models.Entry, len(entries))
	copy(fresh, entries)
	celebrate := s.settle(fresh)
	s.history = s.trim(fresh)
	s.invalidate()

	s.logger.Debug().Int("size", len(s.history)).Msg("history replaced")
	return s.refresh(celebrate, ""), nil
}

// Expire hides the displayed call once its deadline has passed. The call
// can still be judged when its round comes in.
func (s *Session) Expire(now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.displayed() || now.Before(s.expiresAt) {
		return s.snapshot("")
	}
	s.invalidate()
	return s.snapshot("Prediction expired.")
}

// Close disposes of the session. Later mutations fail with ErrClosed.
func (s *Session) Close() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.invalidate()
	s.logger.Debug().Msg("session closed")
	return s.snapshot("")
}

func (s *Session) nextPeriod() (int64, error) {
	if len(s.history) > 0 {
		return s.history[0].Period + 1, nil
	}
	if s.start > 0 {
		return s.start, nil
	}
	if s.cfg.RequireStart {
		return 0, ErrStartPeriod
	}
	return 1, nil
}

// settle judges the pending call against the round it was issued for.
func (s *Session) settle(added []models.Entry) bool {
	if !s.pending.Found() {
		return false
	}
	for _, e := range added {
		if e.PeriodLabel() != s.pending.IssuedFor {
			continue
		}
		win := s.engine.Judge(s.pending, e.Outcome)
		s.pending = models.Prediction{}
		if s.recorder != nil {
			s.recorder.Outcome(win)
		}
		if !win {
			s.losses++
			s.streak = 0
			return false
		}
		s.wins++
		s.streak++
		return s.streak >= s.cfg.CelebrateAt
	}
	s.pending = models.Prediction{}
	return false
}

func (s *Session) refresh(celebrate bool, msg string) Snapshot {
	if s.cfg.AutoPredict {
		return s.predict(celebrate, msg)
	}
	snap := s.snapshot(msg)
	snap.Celebrate = celebrate
	if snap.State == StateInsufficient {
		snap.Prediction = s.engine.Predict(s.copyHistory(), s.copyRecent())
		if snap.Message == "" {
			snap.Message = snap.Prediction.Rationale
		}
	}
	return snap
}

func (s *Session) predict(celebrate bool, msg string) Snapshot {
	pred := s.engine.Predict(s.copyHistory(), s.copyRecent())
	if s.recorder != nil {
		s.recorder.Prediction(pred)
	}
	if pred.Found() {
		s.recent = append([]string{pred.Label}, s.recent...)
		if len(s.recent) > ringSize {
			s.recent = s.recent[:ringSize]
		}
		s.pending = pred
		s.display = pred
		s.expiresAt = s.now().Add(s.cfg.TTL)
		s.logger.Info().Str("label", pred.Label).Str("rule", pred.Rule).
			Int("confidence", pred.Confidence).Str("period", pred.IssuedFor).Msg("prediction issued")
	}
	if msg == "" {
		msg = pred.Rationale
	}
	snap := s.snapshot(msg)
	snap.Prediction = pred
	snap.Celebrate = celebrate
	if celebrate {
		snap.Message = fmt.Sprintf("%d wins in a row! %s", s.streak, snap.Message)
	}
	return snap
}

func (s *Session) invalidate() {
	s.display = models.Prediction{}
	s.expiresAt = time.Time{}
}

func (s *Session) displayed() bool {
	return s.display.Found()
}

func (s *Session) state() State {
	switch {
	case len(s.history) == 0:
		return StateEmpty
	case len(s.history) < s.engine.MinHistory():
		return StateInsufficient
	case s.displayed():
		return StateDisplayed
	}
	return StateReady
}

func (s *Session) trim(history []models.Entry) []models.Entry {
	if s.cfg.Capacity > 0 && len(history) > s.cfg.Capacity {
		return history[:s.cfg.Capacity:s.cfg.Capacity]
	}
	return history
}

func (s *Session) snapshot(msg string) Snapshot {
	snap := Snapshot{
		ID:         s.id,
		State:      s.state(),
		History:    s.copyHistory(),
		Prediction: s.display,
		ExpiresAt:  s.expiresAt,
		Wins:       s.wins,
		Losses:     s.losses,
		Streak:     s.streak,
		Message:    msg,
	}
	if w, ok := s.engine.(Warner); ok && len(s.history) > 0 {
		snap.Warning = w.Warning(snap.History)
	}
	return snap
}

func (s *Session) copyHistory() []models.Entry {
	out := make([]models.Entry, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) copyRecent() []string {
	out := make([]string, len(s.recent))
	copy(out, s.recent)
	return out
}
