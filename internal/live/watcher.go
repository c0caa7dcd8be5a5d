// Package live keeps a session in step with the history feed. It owns the
// only timers in the system: the round-aligned poll and the expiry of the
// displayed prediction.
package live

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/WinGoTrader/internal/session"
	"github.com/Alias1177/WinGoTrader/models"
)

const defaultFetchTimeout = 15 * time.Second

// Option customises a Watcher.
type Option func(*Watcher)

// WithInterval sets the round length the poll is aligned to.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithOffset delays each poll past the round boundary so the feed has published the round.
func WithOffset(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.offset = d
		}
	}
}

// WithFetchTimeout bounds a single fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.fetchTimeout = d
		}
	}
}

// WithClock sets the time source used for alignment and expiry.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) {
		if now != nil {
			w.now = now
		}
	}
}

// OnUpdate is called with every snapshot the watcher produces.
func OnUpdate(fn func(session.Snapshot)) Option {
	return func(w *Watcher) {
		if fn != nil {
			w.onUpdate = fn
		}
	}
}

// OnError is called when a fetch fails. The session keeps its last good history.
func OnError(fn func(error)) Option {
	return func(w *Watcher) {
		if fn != nil {
			w.onError = fn
		}
	}
}

// Watcher polls source and feeds the snapshots into sess.
type Watcher struct {
	source       models.HistorySource
	sess         *session.Session
	interval     time.Duration
	offset       time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	onUpdate     func(session.Snapshot)
	onError      func(error)
	deadlines    chan time.Time
	logger       zerolog.Logger
}

// New creates a watcher. Run starts it.
func New(source models.HistorySource, sess *session.Session, opts ...Option) *Watcher {
	w := &Watcher{
		source:       source,
		sess:         sess,
		interval:     models.RoundDuration,
		fetchTimeout: defaultFetchTimeout,
		now:          time.Now,
		onUpdate:     func(session.Snapshot) {},
		onError:      func(error) {},
		deadlines:    make(chan time.Time, 1),
		logger:       log.With().Str("component", "live_watcher").Str("session", sess.ID()).Logger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Track re-arms the expiry timer from a snapshot produced outside the
// watcher, such as a manual prediction request or a reset. Only the latest
// deadline is kept.
func (w *Watcher) Track(snap session.Snapshot) {
	deadline := time.Time{}
	if snap.State == session.StateDisplayed {
		deadline = snap.ExpiresAt
	}
	for {
		select {
		case w.deadlines <- deadline:
			return
		default:
			select {
			case <-w.deadlines:
			default:
			}
		}
	}
}

type fetchResult struct {
	gen     uint64
	entries []models.Entry
	err     error
}

// Run fetches immediately and then once per round until ctx ends. A new
// fetch cancels the one still in flight; only the newest result is applied.
func (w *Watcher) Run(ctx context.Context) error {
	results := make(chan fetchResult)
	var (
		gen         uint64
		cancelFetch context.CancelFunc = func() {}
	)
	startFetch := func() {
		cancelFetch()
		gen++
		fctx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
		cancelFetch = cancel
		g := gen
		go func() {
			entries, err := w.source.FetchHistory(fctx)
			select {
			case results <- fetchResult{gen: g, entries: entries, err: err}:
			case <-ctx.Done():
			}
		}()
	}
	defer func() { cancelFetch() }()

	var expiry *time.Timer
	var expiryC <-chan time.Time
	arm := func(deadline time.Time) {
		if expiry != nil {
			expiry.Stop()
			expiry, expiryC = nil, nil
		}
		if deadline.IsZero() {
			return
		}
		expiry = time.NewTimer(deadline.Sub(w.now()))
		expiryC = expiry.C
	}
	defer arm(time.Time{})

	tick := time.NewTimer(w.untilNextPoll())
	defer tick.Stop()

	w.logger.Info().Dur("interval", w.interval).Msg("watching history feed")
	startFetch()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-tick.C:
			startFetch()
			tick.Reset(w.untilNextPoll())

		case r := <-results:
			if r.gen != gen {
				continue
			}
			if r.err != nil {
				if errors.Is(r.err, context.Canceled) && ctx.Err() != nil {
					continue
				}
				w.logger.Warn().Err(r.err).Msg("history fetch failed")
				w.onError(r.err)
				continue
			}
			snap, err := w.sess.Replace(r.entries)
			if err != nil {
				w.logger.Warn().Err(err).Msg("feed snapshot rejected")
				w.onError(err)
				continue
			}
			if snap.State == session.StateDisplayed {
				arm(snap.ExpiresAt)
			} else {
				arm(time.Time{})
			}
			w.onUpdate(snap)

		case deadline := <-w.deadlines:
			arm(deadline)

		case <-expiryC:
			expiry, expiryC = nil, nil
			w.onUpdate(w.sess.Expire(w.now()))
		}
	}
}

func (w *Watcher) untilNextPoll() time.Duration {
	return models.RoundCountdown(w.now(), w.interval) + w.offset
}
