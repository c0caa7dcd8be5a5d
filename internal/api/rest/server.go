// Package rest serves prediction sessions over a JSON API.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/WinGoTrader/internal/export"
	"github.com/Alias1177/WinGoTrader/internal/live"
	"github.com/Alias1177/WinGoTrader/internal/metrics"
	"github.com/Alias1177/WinGoTrader/internal/session"
	"github.com/Alias1177/WinGoTrader/models"
)

var (
	ErrUnknownSession = errors.New("unknown session")
	ErrUnknownGame    = errors.New("unknown game")
	ErrNoFeed         = errors.New("live sessions need a history feed")
)

// Factory opens a session for game.
type Factory func(game models.Game) (*session.Session, error)

// Option customises a Server.
type Option func(*Server)

// WithMetrics records requests and exposes /metrics.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Server) { s.metrics = m }
}

// WithAllowedOrigins sets the CORS origins.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithFeed lets clients open sessions that follow source. opts configure
// each session's watcher.
func WithFeed(source models.HistorySource, opts ...live.Option) Option {
	return func(s *Server) {
		s.feed = source
		s.liveOpts = opts
	}
}

// WithClock sets the time used to expire displayed predictions on read.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

type entry struct {
	game    models.Game
	sess    *session.Session
	watcher *live.Watcher // nil unless the session follows the feed
	stop    context.CancelFunc
}

// track hands a manual result to the watcher so its expiry timer follows it.
func (e entry) track(snap session.Snapshot) {
	if e.watcher != nil {
		e.watcher.Track(snap)
	}
}

// Server keeps sessions in memory. Each one is independent.
type Server struct {
	factory  Factory
	metrics  *metrics.Manager
	origins  []string
	now      func() time.Time
	feed     models.HistorySource
	liveOpts []live.Option
	ctx      context.Context
	cancel   context.CancelFunc
	logger   zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]entry
}

// NewServer creates a server around factory.
func NewServer(factory Factory, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		ctx:      ctx,
		cancel:   cancel,
		factory:  factory,
		origins:  []string{"*"},
		now:      time.Now,
		logger:   log.With().Str("component", "rest_api").Logger(),
		sessions: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           60 * 15,
	}))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/sessions", func(rr chi.Router) {
		rr.Post("/", s.createSession)
		rr.Route("/{id}", func(sr chi.Router) {
			sr.Get("/", s.getSession)
			sr.Delete("/", s.closeSession)
			sr.Post("/start", s.setStart)
			sr.Post("/entries", s.appendEntries)
			sr.Put("/entries/{period}", s.editEntry)
			sr.Post("/undo", s.undo)
			sr.Post("/reset", s.reset)
			sr.Post("/predict", s.predict)
			sr.Get("/export", s.exportPrediction)
		})
	})

	return r
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if req.Game == "" {
		req.Game = models.GameWinGo
	}
	if req.Game != models.GameWinGo && req.Game != models.GameBoxes {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w %q", ErrUnknownGame, req.Game))
		return
	}

	if req.Live && s.feed == nil {
		writeError(w, http.StatusBadRequest, ErrNoFeed)
		return
	}
	if req.Live && req.Game != models.GameWinGo {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: the feed only carries %s rounds", ErrUnknownGame, models.GameWinGo))
		return
	}

	sess, err := s.factory(req.Game)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	e := entry{game: req.Game, sess: sess}
	if req.Live {
		ctx, cancel := context.WithCancel(s.ctx)
		e.watcher = live.New(s.feed, sess, s.liveOpts...)
		e.stop = cancel
		go func() {
			if err := e.watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Str("session", sess.ID()).Msg("watcher stopped")
			}
		}()
	}

	s.mu.Lock()
	s.sessions[sess.ID()] = e
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.SessionOpened()
	}

	s.logger.Info().Str("session", sess.ID()).Str("game", string(req.Game)).Bool("live", req.Live).Msg("session opened")
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (entry, bool) {
	id := chi.URLParam(r, "id")
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w %q", ErrUnknownSession, id))
		return entry{}, false
	}
	return e, true
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e.sess.Expire(s.now()))
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w %q", ErrUnknownSession, id))
		return
	}

	if e.stop != nil {
		e.stop()
	}
	if s.metrics != nil {
		s.metrics.SessionClosed()
	}
	writeJSON(w, http.StatusOK, e.sess.Close())
}

// Close stops every feed watcher and disposes of all sessions.
func (s *Server) Close() {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.sessions {
		e.sess.Close()
		if s.metrics != nil {
			s.metrics.SessionClosed()
		}
		delete(s.sessions, id)
	}
}

func (s *Server) setStart(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.respond(w, e, http.StatusOK)(e.sess.SetStartPeriod(req.Period))
}

func (s *Server) appendEntries(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req appendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	outcomes := req.Outcomes
	if len(outcomes) == 0 {
		digits, err := session.ParseDigits(req.Digits)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		outcomes = digits
	}
	s.respond(w, e, http.StatusOK)(e.sess.Append(outcomes...))
}

func (s *Server) editEntry(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	period, err := strconv.ParseInt(chi.URLParam(r, "period"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %w", session.ErrUnknownPeriod, err))
		return
	}
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Outcome == nil {
		writeError(w, http.StatusBadRequest, session.ErrNoInput)
		return
	}
	s.respond(w, e, http.StatusOK)(e.sess.Edit(period, *req.Outcome))
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.respond(w, e, http.StatusOK)(e.sess.Undo())
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	snap := e.sess.Reset()
	e.track(snap)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	e.sess.Expire(s.now())
	s.respond(w, e, http.StatusOK)(e.sess.RequestPrediction())
}

func (s *Server) exportPrediction(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	snap := e.sess.Expire(s.now())
	text, err := export.ForPrediction(e.game, snap.Prediction)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

// respond adapts a session operation result to a response.
func (s *Server) respond(w http.ResponseWriter, e entry, status int) func(session.Snapshot, error) {
	return func(snap session.Snapshot, err error) {
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		e.track(snap)
		writeJSON(w, status, snap)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownPeriod):
		return http.StatusNotFound
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	case errors.Is(err, session.ErrNoInput),
		errors.Is(err, ErrNoFeed),
		errors.Is(err, session.ErrInvalidOutcome),
		errors.Is(err, session.ErrInvalidPeriod),
		errors.Is(err, session.ErrStartPeriod):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Message: session.UserMessage(err)})
}
