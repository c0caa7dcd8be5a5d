package config

import (
	"fmt"

	"github.com/Alias1177/WinGoTrader/internal/analyze"
	"github.com/Alias1177/WinGoTrader/internal/api/wingo"
	"github.com/Alias1177/WinGoTrader/internal/boxes"
	"github.com/Alias1177/WinGoTrader/internal/calculate"
	"github.com/Alias1177/WinGoTrader/internal/database"
	"github.com/Alias1177/WinGoTrader/internal/session"
	"github.com/Alias1177/WinGoTrader/models"
)

// ArbiterConfig translates the WinGo keys.
func (c *Config) ArbiterConfig() (analyze.Config, error) {
	cfg := analyze.DefaultConfig()

	preset, err := analyze.ParsePreset(c.Preset)
	if err != nil {
		return cfg, err
	}
	rule, err := calculate.ParseColorRule(c.ColorRule)
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	var projections []calculate.Projection
	for _, name := range splitList(c.Projections) {
		p, err := calculate.ParseProjection(name)
		if err != nil {
			return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		projections = append(projections, p)
	}

	cfg.Preset = preset
	cfg.ColorRule = rule
	cfg.SwapColors = c.SwapColors
	cfg.MinHistory = c.MinHistory
	cfg.MinWindow = c.MinWindow
	cfg.MaxWindow = c.MaxWindow
	cfg.SuppressRepeats = c.SuppressRepeats
	if len(projections) > 0 {
		cfg.Projections = projections
	}
	return cfg, nil
}

// BoxConfig translates the box_* keys.
func (c *Config) BoxConfig() (boxes.Config, error) {
	tie, err := boxes.ParseTieBreak(c.BoxTieBreak)
	if err != nil {
		return boxes.Config{}, err
	}
	return boxes.Config{
		Window:     c.BoxWindow,
		MinHistory: c.BoxMinHistory,
		TieBreak:   tie,
		PostLoss:   c.BoxPostLoss,
		Patterns:   c.BoxPatterns,
	}, nil
}

// SessionConfig translates the session keys. Box trades are numbered from 1
// without asking for a starting period.
func (c *Config) SessionConfig() session.Config {
	return session.Config{
		Capacity:     c.Capacity,
		TTL:          c.PredictionTTL,
		AutoPredict:  c.AutoPredict,
		RequireStart: c.Game != models.GameBoxes,
		CelebrateAt:  c.CelebrateAt,
	}
}

// NewEngine builds the predictor of the configured game.
func (c *Config) NewEngine() (session.Engine, error) {
	if c.Game == models.GameBoxes {
		cfg, err := c.BoxConfig()
		if err != nil {
			return nil, err
		}
		p, err := boxes.New(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	cfg, err := c.ArbiterConfig()
	if err != nil {
		return nil, err
	}
	a, err := analyze.NewArbiter(cfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// NewSession builds a session for game with the engine and buffer settings
// of c. An empty game uses c.Game.
func (c *Config) NewSession(game models.Game, opts ...session.Option) (*session.Session, error) {
	cc := *c
	if game != "" {
		cc.Game = game
	}
	if err := cc.Validate(); err != nil {
		return nil, err
	}
	engine, err := cc.NewEngine()
	if err != nil {
		return nil, err
	}
	return session.New(engine, cc.SessionConfig(), opts...), nil
}

// FeedOptions maps the feed keys onto the client options. observer, usually
// the metrics manager, may be nil.
func (c *Config) FeedOptions(observer wingo.Observer) wingo.ClientOptions {
	return wingo.ClientOptions{
		URL:            c.FeedURL,
		RequestTimeout: c.FeedTimeout,
		RequestsPerSec: c.FeedRate,
		MaxRetries:     c.FeedRetries,
		Observer:       observer,
	}
}

// DBParams returns the Postgres connection keys.
func (c *Config) DBParams() database.ConnectionParams {
	return database.ConnectionParams{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		DBName:   c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}
