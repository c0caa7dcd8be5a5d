// Package config loads process configuration.
package config

import (
	"strings"
	"time"

	"github.com/Alias1177/WinGoTrader/models"
)

// Config holds all application configuration
type Config struct {
	LogLevel string      `koanf:"log_level"`
	Game     models.Game `koanf:"game"`

	// WinGo arbiter
	Preset          string `koanf:"preset"`
	ColorRule       string `koanf:"color_rule"`
	SwapColors      bool   `koanf:"swap_colors"`
	MinHistory      int    `koanf:"min_history"`
	MinWindow       int    `koanf:"min_window"`
	MaxWindow       int    `koanf:"max_window"`
	Projections     string `koanf:"projections"` // comma separated: color,size,value
	SuppressRepeats bool   `koanf:"suppress_repeats"`

	// Box predictor
	BoxWindow     int    `koanf:"box_window"`
	BoxMinHistory int    `koanf:"box_min_history"`
	BoxTieBreak   string `koanf:"box_tie_break"`
	BoxPostLoss   bool   `koanf:"box_post_loss"`
	BoxPatterns   bool   `koanf:"box_patterns"`

	// Session
	Capacity      int           `koanf:"capacity"`
	AutoPredict   bool          `koanf:"auto_predict"`
	PredictionTTL time.Duration `koanf:"prediction_ttl"`
	CelebrateAt   int           `koanf:"celebrate_at"`

	// History feed
	FeedURL        string        `koanf:"feed_url"`
	FeedTimeout    time.Duration `koanf:"feed_timeout"`
	FeedRate       float64       `koanf:"feed_rate"`
	FeedRetries    int           `koanf:"feed_retries"`
	PollInterval   time.Duration `koanf:"poll_interval"`
	BacktestRounds int           `koanf:"backtest_rounds"`

	// Outer surfaces
	HTTPAddr       string `koanf:"http_addr"`
	CORSOrigins    string `koanf:"cors_origins"`
	MetricsEnabled bool   `koanf:"metrics_enabled"`
	PushGateway    string `koanf:"pushgateway_url"` // one-shot commands push metrics here
	TelegramToken  string `koanf:"telegram_token"`

	// Postgres subscriber store
	DBHost     string `koanf:"db_host"`
	DBPort     string `koanf:"db_port"`
	DBUser     string `koanf:"db_user"`
	DBPassword string `koanf:"db_password"`
	DBName     string `koanf:"db_name"`
	DBSSLMode  string `koanf:"db_sslmode"`
}

// New returns the defaults every other layer overrides.
func New() *Config {
	return &Config{
		LogLevel: "info",
		Game:     models.GameWinGo,

		Preset:          "pattern",
		ColorRule:       "purple",
		MinHistory:      10,
		MinWindow:       4,
		MaxWindow:       10,
		Projections:     "color,size",
		SuppressRepeats: true,

		BoxWindow:     5,
		BoxMinHistory: 5,
		BoxTieBreak:   "exclude-last",
		BoxPatterns:   true,

		Capacity:      20,
		AutoPredict:   true,
		PredictionTTL: 10 * time.Second,
		CelebrateAt:   10,

		FeedTimeout:    10 * time.Second,
		FeedRate:       1,
		FeedRetries:    3,
		PollInterval:   models.RoundDuration,
		BacktestRounds: 200,

		HTTPAddr:       ":8080",
		CORSOrigins:    "*",
		MetricsEnabled: true,

		DBPort:    "5432",
		DBSSLMode: "disable",
	}
}

// AllowedOrigins splits CORSOrigins.
func (c *Config) AllowedOrigins() []string {
	return splitList(c.CORSOrigins)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
