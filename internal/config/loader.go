package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/WinGoTrader/models"
)

// Environment names read by Load.
const (
	EnvPrefix     = "WINGO_"
	EnvConfigFile = "WINGO_CONFIG"
)

// Load builds a Config by layering, lowest precedence first:
//  1. defaults (New)
//  2. a YAML file named by WINGO_CONFIG
//  3. WINGO_* environment variables, including those from a .env file
func Load(_ context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// WINGO_MIN_HISTORY -> min_history
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values no component can default on its own.
func (c *Config) Validate() error {
	switch c.Game {
	case models.GameWinGo, models.GameBoxes:
	default:
		return fmt.Errorf("%w: unknown game %q", ErrInvalidConfig, c.Game)
	}
	if c.Capacity < 0 {
		return fmt.Errorf("%w: capacity %d", ErrInvalidConfig, c.Capacity)
	}
	if c.PredictionTTL <= 0 {
		return fmt.Errorf("%w: prediction ttl %s", ErrInvalidConfig, c.PredictionTTL)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval %s", ErrInvalidConfig, c.PollInterval)
	}
	return nil
}

// RequireFeed reports a missing feed url for commands that poll it.
func (c *Config) RequireFeed() error {
	if c.FeedURL == "" {
		return fmt.Errorf("%w: %sFEED_URL", ErrMissingValue, EnvPrefix)
	}
	return nil
}

// RequireTelegram reports a missing bot token.
func (c *Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("%w: %sTELEGRAM_TOKEN", ErrMissingValue, EnvPrefix)
	}
	return nil
}
