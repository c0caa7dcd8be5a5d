package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/WinGoTrader/internal/api/rest"
	"github.com/Alias1177/WinGoTrader/internal/api/wingo"
	"github.com/Alias1177/WinGoTrader/internal/config"
	"github.com/Alias1177/WinGoTrader/internal/live"
	"github.com/Alias1177/WinGoTrader/internal/metrics"
	"github.com/Alias1177/WinGoTrader/internal/session"
	"github.com/Alias1177/WinGoTrader/models"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cfg.SetupLogging()

	m := metrics.NewManager(metrics.WithMetricsEnabled(cfg.MetricsEnabled))

	factory := func(game models.Game) (*session.Session, error) {
		return cfg.NewSession(game, session.WithRecorder(m))
	}
	opts := []rest.Option{
		rest.WithMetrics(m),
		rest.WithAllowedOrigins(cfg.AllowedOrigins()),
	}
	if cfg.FeedURL != "" {
		client, err := wingo.NewClient(cfg.FeedOptions(m))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create feed client")
		}
		opts = append(opts, rest.WithFeed(client, live.WithInterval(cfg.PollInterval)))
	} else {
		log.Warn().Msg("No feed configured, live sessions are disabled")
	}
	server := rest.NewServer(factory, opts...)
	defer server.Close()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutdown signal received, stopping server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Str("game", string(cfg.Game)).Msg("Starting REST server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
