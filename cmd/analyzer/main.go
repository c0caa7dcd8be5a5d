package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/WinGoTrader/internal/api/wingo"
	"github.com/Alias1177/WinGoTrader/internal/baktest"
	"github.com/Alias1177/WinGoTrader/internal/config"
	"github.com/Alias1177/WinGoTrader/internal/export"
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
	log.Info().Msg("Starting WinGo analyzer")
	printConfig(cfg)

	if err := cfg.RequireFeed(); err != nil {
		log.Fatal().Err(err).Msg("Feed URL missing")
	}
	m := metrics.NewManager(metrics.WithMetricsEnabled(cfg.MetricsEnabled))
	defer pushMetrics(cfg, m)

	client, err := wingo.NewClient(cfg.FeedOptions(m))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create feed client")
	}

	history, err := client.FetchHistory(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch history")
	}
	if cfg.BacktestRounds > 0 && len(history) > cfg.BacktestRounds {
		history = history[:cfg.BacktestRounds]
	}

	runBacktesting(ctx, cfg, history)
	runLiveAnalysis(cfg, history, m)
}

// pushMetrics hands the run's counters to the Pushgateway, if one is set.
func pushMetrics(cfg *config.Config, m *metrics.Manager) {
	if cfg.PushGateway == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Push(ctx, cfg.PushGateway, "wingo_analyzer"); err != nil {
		log.Warn().Err(err).Msg("Failed to push metrics")
	}
}

func printConfig(cfg *config.Config) {
	log.Info().
		Str("Preset", cfg.Preset).
		Str("ColorRule", cfg.ColorRule).
		Bool("SwapColors", cfg.SwapColors).
		Int("MinHistory", cfg.MinHistory).
		Int("MinWindow", cfg.MinWindow).
		Int("MaxWindow", cfg.MaxWindow).
		Str("Projections", cfg.Projections).
		Bool("SuppressRepeats", cfg.SuppressRepeats).
		Int("Capacity", cfg.Capacity).
		Int("BacktestRounds", cfg.BacktestRounds).
		Msg("Configuration loaded")
}

// runBacktesting replays the fetched rounds through the WinGo arbiter.
func runBacktesting(ctx context.Context, cfg *config.Config, history []models.Entry) {
	log.Info().Int("rounds", len(history)).Msg("Running backtesting...")

	wingoCfg := *cfg
	wingoCfg.Game = models.GameWinGo
	engine, err := wingoCfg.NewEngine()
	if err != nil {
		log.Error().Err(err).Msg("Failed to build predictor")
		return
	}

	results, err := baktest.RunBacktest(ctx, engine, history, cfg.Capacity)
	if err != nil {
		log.Error().Err(err).Msg("Backtest failed")
		return
	}
	fmt.Println(results.Format())
}

// runLiveAnalysis predicts the round after the newest fetched one.
func runLiveAnalysis(cfg *config.Config, history []models.Entry, rec session.Recorder) {
	sess, err := cfg.NewSession(models.GameWinGo, session.WithRecorder(rec))
	if err != nil {
		log.Error().Err(err).Msg("Failed to create session")
		return
	}
	defer sess.Close()

	if _, err := sess.Replace(history); err != nil {
		log.Error().Err(err).Msg("Failed to load history")
		return
	}
	snap, err := sess.RequestPrediction()
	if err != nil {
		log.Error().Err(err).Msg("Prediction failed")
		return
	}

	fmt.Println("\n===== NEXT ROUND =====")
	text, err := export.ForPrediction(models.GameWinGo, snap.Prediction)
	if err != nil {
		fmt.Printf("No prediction: %s\n", snap.Prediction.Rationale)
		return
	}
	fmt.Println(text)
	fmt.Printf("Rule: %s (confidence %d)\n%s\n",
		snap.Prediction.Rule, snap.Prediction.Confidence, snap.Prediction.Rationale)
}
