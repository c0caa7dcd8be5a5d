package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/WinGoTrader/internal/api/wingo"
	"github.com/Alias1177/WinGoTrader/internal/config"
	"github.com/Alias1177/WinGoTrader/internal/database"
	"github.com/Alias1177/WinGoTrader/internal/export"
	"github.com/Alias1177/WinGoTrader/internal/metrics"
	"github.com/Alias1177/WinGoTrader/internal/notify"
	"github.com/Alias1177/WinGoTrader/internal/session"
	"github.com/Alias1177/WinGoTrader/models"
)

// broadcast fetches the feed once, predicts the next WinGo round and sends
// the export message to every subscriber. The feed only carries WinGo
// digits, so box subscribers are skipped.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cfg.SetupLogging()
	if err := cfg.RequireFeed(); err != nil {
		log.Fatal().Err(err).Msg("Feed URL missing")
	}
	if err := cfg.RequireTelegram(); err != nil {
		log.Fatal().Err(err).Msg("Telegram bot token missing")
	}

	db, err := database.New(ctx, cfg.DBParams())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	m := metrics.NewManager(metrics.WithMetricsEnabled(cfg.MetricsEnabled))
	defer pushMetrics(cfg, m)

	client, err := wingo.NewClient(cfg.FeedOptions(m))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create feed client")
	}

	prediction, err := predictNext(ctx, cfg, client, m)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to predict the next round")
	}
	if !prediction.Found() {
		log.Info().Str("status", string(prediction.Status)).Str("reason", prediction.Rationale).Msg("Nothing to broadcast")
		return
	}

	subs, err := db.Subscribers(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get subscribers from database")
	}
	log.Info().Int("subscribers", len(subs)).Str("period", prediction.IssuedFor).Str("prediction", prediction.Label).Msg("Broadcasting")

	render := func(game models.Game) (string, bool) {
		if game != models.GameWinGo {
			return "", false
		}
		text, err := export.ForPrediction(game, prediction)
		return text, err == nil
	}
	res, err := notify.Broadcast(ctx, notify.NewTelegram(api, 0, notify.WithObserver(m)), subs, render)
	if err != nil {
		log.Error().Err(err).Msg("Broadcast interrupted")
	}
	log.Info().
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Msg("Broadcast completed")
}

func predictNext(ctx context.Context, cfg *config.Config, source models.HistorySource, rec session.Recorder) (models.Prediction, error) {
	entries, err := source.FetchHistory(ctx)
	if err != nil {
		return models.Prediction{}, err
	}
	sess, err := cfg.NewSession(models.GameWinGo, session.WithRecorder(rec))
	if err != nil {
		return models.Prediction{}, err
	}
	defer sess.Close()

	if _, err := sess.Replace(entries); err != nil {
		return models.Prediction{}, err
	}
	snap, err := sess.RequestPrediction()
	if err != nil {
		return models.Prediction{}, err
	}
	return snap.Prediction, nil
}

// pushMetrics hands the run's counters to the Pushgateway, if one is set.
func pushMetrics(cfg *config.Config, m *metrics.Manager) {
	if cfg.PushGateway == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Push(ctx, cfg.PushGateway, "wingo_broadcast"); err != nil {
		log.Warn().Err(err).Msg("Failed to push metrics")
	}
}
