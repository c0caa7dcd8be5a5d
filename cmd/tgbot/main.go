package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/WinGoTrader/internal/config"
	"github.com/Alias1177/WinGoTrader/internal/database"
	"github.com/Alias1177/WinGoTrader/internal/export"
	"github.com/Alias1177/WinGoTrader/internal/metrics"
	"github.com/Alias1177/WinGoTrader/internal/notify"
	"github.com/Alias1177/WinGoTrader/internal/session"
	"github.com/Alias1177/WinGoTrader/models"
)

const welcome = `Welcome to the WinGo predictor!
/game wingo or /game boxes picks the game.
/period 12345 sets the period of your first entry.
Send digits like 2378 to record results, oldest first.
/edit <period> <digit> fixes an entry.
/subscribe sends you a prediction with every broadcast.`

// Reply keyboard buttons
const (
	buttonPredict = "Predict"
	buttonCopy    = "Copy"
	buttonUndo    = "Undo"
	buttonReset   = "Reset"
)

type chat struct {
	game models.Game
	sess *session.Session
}

type bot struct {
	api      *tgbotapi.BotAPI
	cfg      *config.Config
	store    models.SubscriberStore
	notifier *notify.Telegram
	metrics  *metrics.Manager
	chats    map[int64]*chat
	logger   zerolog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cfg.SetupLogging()
	if err := cfg.RequireTelegram(); err != nil {
		log.Fatal().Err(err).Msg("Telegram bot token missing")
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}
	log.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")

	m := metrics.NewManager(metrics.WithMetricsEnabled(cfg.MetricsEnabled))
	if cfg.MetricsEnabled {
		go serveMetrics(ctx, cfg.HTTPAddr, m)
	}

	b := &bot{
		api:      api,
		cfg:      cfg,
		notifier: notify.NewTelegram(api, 0, notify.WithObserver(m)),
		metrics:  m,
		chats:    make(map[int64]*chat),
		logger:   log.With().Str("component", "tgbot").Logger(),
	}

	if cfg.DBHost != "" {
		db, err := database.New(ctx, cfg.DBParams())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer db.Close()
		b.store = db
	} else {
		log.Warn().Msg("No database configured, /subscribe is disabled")
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := api.GetUpdatesChan(updateConfig)

	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message != nil {
			b.handleMessage(ctx, update.Message)
		}
	}
	for _, c := range b.chats {
		c.sess.Close()
	}
	log.Info().Msg("Bot stopped")
}

// serveMetrics exposes /metrics until ctx ends.
func serveMetrics(ctx context.Context, addr string, m *metrics.Manager) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Metrics shutdown failed")
		}
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}

func (b *bot) chatFor(chatID int64) (*chat, error) {
	if c, ok := b.chats[chatID]; ok {
		return c, nil
	}
	return b.newChat(chatID, b.cfg.Game)
}

// newChat replaces the session of chatID with an empty one for game.
func (b *bot) newChat(chatID int64, game models.Game) (*chat, error) {
	sess, err := b.cfg.NewSession(game,
		session.WithID(strconv.FormatInt(chatID, 10)),
		session.WithRecorder(b.metrics),
	)
	if err != nil {
		return nil, err
	}
	if old, ok := b.chats[chatID]; ok {
		old.sess.Close()
	} else {
		b.metrics.SessionOpened()
	}
	c := &chat{game: game, sess: sess}
	b.chats[chatID] = c
	return c, nil
}

func (b *bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	text := strings.TrimSpace(message.Text)
	command, args := text, ""
	if i := strings.IndexByte(text, ' '); i > 0 {
		command, args = text[:i], strings.TrimSpace(text[i+1:])
	}

	if command == "/game" {
		c, err := b.newChat(chatID, models.Game(strings.ToLower(args)))
		if err != nil {
			b.reply(chatID, "Unknown game. Use /game wingo or /game boxes.")
			return
		}
		b.reply(chatID, fmt.Sprintf("Playing %s. History cleared.", c.game))
		return
	}

	c, err := b.chatFor(chatID)
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to create session")
		b.reply(chatID, "Sorry, there was an error. Please try again later.")
		return
	}
	c.sess.Expire(time.Now())

	switch command {
	case "/start", "/help":
		b.reply(chatID, welcome)
	case "/period":
		period, err := strconv.ParseInt(args, 10, 64)
		if err != nil {
			b.fail(chatID, session.ErrInvalidPeriod)
			return
		}
		b.send(chatID, c)(c.sess.SetStartPeriod(period))
	case "/edit":
		fields := strings.Fields(args)
		if len(fields) != 2 {
			b.reply(chatID, "Use /edit <period> <digit>.")
			return
		}
		period, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			b.fail(chatID, session.ErrUnknownPeriod)
			return
		}
		outcome, err := strconv.Atoi(fields[1])
		if err != nil {
			b.fail(chatID, session.ErrInvalidOutcome)
			return
		}
		b.send(chatID, c)(c.sess.Edit(period, outcome))
	case "/undo", buttonUndo:
		b.send(chatID, c)(c.sess.Undo())
	case "/reset", buttonReset:
		b.send(chatID, c)(c.sess.Reset(), nil)
	case "/predict", buttonPredict:
		b.send(chatID, c)(c.sess.RequestPrediction())
	case "/copy", buttonCopy:
		b.copyPrediction(ctx, chatID, c)
	case "/subscribe":
		b.subscribe(ctx, chatID, c.game)
	case "/unsubscribe":
		b.unsubscribe(ctx, chatID)
	default:
		digits, err := session.ParseDigits(text)
		if err != nil {
			b.fail(chatID, err)
			return
		}
		snap, err := c.sess.Append(digits...)
		if err != nil {
			b.fail(chatID, err)
			return
		}
		b.reply(chatID, "Recorded: "+session.FormatDigits(text)+"\n"+render(c.game, snap))
	}
}

func (b *bot) copyPrediction(ctx context.Context, chatID int64, c *chat) {
	err := export.Deliver(ctx, b.notifier, chatID, c.game, c.sess.Snapshot().Prediction)
	switch {
	case err == nil:
		b.reply(chatID, export.SentMessage)
	case errors.Is(err, export.ErrNothingToExport):
		b.reply(chatID, "There is no prediction to copy yet.")
	default:
		b.reply(chatID, export.FailedMessage)
	}
}

func (b *bot) subscribe(ctx context.Context, chatID int64, game models.Game) {
	if b.store == nil {
		b.reply(chatID, "Subscriptions are not available right now.")
		return
	}
	if err := b.store.Subscribe(ctx, chatID, game); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Error creating subscription")
		b.reply(chatID, "Sorry, there was an error. Please try again later.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Subscribed to %s predictions.", game))
}

func (b *bot) unsubscribe(ctx context.Context, chatID int64) {
	if b.store == nil {
		b.reply(chatID, "Subscriptions are not available right now.")
		return
	}
	if err := b.store.Unsubscribe(ctx, chatID); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Error removing subscription")
		b.reply(chatID, "Sorry, there was an error. Please try again later.")
		return
	}
	b.reply(chatID, "Unsubscribed.")
}

// send returns a callback that renders the outcome of a session call.
func (b *bot) send(chatID int64, c *chat) func(session.Snapshot, error) {
	return func(snap session.Snapshot, err error) {
		if err != nil {
			b.fail(chatID, err)
			return
		}
		b.reply(chatID, render(c.game, snap))
	}
}

func (b *bot) fail(chatID int64, err error) {
	b.logger.Debug().Err(err).Int64("chat_id", chatID).Msg("input rejected")
	b.reply(chatID, session.UserMessage(err))
}

func (b *bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonPredict),
			tgbotapi.NewKeyboardButton(buttonCopy),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonUndo),
			tgbotapi.NewKeyboardButton(buttonReset),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("reply failed")
	}
}

func render(game models.Game, snap session.Snapshot) string {
	var sb strings.Builder
	if snap.Message != "" {
		sb.WriteString(snap.Message + "\n")
	}
	if snap.Warning != "" {
		sb.WriteString("⚠️ " + snap.Warning + "\n")
	}
	p := snap.Prediction
	switch {
	case snap.State == session.StateDisplayed:
		unit := "Period"
		if game == models.GameBoxes {
			unit = "Trade"
		}
		fmt.Fprintf(&sb, "%s %s: %s\n%s\n", unit, p.IssuedFor, p.Label, p.Rationale)
	case p.Status == models.StatusInsufficient:
		sb.WriteString(p.Rationale + "\n")
	case p.Status == models.StatusNoPattern, p.Status == models.StatusSuppressed:
		sb.WriteString("No prediction for now.\n")
	}
	fmt.Fprintf(&sb, "Wins %d · Losses %d · Streak %d", snap.Wins, snap.Losses, snap.Streak)
	if snap.Celebrate {
		sb.WriteString(" 🎉")
	}
	return sb.String()
}
