// Package notify delivers exported predictions to Telegram chats.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Alias1177/WinGoTrader/models"
)

// Telegram allows about 30 messages per second per bot.
const defaultMessagesPerSec = 20

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Observer is told about every message handed to Telegram. The metrics
// package implements it.
type Observer interface {
	ObserveDelivery(err error)
}

// Option customises a Telegram notifier.
type Option func(*Telegram)

// WithObserver reports each delivery attempt to o.
func WithObserver(o Observer) Option {
	return func(t *Telegram) { t.observer = o }
}

// Telegram is a models.Notifier backed by a bot.
type Telegram struct {
	bot      Sender
	limiter  *rate.Limiter
	observer Observer
	logger   zerolog.Logger
}

// NewTelegram wraps bot. messagesPerSec <= 0 uses the default pace.
func NewTelegram(bot Sender, messagesPerSec float64, opts ...Option) *Telegram {
	if messagesPerSec <= 0 {
		messagesPerSec = defaultMessagesPerSec
	}
	t := &Telegram{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(messagesPerSec), 1),
		logger:  log.With().Str("component", "telegram_notifier").Logger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send posts text to chatID as plain text.
func (t *Telegram) Send(ctx context.Context, chatID int64, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := t.bot.Send(msg)
	if t.observer != nil {
		t.observer.ObserveDelivery(err)
	}
	if err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	t.logger.Debug().Int64("chat_id", chatID).Msg("message sent")
	return nil
}

// Result summarises a broadcast.
type Result struct {
	Sent    int
	Failed  int
	Skipped int
}

// Broadcast sends each subscriber the message rendered for its game. render
// returns false when there is nothing to send for a game.
func Broadcast(ctx context.Context, n models.Notifier, subs []models.Subscriber, render func(models.Game) (string, bool)) (Result, error) {
	var res Result
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		text, ok := render(sub.Game)
		if !ok {
			res.Skipped++
			continue
		}
		if err := n.Send(ctx, sub.ChatID, text); err != nil {
			log.Warn().Err(err).Int64("chat_id", sub.ChatID).Msg("broadcast delivery failed")
			res.Failed++
			continue
		}
		res.Sent++
	}
	return res, nil
}

var _ models.Notifier = (*Telegram)(nil)
