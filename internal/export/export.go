// Package export renders predictions as the shareable text block and hands
// it to a notifier.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Alias1177/WinGoTrader/models"
	"github.com/rs/zerolog/log"
)

var (
	ErrNothingToExport = errors.New("no prediction to export")
	ErrDelivery        = errors.New("failed to deliver prediction")
)

const (
	SentMessage   = "Prediction copied!"
	FailedMessage = "Failed to copy. The message could not be delivered."
)

// Message renders the WinGo template for period and label.
func Message(period, label string) string {
	var b strings.Builder
	b.WriteString("╭⚬──────────────⚬╮\n")
	b.WriteString("│ ....⭐ 1 MinWinGo ⭐....\n")
	b.WriteString("│⚬───────────────⚬\n")
	b.WriteString("│🎯WINGO : 1MinWinGo\n")
	fmt.Fprintf(&b, "│⏳PERIOD : %s\n", period)
	fmt.Fprintf(&b, "│🔮PREDICTION : %s\n", label)
	b.WriteString("╰⚬──────────────⚬╯")
	return b.String()
}

// BoxMessage renders the original-games template for the trade after trade.
func BoxMessage(trade, label string) string {
	var b strings.Builder
	b.WriteString("╭⚬──────────────⚬╮\n")
	b.WriteString("│ ....💣 MINES BOXES 💣....\n")
	b.WriteString("│⚬───────────────⚬\n")
	fmt.Fprintf(&b, "│⏳TRADE : %s\n", trade)
	fmt.Fprintf(&b, "│🛡️SAFE BOX : %s\n", label)
	b.WriteString("╰⚬──────────────⚬╯")
	return b.String()
}

// ForPrediction picks the template of game. Only ready predictions export.
func ForPrediction(game models.Game, p models.Prediction) (string, error) {
	if !p.Found() {
		return "", ErrNothingToExport
	}
	if game == models.GameBoxes {
		return BoxMessage(p.IssuedFor, p.Label), nil
	}
	return Message(p.IssuedFor, p.Label), nil
}

// Deliver exports p and sends it to chatID. A failure is only reported;
// it never touches the session the prediction came from.
func Deliver(ctx context.Context, n models.Notifier, chatID int64, game models.Game, p models.Prediction) error {
	text, err := ForPrediction(game, p)
	if err != nil {
		return err
	}
	if err := n.Send(ctx, chatID, text); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Str("prediction", p.ID).Msg("export delivery failed")
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	return nil
}
