package models

import (
	"context"
	"time"
)

// HistorySource supplies a newest-first snapshot of game rounds.
type HistorySource interface {
	FetchHistory(ctx context.Context) ([]Entry, error)
}

// Notifier delivers an exported prediction message to a chat.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Subscriber is a chat that receives broadcast predictions.
type Subscriber struct {
	ChatID    int64     `json:"chat_id"`
	Game      Game      `json:"game"`
	CreatedAt time.Time `json:"created_at"`
}

// SubscriberStore keeps the delivery targets of the broadcast command.
type SubscriberStore interface {
	Subscribe(ctx context.Context, chatID int64, game Game) error
	Unsubscribe(ctx context.Context, chatID int64) error
	Subscribers(ctx context.Context) ([]Subscriber, error)
}
