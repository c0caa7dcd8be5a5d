// Package database stores broadcast subscribers in PostgreSQL.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/Alias1177/WinGoTrader/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
	now func() time.Time
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq keyword connection string.
func (p ConnectionParams) DSN() string {
	port, sslMode := p.Port, p.SSLMode
	if port == "" {
		port = "5432"
	}
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, port, p.User, p.Password, p.DBName, sslMode,
	)
}

// New creates a new database connection and makes sure the schema exists.
func New(ctx context.Context, params ConnectionParams) (*DB, error) {
	db, err := sql.Open("postgres", params.DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &DB{DB: db, now: time.Now}, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS wingo_subscribers (
			chat_id BIGINT PRIMARY KEY,
			game TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

// Subscribe adds chatID or moves it to another game.
func (db *DB) Subscribe(ctx context.Context, chatID int64, game models.Game) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO wingo_subscribers (chat_id, game, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id)
		DO UPDATE SET game = EXCLUDED.game
	`, chatID, string(game), db.now().UTC())
	if err != nil {
		return fmt.Errorf("subscribe %d: %w", chatID, err)
	}
	return nil
}

// Unsubscribe removes chatID. Unknown chats are not an error.
func (db *DB) Unsubscribe(ctx context.Context, chatID int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM wingo_subscribers WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("unsubscribe %d: %w", chatID, err)
	}
	return nil
}

// Subscribers lists every subscriber, oldest first.
func (db *DB) Subscribers(ctx context.Context) ([]models.Subscriber, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT chat_id, game, created_at
		FROM wingo_subscribers
		ORDER BY created_at, chat_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscriber
	for rows.Next() {
		var sub models.Subscriber
		var game string
		if err := rows.Scan(&sub.ChatID, &game, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		sub.Game = models.Game(game)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

var _ models.SubscriberStore = (*DB)(nil)
