// Package wingo reads the round history of the one-minute WinGo game.
package wingo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	httpClient "github.com/Alias1177/WinGoTrader/internal/platform/http"
	"github.com/Alias1177/WinGoTrader/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Both errors are retryable: the caller keeps its last good history and tries on the next tick.
var (
	ErrFeed     = errors.New("history feed unavailable")
	ErrPayload  = errors.New("malformed history payload")
	ErrEndpoint = errors.New("history feed url not configured")
)

// Observer is told about every fetch. The metrics package implements it.
type Observer interface {
	ObserveFetch(err error, elapsed time.Duration)
}

// Client is the WinGo history feed client
type Client struct {
	url        string
	httpClient *httpClient.Client
	observer   Observer
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new feed client
type ClientOptions struct {
	URL             string
	RequestTimeout  time.Duration
	RequestsPerSec  float64
	MaxRetries      int
	MaxRetryTimeout time.Duration
	Observer        Observer
}

// NewClient creates a new feed client
func NewClient(options ClientOptions) (*Client, error) {
	if strings.TrimSpace(options.URL) == "" {
		return nil, ErrEndpoint
	}
	httpOpts := httpClient.ClientOptions{
		Timeout:         options.RequestTimeout,
		RequestsPerSec:  options.RequestsPerSec,
		MaxRetries:      options.MaxRetries,
		MaxRetryTimeout: options.MaxRetryTimeout,
	}
	if httpOpts.Timeout == 0 {
		httpOpts.Timeout = 10 * time.Second
	}
	if httpOpts.RequestsPerSec == 0 {
		httpOpts.RequestsPerSec = 1
	}
	if httpOpts.MaxRetries == 0 {
		httpOpts.MaxRetries = 3
	}

	return &Client{
		url:        options.URL,
		httpClient: httpClient.NewClient(httpOpts),
		observer:   options.Observer,
		logger:     log.With().Str("component", "wingo_feed").Logger(),
	}, nil
}

type historyResponse struct {
	Data struct {
		List []historyItem `json:"list"`
	} `json:"data"`
}

type historyItem struct {
	Number      json.RawMessage `json:"number"` // a digit, quoted or not
	IssueNumber string          `json:"issueNumber"`
}

// FetchHistory returns the newest-first rounds published by the feed.
// Entries without a single digit or an issue number are skipped.
func (c *Client) FetchHistory(ctx context.Context) (entries []models.Entry, err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveFetch(err, time.Since(start))
		}
	}()

	var resp historyResponse
	if err := c.httpClient.GetJSON(ctx, c.url, &resp); err != nil {
		var decodeErr *httpClient.DecodeError
		if errors.As(err, &decodeErr) {
			return nil, fmt.Errorf("%w: %w", ErrPayload, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrFeed, err)
	}

	entries, skipped := parse(resp.Data.List)
	if skipped > 0 {
		c.logger.Warn().Int("skipped", skipped).Msg("ignored invalid feed entries")
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no usable rounds in %d entries", ErrPayload, len(resp.Data.List))
	}

	c.logger.Debug().Int("rounds", len(entries)).Str("newest", entries[0].Issue).Msg("history fetched")
	return entries, nil
}

// parse converts feed items and reports how many were rejected.
func parse(items []historyItem) ([]models.Entry, int) {
	entries := make([]models.Entry, 0, len(items))
	skipped := 0
	for _, it := range items {
		issue := strings.TrimSpace(it.IssueNumber)
		n, ok := digit(it.Number)
		if issue == "" || !ok {
			skipped++
			continue
		}
		period, _ := strconv.ParseInt(issue, 10, 64)
		entries = append(entries, models.Entry{Outcome: n, Period: period, Issue: issue})
	}
	return entries, skipped
}

// digit accepts exactly one character '0'..'9', quoted or bare. Signs,
// padding and longer numbers are rejected.
func digit(raw json.RawMessage) (int, bool) {
	v := strings.Trim(string(raw), `"`)
	if len(v) != 1 || v[0] < '0' || v[0] > '9' {
		return 0, false
	}
	return int(v[0] - '0'), true
}
