package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/WinGoTrader/internal/api/wingo"
	"github.com/Alias1177/WinGoTrader/internal/calculate"
	"github.com/Alias1177/WinGoTrader/internal/config"
	"github.com/Alias1177/WinGoTrader/internal/export"
	"github.com/Alias1177/WinGoTrader/internal/live"
	"github.com/Alias1177/WinGoTrader/internal/metrics"
	"github.com/Alias1177/WinGoTrader/internal/session"
	"github.com/Alias1177/WinGoTrader/models"
)

const help = `Commands:
  start <period>        set the period of the first entry
  add <digits>          record outcomes, oldest first ("2378" or "2 3 7 8")
  edit <period> <digit> correct one entry
  undo                  drop the newest entry
  reset                 clear everything
  predict               show a prediction
  copy                  print the prediction message
  show                  print the history
  live                  follow the feed until interrupted
  quit`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cfg.SetupLogging()

	m := metrics.NewManager(metrics.WithMetricsEnabled(cfg.MetricsEnabled))
	defer pushMetrics(cfg, m)

	sess, err := cfg.NewSession("", session.WithRecorder(m))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session")
	}
	defer sess.Close()

	rule, err := calculate.ParseColorRule(cfg.ColorRule)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid color rule")
	}

	t := &terminal{cfg: cfg, sess: sess, rule: rule, metrics: m, out: os.Stdout}
	fmt.Fprintf(t.out, "%s predictor ready. Type help for commands.\n", cfg.Game)
	t.run(ctx, os.Stdin)
}

type terminal struct {
	cfg     *config.Config
	sess    *session.Session
	rule    calculate.ColorRule
	metrics *metrics.Manager
	out     io.Writer
}

// pushMetrics hands the run's counters to the Pushgateway, if one is set.
func pushMetrics(cfg *config.Config, m *metrics.Manager) {
	if cfg.PushGateway == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Push(ctx, cfg.PushGateway, "wingo_terminal"); err != nil {
		log.Warn().Err(err).Msg("Failed to push metrics")
	}
}

func (t *terminal) run(ctx context.Context, in io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Fprint(t.out, "> ")
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !t.handle(ctx, line) {
				return
			}
		}
	}
}

func (t *terminal) handle(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	args := strings.Join(fields[1:], " ")

	// Expiry is only checked when the user comes back.
	t.sess.Expire(time.Now())

	switch strings.ToLower(fields[0]) {
	case "start":
		period, err := strconv.ParseInt(args, 10, 64)
		if err != nil {
			t.fail(session.ErrInvalidPeriod)
			return true
		}
		t.print(t.sess.SetStartPeriod(period))
	case "add":
		digits, err := session.ParseDigits(args)
		if err != nil {
			t.fail(err)
			return true
		}
		snap, err := t.sess.Append(digits...)
		if err == nil {
			fmt.Fprintln(t.out, "Recorded: "+session.FormatDigits(args))
		}
		t.print(snap, err)
	case "edit":
		if len(fields) != 3 {
			t.fail(session.ErrNoInput)
			return true
		}
		period, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			t.fail(session.ErrInvalidPeriod)
			return true
		}
		outcome, err := strconv.Atoi(fields[2])
		if err != nil {
			t.fail(session.ErrInvalidOutcome)
			return true
		}
		t.print(t.sess.Edit(period, outcome))
	case "undo":
		t.print(t.sess.Undo())
	case "reset":
		t.print(t.sess.Reset(), nil)
	case "predict":
		t.print(t.sess.RequestPrediction())
	case "copy":
		text, err := export.ForPrediction(t.cfg.Game, t.sess.Snapshot().Prediction)
		if err != nil {
			fmt.Fprintln(t.out, "Nothing to copy yet.")
			return true
		}
		fmt.Fprintln(t.out, text)
	case "show":
		t.show(t.sess.Snapshot())
	case "live":
		t.live(ctx)
	case "help":
		fmt.Fprintln(t.out, help)
	case "quit", "exit":
		return false
	default:
		fmt.Fprintln(t.out, "Unknown command. Type help for commands.")
	}
	return true
}

// live follows the feed until ctx ends. Manual entry is off meanwhile.
func (t *terminal) live(ctx context.Context) {
	if err := t.cfg.RequireFeed(); err != nil {
		t.fail(err)
		return
	}
	var observer wingo.Observer
	if t.metrics != nil {
		observer = t.metrics
	}
	client, err := wingo.NewClient(t.cfg.FeedOptions(observer))
	if err != nil {
		t.fail(err)
		return
	}

	watcher := live.New(client, t.sess,
		live.WithInterval(t.cfg.PollInterval),
		live.OnUpdate(func(snap session.Snapshot) { t.print(snap, nil) }),
		live.OnError(func(err error) {
			fmt.Fprintln(t.out, "Could not reach the game feed. Retrying next round.")
			log.Debug().Err(err).Msg("feed fetch failed")
		}),
	)
	fmt.Fprintln(t.out, "Following the feed. Press Ctrl+C to stop.")
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		t.fail(err)
	}
}

func (t *terminal) print(snap session.Snapshot, err error) {
	if err != nil {
		t.fail(err)
		return
	}
	if snap.Message != "" {
		fmt.Fprintln(t.out, snap.Message)
	}
	if snap.Warning != "" {
		fmt.Fprintln(t.out, "⚠ "+snap.Warning)
	}
	p := snap.Prediction
	switch {
	case snap.State == session.StateDisplayed:
		fmt.Fprintf(t.out, "Period %s: %s (confidence %d, %s)\n", p.IssuedFor, p.Label, p.Confidence, p.Rule)
		if p.Rationale != "" {
			fmt.Fprintln(t.out, "  "+p.Rationale)
		}
	case p.Status == models.StatusInsufficient:
		fmt.Fprintln(t.out, p.Rationale)
	case p.Status == models.StatusNoPattern, p.Status == models.StatusSuppressed:
		fmt.Fprintln(t.out, "No prediction for now. "+p.Rationale)
	}
	fmt.Fprintf(t.out, "Wins %d  Losses %d  Streak %d\n", snap.Wins, snap.Losses, snap.Streak)
}

func (t *terminal) show(snap session.Snapshot) {
	if len(snap.History) == 0 {
		fmt.Fprintln(t.out, "No history yet.")
		return
	}
	for _, e := range snap.History {
		if t.cfg.Game == models.GameBoxes {
			fmt.Fprintf(t.out, "%s  Box %d\n", e.PeriodLabel(), e.Outcome)
			continue
		}
		cat := calculate.Classify(e.Outcome, t.rule)
		fmt.Fprintf(t.out, "%s  %d  %s  %s\n", e.PeriodLabel(), e.Outcome, cat.Color, cat.Size)
	}
}

func (t *terminal) fail(err error) {
	fmt.Fprintln(t.out, session.UserMessage(err))
	log.Debug().Err(err).Msg("command rejected")
}
