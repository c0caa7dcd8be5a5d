// Package baktest replays a recorded history through a predictor and
// scores every call against the round that followed it.
package baktest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Alias1177/WinGoTrader/internal/session"
	"github.com/Alias1177/WinGoTrader/models"
)

var ErrInsufficientHistory = errors.New("insufficient history for backtesting")

// PredictionResult is one scored call.
type PredictionResult struct {
	Period     string `json:"period"`
	Label      string `json:"label"`
	Rule       string `json:"rule"`
	Confidence int    `json:"confidence"`
	Outcome    int    `json:"outcome"`
	WasCorrect bool   `json:"was_correct"`
}

// RuleStats counts calls and hits of one rule.
type RuleStats struct {
	Rule    string  `json:"rule"`
	Calls   int     `json:"calls"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"win_rate"`
}

// Results summarises a replay.
type Results struct {
	Rounds         int `json:"rounds"`
	TotalTrades    int `json:"total_trades"`
	WinningTrades  int `json:"winning_trades"`
	LosingTrades   int `json:"losing_trades"`
	MaxConsecutive struct {
		Wins  int `json:"wins"`
		Loses int `json:"loses"`
	} `json:"max_consecutive"`
	WinPercentage   float64               `json:"win_percentage"`
	Skipped         map[models.Status]int `json:"skipped"`
	Rules           []RuleStats           `json:"rules"`
	DetailedResults []PredictionResult    `json:"detailed_results"`
}

// RunBacktest walks newest-first history from the oldest round forward. At
// each step the engine sees at most capacity rounds (0 for all of them),
// exactly as a session would, and its call is judged against the next round.
// Calls feed the repeat-suppression ring the way a session does.
func RunBacktest(ctx context.Context, engine session.Engine, history []models.Entry, capacity int) (*Results, error) {
	if len(history) < 2 {
		return nil, fmt.Errorf("%w: got %d rounds", ErrInsufficientHistory, len(history))
	}

	results := &Results{Skipped: make(map[models.Status]int)}
	byRule := make(map[string]*RuleStats)
	var recent []string
	consecutiveWins, consecutiveLosses := 0, 0

	for i := len(history) - 1; i >= 1; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results.Rounds++

		end := len(history)
		if capacity > 0 && i+capacity < end {
			end = i + capacity
		}
		view := history[i:end]

		pred := engine.Predict(view, recent)
		if !pred.Found() {
			results.Skipped[pred.Status]++
			continue
		}
		recent = append([]string{pred.Label}, recent...)
		if len(recent) > 2 {
			recent = recent[:2]
		}

		next := history[i-1]
		wasCorrect := engine.Judge(pred, next.Outcome)
		results.DetailedResults = append(results.DetailedResults, PredictionResult{
			Period:     pred.IssuedFor,
			Label:      pred.Label,
			Rule:       pred.Rule,
			Confidence: pred.Confidence,
			Outcome:    next.Outcome,
			WasCorrect: wasCorrect,
		})
		results.TotalTrades++

		stats, ok := byRule[pred.Rule]
		if !ok {
			stats = &RuleStats{Rule: pred.Rule}
			byRule[pred.Rule] = stats
		}
		stats.Calls++

		if wasCorrect {
			results.WinningTrades++
			stats.Wins++
			consecutiveWins++
			consecutiveLosses = 0
		} else {
			results.LosingTrades++
			consecutiveLosses++
			consecutiveWins = 0
		}
		if consecutiveWins > results.MaxConsecutive.Wins {
			results.MaxConsecutive.Wins = consecutiveWins
		}
		if consecutiveLosses > results.MaxConsecutive.Loses {
			results.MaxConsecutive.Loses = consecutiveLosses
		}
	}

	if results.TotalTrades > 0 {
		results.WinPercentage = float64(results.WinningTrades) / float64(results.TotalTrades) * 100
	}
	for _, stats := range byRule {
		stats.WinRate = float64(stats.Wins) / float64(stats.Calls) * 100
		results.Rules = append(results.Rules, *stats)
	}
	sort.Slice(results.Rules, func(i, j int) bool {
		if results.Rules[i].Calls != results.Rules[j].Calls {
			return results.Rules[i].Calls > results.Rules[j].Calls
		}
		return results.Rules[i].Rule < results.Rules[j].Rule
	})

	return results, nil
}

// Format renders a plain-text report.
func (r *Results) Format() string {
	var b strings.Builder
	b.WriteString("===== BACKTEST RESULTS =====\n")
	fmt.Fprintf(&b, "Rounds replayed: %d\n", r.Rounds)
	fmt.Fprintf(&b, "Total predictions: %d\n", r.TotalTrades)
	fmt.Fprintf(&b, "Correct predictions: %d (%.2f%%)\n", r.WinningTrades, r.WinPercentage)
	fmt.Fprintf(&b, "Wrong predictions: %d\n", r.LosingTrades)
	fmt.Fprintf(&b, "Max consecutive wins: %d\n", r.MaxConsecutive.Wins)
	fmt.Fprintf(&b, "Max consecutive losses: %d\n", r.MaxConsecutive.Loses)

	if len(r.Skipped) > 0 {
		statuses := make([]string, 0, len(r.Skipped))
		for status := range r.Skipped {
			statuses = append(statuses, string(status))
		}
		sort.Strings(statuses)
		b.WriteString("\nRounds without a prediction:\n")
		for _, status := range statuses {
			fmt.Fprintf(&b, "- %s: %d\n", status, r.Skipped[models.Status(status)])
		}
	}

	if len(r.Rules) > 0 {
		b.WriteString("\nPerformance by rule:\n")
		for _, rule := range r.Rules {
			fmt.Fprintf(&b, "- %s: %d/%d (%.2f%%)\n", rule.Rule, rule.Wins, rule.Calls, rule.WinRate)
		}
	}
	return b.String()
}
