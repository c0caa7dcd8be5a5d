package models

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Game selects which of the two tools a session drives
type Game string

const (
	GameWinGo Game = "wingo" // digits 0..9, color/size heuristics
	GameBoxes Game = "boxes" // original games, box numbers 1..5
)

// Outcome bounds for each game.
const (
	MinDigit = 0
	MaxDigit = 9
	MinBox   = 1
	MaxBox   = 5
)

// Color is the color category of a WinGo digit
type Color string

const (
	ColorRed    Color = "Red"
	ColorGreen  Color = "Green"
	ColorPurple Color = "Purple"
)

// Size is the size category of a WinGo digit
type Size string

const (
	SizeSmall Size = "SMALL"
	SizeBig   Size = "BIG"
)

// Category is derived from an outcome and never stored.
type Category struct {
	Color Color `json:"color"`
	Size  Size  `json:"size"`
}

// Entry is one recorded round. History slices are ordered newest-first.
type Entry struct {
	Outcome int    `json:"outcome"`
	Period  int64  `json:"period"`
	Issue   string `json:"issue,omitempty"` // feed issue number; empty for manual entry
}

// PeriodLabel returns the identifier shown to the user for this entry.
func (e Entry) PeriodLabel() string {
	if e.Issue != "" {
		return e.Issue
	}
	return strconv.FormatInt(e.Period, 10)
}

// NextPeriodLabel returns the identifier of the round following e.
func (e Entry) NextPeriodLabel() string {
	if e.Issue != "" {
		if next, err := NextIssue(e.Issue); err == nil {
			return next
		}
	}
	return strconv.FormatInt(e.Period+1, 10)
}

// Status tells a caller why a prediction is or is not available
type Status string

const (
	StatusReady        Status = "READY"
	StatusInsufficient Status = "INSUFFICIENT"
	StatusNoPattern    Status = "NO_PATTERN"
	StatusSuppressed   Status = "SUPPRESSED"
)

// Prediction is the outcome of one arbiter or box predictor run.
// Only StatusReady predictions carry a Value.
type Prediction struct {
	ID         string    `json:"id,omitempty"`
	Status     Status    `json:"status"`
	Value      string    `json:"value,omitempty"` // predicted symbol: R/G/P, S/B or a box number
	Label      string    `json:"label,omitempty"` // human readable, e.g. "Color: Red"
	Confidence int       `json:"confidence"`
	Rule       string    `json:"rule,omitempty"`
	Projection string    `json:"projection,omitempty"`
	Rationale  string    `json:"rationale"`
	Needed     int       `json:"needed,omitempty"` // entries missing when Status is INSUFFICIENT
	IssuedFor  string    `json:"issued_for,omitempty"`
	IssuedAt   time.Time `json:"issued_at,omitempty"`
}

// Found reports whether p carries a usable value.
func (p Prediction) Found() bool {
	return p.Status == StatusReady
}

// Insufficient builds the "not enough data" prediction.
func Insufficient(have, need int, unit string) Prediction {
	missing := need - have
	return Prediction{
		Status:    StatusInsufficient,
		Needed:    missing,
		Rationale: fmt.Sprintf("Add %d more %s to get a prediction.", missing, unit),
	}
}

// issueSuffixLen is the numeric tail of a feed issue number that counts rounds.
const issueSuffixLen = 3

var ErrIssueNumber = errors.New("issue number has no numeric suffix")

// NextIssue increments the numeric suffix of a feed issue number and keeps
// the leading portion unchanged: "20240101100051234" -> "20240101100051235".
// A suffix overflow widens the tail ("...999" -> "...1000").
func NextIssue(issue string) (string, error) {
	n := issueSuffixLen
	if len(issue) < n {
		n = len(issue)
	}
	if n == 0 {
		return "", ErrIssueNumber
	}
	prefix, suffix := issue[:len(issue)-n], issue[len(issue)-n:]
	v, err := strconv.Atoi(suffix)
	if err != nil || v < 0 {
		return "", fmt.Errorf("%w: %q", ErrIssueNumber, issue)
	}
	return fmt.Sprintf("%s%0*d", prefix, n, v+1), nil
}
