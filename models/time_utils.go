package models

import "time"

// RoundDuration is the length of one 1-minute WinGo round.
const RoundDuration = time.Minute

// NextRoundBoundary returns the first round boundary strictly after now.
func NextRoundBoundary(now time.Time, round time.Duration) time.Time {
	if round <= 0 {
		round = RoundDuration
	}
	next := now.Truncate(round)
	if !next.After(now) {
		next = next.Add(round)
	}
	return next
}

// RoundCountdown returns the time left in the current round.
func RoundCountdown(now time.Time, round time.Duration) time.Duration {
	return NextRoundBoundary(now, round).Sub(now)
}
