// Package eventdomain holds the pure rules that derive pick locking and round
// counts from an event's schedule.
package eventdomain

import "time"

const (
	// MainEventRounds is the inferred length of the bout at position 0.
	MainEventRounds = 5
	// UndercardRounds is the inferred length of every other bout.
	UndercardRounds = 3
)

// IsLocked reports whether picks for an event starting at scheduledStart are
// locked at now. The boundary instant itself is locked.
func IsLocked(scheduledStart, now time.Time) bool {
	return !now.Before(scheduledStart)
}

// ScheduledRounds returns the explicit round count when one is set, otherwise
// the count inferred from the bout's card position.
func ScheduledRounds(position int, explicit *int) int {
	if explicit != nil && *explicit > 0 {
		return *explicit
	}
	if position == 0 {
		return MainEventRounds
	}
	return UndercardRounds
}
