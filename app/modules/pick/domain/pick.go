// Package pickdomain grades picks and decides what a corner tap means.
package pickdomain

import (
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

// Pick is the part of a stored pick that grading reads and writes.
type Pick struct {
	Corner sharedtypes.Corner
	Status sharedtypes.PickStatus
	Score  *int
}

// GradePick applies a result winner to a pick. Voided picks are returned
// unchanged, and so is every pick when the winner is a draw or no contest.
// Re-grading with the same winner yields the same pick.
func GradePick(p Pick, winner sharedtypes.Corner) Pick {
	if p.Status == sharedtypes.PickStatusVoided || !winner.IsDecisive() {
		return p
	}

	score := 0
	if p.Corner == winner {
		score = 1
	}
	return Pick{
		Corner: p.Corner,
		Status: sharedtypes.PickStatusGraded,
		Score:  &score,
	}
}

// Changed reports whether grading altered the pick.
func Changed(before, after Pick) bool {
	if before.Status != after.Status {
		return true
	}
	if (before.Score == nil) != (after.Score == nil) {
		return true
	}
	return before.Score != nil && *before.Score != *after.Score
}

// SelectionAction is what a corner tap resolves to.
type SelectionAction int

const (
	ActionUpsert SelectionAction = iota
	ActionDelete
)

// ResolveSelection implements tap-to-unselect: tapping the corner of an
// existing active pick removes it, any other tap stores the corner.
func ResolveSelection(existing *Pick, corner sharedtypes.Corner) SelectionAction {
	if existing != nil && existing.Status == sharedtypes.PickStatusActive && existing.Corner == corner {
		return ActionDelete
	}
	return ActionUpsert
}
