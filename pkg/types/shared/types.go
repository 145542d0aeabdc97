package sharedtypes

import "fmt"

// EventID identifies a fight card.
type EventID string

// BoutID identifies a single bout on a card.
type BoutID string

// UserID identifies the viewer submitting picks and scores.
type UserID string

func (id EventID) String() string { return string(id) }
func (id BoutID) String() string  { return string(id) }
func (id UserID) String() string  { return string(id) }

// Corner is one side of a bout, or a non-corner outcome for results.
type Corner string

const (
	CornerRed       Corner = "red"
	CornerBlue      Corner = "blue"
	CornerDraw      Corner = "draw"
	CornerNoContest Corner = "no_contest"
)

// IsPickable reports whether a viewer can pick this corner.
func (c Corner) IsPickable() bool {
	return c == CornerRed || c == CornerBlue
}

// IsDecisive reports whether a result with this winner can grade picks.
func (c Corner) IsDecisive() bool {
	return c.IsPickable()
}

// ParsePickCorner validates a corner supplied by a viewer.
func ParsePickCorner(s string) (Corner, error) {
	c := Corner(s)
	if !c.IsPickable() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCorner, s)
	}
	return c, nil
}

// ParseResultCorner validates a winner supplied by the results feed.
func ParseResultCorner(s string) (Corner, error) {
	switch c := Corner(s); c {
	case CornerRed, CornerBlue, CornerDraw, CornerNoContest:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCorner, s)
	}
}

// BoutStatus is the lifecycle state of a bout on the card.
type BoutStatus string

const (
	BoutStatusScheduled BoutStatus = "scheduled"
	BoutStatusCanceled  BoutStatus = "canceled"
	BoutStatusReplaced  BoutStatus = "replaced"
	BoutStatusCompleted BoutStatus = "completed"
)

// AcceptsPicks reports whether picks may still be created or removed for a bout in this status.
func (s BoutStatus) AcceptsPicks() bool {
	return s != BoutStatusCanceled && s != BoutStatusReplaced
}

// VoidsPicks reports whether entering this status voids existing picks.
func (s BoutStatus) VoidsPicks() bool {
	return s == BoutStatusCanceled || s == BoutStatusReplaced
}

// Valid reports whether s is a known status.
func (s BoutStatus) Valid() bool {
	switch s {
	case BoutStatusScheduled, BoutStatusCanceled, BoutStatusReplaced, BoutStatusCompleted:
		return true
	}
	return false
}

// PickStatus is the lifecycle state of a pick.
type PickStatus string

const (
	PickStatusActive PickStatus = "active"
	PickStatusVoided PickStatus = "voided"
	PickStatusGraded PickStatus = "graded"
)

// PhaseKind is the coarse live state of a bout.
type PhaseKind string

const (
	PhaseScheduled  PhaseKind = "SCHEDULED"
	PhaseRoundLive  PhaseKind = "ROUND_LIVE"
	PhaseRoundBreak PhaseKind = "ROUND_BREAK"
	PhaseComplete   PhaseKind = "COMPLETE"
)

// Phase is a PhaseKind together with the round it refers to. Round is zero
// for SCHEDULED and carries the last round for COMPLETE.
type Phase struct {
	Kind  PhaseKind `json:"kind"`
	Round int       `json:"round"`
}

func (p Phase) String() string {
	switch p.Kind {
	case PhaseRoundLive, PhaseRoundBreak:
		return fmt.Sprintf("%s(%d)", p.Kind, p.Round)
	default:
		return string(p.Kind)
	}
}

// IsHot reports whether the phase alone marks a fight in progress. Refresh
// cadence also depends on whether a scoring window is open, which the phase
// does not carry.
func (p Phase) IsHot() bool {
	return p.Kind == PhaseRoundLive || p.Kind == PhaseRoundBreak
}

// RoundWinner is the consensus outcome of a round.
type RoundWinner string

const (
	RoundWinnerRed     RoundWinner = "red"
	RoundWinnerBlue    RoundWinner = "blue"
	RoundWinnerEven    RoundWinner = "even"
	RoundWinnerNoneYet RoundWinner = "none_yet"
)

// Score bounds for a single corner in a single round.
const (
	MinRoundScore = 0
	MaxRoundScore = 10
)
