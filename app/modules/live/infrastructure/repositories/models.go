package livedb

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/uptrace/bun"
)

// BoutState is the persisted live snapshot of one bout. WindowClosesAt is
// set while a scoring window is open for WindowRound.
type BoutState struct {
	bun.BaseModel   `bun:"table:live_bout_states,alias:lbs"`
	BoutID          sharedtypes.BoutID    `bun:"bout_id,pk" json:"bout_id"`
	EventID         sharedtypes.EventID   `bun:"event_id,notnull" json:"event_id"`
	Phase           sharedtypes.PhaseKind `bun:"phase,notnull,default:'SCHEDULED'" json:"phase"`
	Round           int                   `bun:"round,notnull,default:0" json:"round"`
	ScheduledRounds int                   `bun:"scheduled_rounds,notnull" json:"scheduled_rounds"`
	WindowRound     *int                  `bun:"window_round" json:"window_round,omitempty"`
	WindowClosesAt  *time.Time            `bun:"window_closes_at" json:"window_closes_at,omitempty"`
	UpdatedAt       time.Time             `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// PhaseValue returns the snapshot's phase.
func (s *BoutState) PhaseValue() sharedtypes.Phase {
	return sharedtypes.Phase{Kind: s.Phase, Round: s.Round}
}

// SetPhase stores p on the snapshot.
func (s *BoutState) SetPhase(p sharedtypes.Phase) {
	s.Phase = p.Kind
	s.Round = p.Round
}

// OpenWindow records an open scoring window.
func (s *BoutState) OpenWindow(round int, closesAt time.Time) {
	s.WindowRound = &round
	s.WindowClosesAt = &closesAt
}

// ClearWindow records that no window is open.
func (s *BoutState) ClearWindow() {
	s.WindowRound = nil
	s.WindowClosesAt = nil
}
