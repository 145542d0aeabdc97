// Package liveevents defines the outbound live updates pushed to viewers.
// Every topic is published event-scoped as "<topic>.<eventID>".
package liveevents

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

const (
	StatusUpdatedV1       = "live.status.updated.v1"
	RoundSummaryUpdatedV1 = "live.round.summary.updated.v1"
	ScoringClosedV1       = "live.scoring.closed.v1"
)

// Reasons carried by ScoringClosedPayloadV1.
const (
	ReasonRoundStarted = "round_started"
	ReasonGraceExpired = "grace_expired"
)

// Topics lists every live topic a realtime consumer relays.
var Topics = []string{StatusUpdatedV1, RoundSummaryUpdatedV1, ScoringClosedV1}

type StatusUpdatedPayloadV1 struct {
	EventID         sharedtypes.EventID   `json:"event_id"`
	BoutID          sharedtypes.BoutID    `json:"bout_id"`
	Phase           sharedtypes.PhaseKind `json:"phase"`
	CurrentRound    int                   `json:"current_round"`
	ScheduledRounds int                   `json:"scheduled_rounds"`
	IsLive          bool                  `json:"is_live"`
	IsScoring       bool                  `json:"is_scoring"`
	WindowClosesAt  *time.Time            `json:"window_closes_at,omitempty"`
}

type RoundSummaryUpdatedPayloadV1 struct {
	EventID         sharedtypes.EventID     `json:"event_id"`
	BoutID          sharedtypes.BoutID      `json:"bout_id"`
	Round           int                     `json:"round"`
	SubmissionCount int                     `json:"submission_count"`
	MeanRed         float64                 `json:"mean_red"`
	MeanBlue        float64                 `json:"mean_blue"`
	Winner          sharedtypes.RoundWinner `json:"winner"`
}

type ScoringClosedPayloadV1 struct {
	EventID sharedtypes.EventID `json:"event_id"`
	BoutID  sharedtypes.BoutID  `json:"bout_id"`
	Round   int                 `json:"round"`
	Reason  string              `json:"reason"`
}
