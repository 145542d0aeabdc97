// Package lifecycleevents defines the events modules exchange as bouts and
// events move through their lifecycle.
package lifecycleevents

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

const (
	// BoutStatusUpdatedV1 is emitted after a bout status change is stored.
	BoutStatusUpdatedV1 = "bout.status.updated.v1"
	// BoutResultStoredV1 is emitted after an official result is stored.
	BoutResultStoredV1 = "bout.result.stored.v1"
	// BoutGradingRequestedV1 asks the pick module to grade a completed bout.
	BoutGradingRequestedV1 = "bout.grading.requested.v1"
	// PicksVoidedV1 reports picks voided for a bout.
	PicksVoidedV1 = "bout.picks.voided.v1"
	// PicksGradedV1 reports picks graded for a bout.
	PicksGradedV1 = "bout.picks.graded.v1"
	// EventPicksLockedV1 is emitted when an event reaches its scheduled start.
	EventPicksLockedV1 = "event.picks.locked.v1"
)

type BoutStatusUpdatedPayloadV1 struct {
	EventID  sharedtypes.EventID    `json:"event_id"`
	BoutID   sharedtypes.BoutID     `json:"bout_id"`
	Previous sharedtypes.BoutStatus `json:"previous"`
	Status   sharedtypes.BoutStatus `json:"status"`
}

type BoutResultStoredPayloadV1 struct {
	EventID      sharedtypes.EventID `json:"event_id"`
	BoutID       sharedtypes.BoutID  `json:"bout_id"`
	WinnerCorner sharedtypes.Corner  `json:"winner_corner"`
	Method       string              `json:"method,omitempty"`
	Round        int                 `json:"round,omitempty"`
	Time         string              `json:"time,omitempty"`
}

type BoutGradingRequestedPayloadV1 struct {
	EventID sharedtypes.EventID `json:"event_id"`
	BoutID  sharedtypes.BoutID  `json:"bout_id"`
}

type PicksVoidedPayloadV1 struct {
	BoutID sharedtypes.BoutID `json:"bout_id"`
	Count  int                `json:"count"`
}

type PicksGradedPayloadV1 struct {
	BoutID  sharedtypes.BoutID `json:"bout_id"`
	Graded  int                `json:"graded"`
	Correct int                `json:"correct"`
}

type EventPicksLockedPayloadV1 struct {
	EventID  sharedtypes.EventID `json:"event_id"`
	LockedAt time.Time           `json:"locked_at"`
}
