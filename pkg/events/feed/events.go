// Package feedevents defines the inbound contracts published by the timing
// and results feed.
package feedevents

import (
	"errors"
	"time"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

const (
	// CardPublishedV1 announces or updates an event and its bouts.
	CardPublishedV1 = "feed.event.card.published.v1"
	// EventRescheduledV1 moves an event's scheduled start.
	EventRescheduledV1 = "feed.event.rescheduled.v1"
	// BoutStatusChangedV1 reports a bout being canceled, replaced, reinstated or completed.
	BoutStatusChangedV1 = "feed.bout.status.changed.v1"
	// BoutResultRecordedV1 carries the official result of a bout.
	BoutResultRecordedV1 = "feed.bout.result.recorded.v1"
	// RoundStartedV1 fires when the bell starts a round.
	RoundStartedV1 = "feed.bout.round.started.v1"
	// RoundEndedV1 fires when the bell ends a round.
	RoundEndedV1 = "feed.bout.round.ended.v1"
	// FightEndedV1 fires once the bout is over, for any reason.
	FightEndedV1 = "feed.bout.fight.ended.v1"
)

var (
	errMissingEventID = errors.New("event_id is required")
	errMissingBoutID  = errors.New("bout_id is required")
	errMissingStart   = errors.New("scheduled_start is required")
	errInvalidRound   = errors.New("round must be positive")
)

type CardBoutV1 struct {
	BoutID          sharedtypes.BoutID `json:"bout_id"`
	Position        int                `json:"position"`
	RedFighter      string             `json:"red_fighter"`
	BlueFighter     string             `json:"blue_fighter"`
	ScheduledRounds *int               `json:"scheduled_rounds,omitempty"`
}

type CardPublishedPayloadV1 struct {
	EventID        sharedtypes.EventID `json:"event_id"`
	Name           string              `json:"name"`
	Location       string              `json:"location"`
	ScheduledStart time.Time           `json:"scheduled_start"`
	Bouts          []CardBoutV1        `json:"bouts"`
}

func (p CardPublishedPayloadV1) Validate() error {
	if p.EventID == "" {
		return errMissingEventID
	}
	if p.ScheduledStart.IsZero() {
		return errMissingStart
	}
	for _, b := range p.Bouts {
		if b.BoutID == "" {
			return errMissingBoutID
		}
	}
	return nil
}

type EventRescheduledPayloadV1 struct {
	EventID        sharedtypes.EventID `json:"event_id"`
	ScheduledStart time.Time           `json:"scheduled_start"`
}

func (p EventRescheduledPayloadV1) Validate() error {
	if p.EventID == "" {
		return errMissingEventID
	}
	if p.ScheduledStart.IsZero() {
		return errMissingStart
	}
	return nil
}

type BoutStatusChangedPayloadV1 struct {
	BoutID sharedtypes.BoutID `json:"bout_id"`
	Status string             `json:"status"`
}

func (p BoutStatusChangedPayloadV1) Validate() error {
	if p.BoutID == "" {
		return errMissingBoutID
	}
	if !sharedtypes.BoutStatus(p.Status).Valid() {
		return errors.New("unknown bout status")
	}
	return nil
}

// BoutResultRecordedPayloadV1 is deliberately loose: the winner is validated
// by the handler so a bad value is logged against the bout it belongs to.
type BoutResultRecordedPayloadV1 struct {
	BoutID       sharedtypes.BoutID `json:"bout_id"`
	WinnerCorner string             `json:"winner_corner"`
	Method       string             `json:"method"`
	Round        int                `json:"round"`
	Time         string             `json:"time"`
}

type RoundSignalPayloadV1 struct {
	BoutID     sharedtypes.BoutID `json:"bout_id"`
	Round      int                `json:"round"`
	OccurredAt time.Time          `json:"occurred_at"`
}

func (p RoundSignalPayloadV1) Validate() error {
	if p.BoutID == "" {
		return errMissingBoutID
	}
	if p.Round <= 0 {
		return errInvalidRound
	}
	return nil
}

type FightEndedPayloadV1 struct {
	BoutID     sharedtypes.BoutID `json:"bout_id"`
	OccurredAt time.Time          `json:"occurred_at"`
}

func (p FightEndedPayloadV1) Validate() error {
	if p.BoutID == "" {
		return errMissingBoutID
	}
	return nil
}
