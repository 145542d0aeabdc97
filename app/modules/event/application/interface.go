package eventservice

import (
	"context"
	"time"

	eventdb "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories"
	feedevents "github.com/Black-And-White-Club/ringside/pkg/events/feed"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

// Service is the event module's application surface.
type Service interface {
	// IngestCard upserts an event and its bouts from the card feed and
	// (re)schedules the pick lock job.
	IngestCard(ctx context.Context, card feedevents.CardPublishedPayloadV1) (*eventdb.Event, error)

	// RescheduleEvent moves an event's start and replaces its lock job.
	RescheduleEvent(ctx context.Context, eventID sharedtypes.EventID, start time.Time) (*eventdb.Event, error)

	// RescheduleEventFromText accepts RFC3339 or a natural language time
	// relative to now, e.g. "saturday at 10pm".
	RescheduleEventFromText(ctx context.Context, eventID sharedtypes.EventID, text string) (*eventdb.Event, error)

	// RecordBoutStatus applies a status from the feed. Unchanged statuses
	// return a StatusChange with Changed false.
	RecordBoutStatus(ctx context.Context, boutID sharedtypes.BoutID, status sharedtypes.BoutStatus) (*StatusChange, error)

	// RecordResult stores the official result and completes the bout.
	RecordResult(ctx context.Context, payload feedevents.BoutResultRecordedPayloadV1) (*StoredResult, error)

	// GetResult returns a bout's official result.
	GetResult(ctx context.Context, boutID sharedtypes.BoutID) (*eventdb.Result, error)

	// GetBoutContext loads a bout with its event and the lock state at call time.
	GetBoutContext(ctx context.Context, boutID sharedtypes.BoutID) (*BoutContext, error)

	// ListEventBouts loads an event and its bouts in card order.
	ListEventBouts(ctx context.Context, eventID sharedtypes.EventID) (*EventCard, error)

	// ListBouts loads the given bouts in one read.
	ListBouts(ctx context.Context, boutIDs []sharedtypes.BoutID) ([]BoutContext, error)

	// IsLocked reports whether an event's picks are locked right now.
	IsLocked(ctx context.Context, eventID sharedtypes.EventID) (bool, error)
}

// LockScheduler schedules the job that announces an event's pick lock.
type LockScheduler interface {
	SchedulePicksLock(ctx context.Context, eventID sharedtypes.EventID, at time.Time) error
	CancelPicksLock(ctx context.Context, eventID sharedtypes.EventID) error
}

// BoutContext is a bout resolved against its event.
type BoutContext struct {
	Bout            eventdb.Bout
	EventID         sharedtypes.EventID
	ScheduledStart  time.Time
	ScheduledRounds int
	Locked          bool
}

// EventCard is an event with its bouts.
type EventCard struct {
	Event  eventdb.Event
	Bouts  []BoutContext
	Locked bool
}

// StatusChange describes a bout status update.
type StatusChange struct {
	EventID  sharedtypes.EventID
	BoutID   sharedtypes.BoutID
	Previous sharedtypes.BoutStatus
	Current  sharedtypes.BoutStatus
	Changed  bool
}

// StoredResult is a result that was accepted for a bout.
type StoredResult struct {
	EventID sharedtypes.EventID
	Result  eventdb.Result
}
