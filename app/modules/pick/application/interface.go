package pickservice

import (
	"context"

	eventservice "github.com/Black-And-White-Club/ringside/app/modules/event/application"
	eventdb "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories"
	pickdb "github.com/Black-And-White-Club/ringside/app/modules/pick/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

// Service is the pick module's application surface.
type Service interface {
	UpsertPick(ctx context.Context, req UpsertPickRequest) (*pickdb.Pick, error)
	DeletePick(ctx context.Context, userID sharedtypes.UserID, boutID sharedtypes.BoutID) error
	SelectCorner(ctx context.Context, userID sharedtypes.UserID, boutID sharedtypes.BoutID, corner string) (*Selection, error)
	VoidPicksForBout(ctx context.Context, boutID sharedtypes.BoutID) (int, error)
	GradeBout(ctx context.Context, boutID sharedtypes.BoutID, winner sharedtypes.Corner) (*GradeSummary, error)
	GradeBoutFromResult(ctx context.Context, boutID sharedtypes.BoutID) (*GradeSummary, error)
	GetBoutsForEvent(ctx context.Context, eventID sharedtypes.EventID, userID sharedtypes.UserID) (*EventBouts, error)
}

// BoutLookup is what the pick module reads from the event module.
type BoutLookup interface {
	GetBoutContext(ctx context.Context, boutID sharedtypes.BoutID) (*eventservice.BoutContext, error)
	ListEventBouts(ctx context.Context, eventID sharedtypes.EventID) (*eventservice.EventCard, error)
	GetResult(ctx context.Context, boutID sharedtypes.BoutID) (*eventdb.Result, error)
}

// CacheInvalidator drops cached community percentages for bouts.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, boutIDs ...sharedtypes.BoutID) error
}

// UpsertPickRequest carries a viewer's pick.
type UpsertPickRequest struct {
	UserID          sharedtypes.UserID
	BoutID          sharedtypes.BoutID
	Corner          string
	PredictedMethod *string
	PredictedRound  *int
}

// Selection is the outcome of a corner tap.
type Selection struct {
	Pick    *pickdb.Pick
	Removed bool
}

// GradeSummary reports a grading pass over one bout.
type GradeSummary struct {
	BoutID  sharedtypes.BoutID
	Winner  sharedtypes.Corner
	Graded  int
	Correct int
	Skipped bool
}

// BoutWithPick is a bout on the card with the caller's pick, if any.
type BoutWithPick struct {
	eventservice.BoutContext
	Pick *pickdb.Pick
}

// EventBouts is an event's card as seen by one viewer.
type EventBouts struct {
	Event  eventdb.Event
	Locked bool
	Bouts  []BoutWithPick
}
