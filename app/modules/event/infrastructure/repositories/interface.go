package eventdb

import (
	"context"
	"time"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/uptrace/bun"
)

// Repository defines the contract for event, bout and result persistence.
type Repository interface {
	// GetEvent retrieves an event by id.
	GetEvent(ctx context.Context, db bun.IDB, id sharedtypes.EventID) (*Event, error)

	// UpsertEvent creates an event or refreshes its card details.
	UpsertEvent(ctx context.Context, db bun.IDB, event *Event) error

	// RescheduleEvent moves an event's start and clears any lock stamp.
	RescheduleEvent(ctx context.Context, db bun.IDB, id sharedtypes.EventID, start time.Time) error

	// MarkPicksLocked stamps the instant the scheduled lock job fired.
	MarkPicksLocked(ctx context.Context, db bun.IDB, id sharedtypes.EventID, at time.Time) error

	// GetBout retrieves a bout together with its event.
	GetBout(ctx context.Context, db bun.IDB, id sharedtypes.BoutID) (*Bout, error)

	// GetBoutsByEvent lists an event's bouts in card order.
	GetBoutsByEvent(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID) ([]Bout, error)

	// GetBoutsByIDs loads the given bouts in a single query.
	GetBoutsByIDs(ctx context.Context, db bun.IDB, ids []sharedtypes.BoutID) ([]Bout, error)

	// UpsertBout creates a bout or refreshes its card details. Status is
	// never overwritten by a card refresh.
	UpsertBout(ctx context.Context, db bun.IDB, bout *Bout) error

	// UpdateBoutStatus sets a bout's status.
	UpdateBoutStatus(ctx context.Context, db bun.IDB, id sharedtypes.BoutID, status sharedtypes.BoutStatus) error

	// GetResult retrieves the official result for a bout.
	GetResult(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID) (*Result, error)

	// UpsertResult stores or corrects a bout's result.
	UpsertResult(ctx context.Context, db bun.IDB, result *Result) error
}
