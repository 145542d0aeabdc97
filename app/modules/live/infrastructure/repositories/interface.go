package livedb

import (
	"context"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/uptrace/bun"
)

// Repository defines the contract for live snapshot persistence.
type Repository interface {
	Get(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID) (*BoutState, error)
	Upsert(ctx context.Context, db bun.IDB, state *BoutState) error
	ListByBoutIDs(ctx context.Context, db bun.IDB, boutIDs []sharedtypes.BoutID) ([]BoutState, error)
	// ListOpenWindows returns every snapshot that still records a scoring window.
	ListOpenWindows(ctx context.Context, db bun.IDB) ([]BoutState, error)
	// ClearWindow clears the window only if it is still the one for round.
	ClearWindow(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID, round int) (bool, error)
}
