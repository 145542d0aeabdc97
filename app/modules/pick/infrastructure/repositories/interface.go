package pickdb

import (
	"context"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/uptrace/bun"
)

// Repository defines the contract for pick persistence.
type Repository interface {
	// Upsert stores the pick keyed by (user, bout), resetting status to
	// active and clearing any score. It returns the stored row.
	Upsert(ctx context.Context, db bun.IDB, pick *Pick) (*Pick, error)

	// Get retrieves a user's pick for a bout.
	Get(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutID sharedtypes.BoutID) (*Pick, error)

	// Delete removes a user's pick for a bout.
	Delete(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutID sharedtypes.BoutID) error

	// ListForUserAndBouts returns a user's picks among the given bouts.
	ListForUserAndBouts(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutIDs []sharedtypes.BoutID) ([]Pick, error)

	// ListForBout returns every pick on a bout.
	ListForBout(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID) ([]Pick, error)

	// VoidForBout voids every non-graded pick on a bout and returns how many changed.
	VoidForBout(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID) (int, error)

	// UpdateGrade writes a pick's grading outcome.
	UpdateGrade(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutID sharedtypes.BoutID, status sharedtypes.PickStatus, score *int) error
}
