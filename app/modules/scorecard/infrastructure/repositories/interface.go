package scorecarddb

import (
	"context"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/uptrace/bun"
)

// Repository defines the contract for round score persistence.
type Repository interface {
	// Upsert stores the score, overwriting the user's earlier one for the round.
	Upsert(ctx context.Context, db bun.IDB, score *RoundScore) error
	ListForRound(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID, round int) ([]RoundScore, error)
	// ListForBouts returns every score of the bouts ordered by bout, round and user.
	ListForBouts(ctx context.Context, db bun.IDB, boutIDs []sharedtypes.BoutID) ([]RoundScore, error)
}
