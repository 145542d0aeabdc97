package communitydb

import (
	"context"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/uptrace/bun"
)

// Repository reads pick counts for community percentages.
type Repository interface {
	// CountByCorner returns per-corner pick counts for every given bout in
	// one grouped query. Bouts with no picks are absent from the result.
	CountByCorner(ctx context.Context, db bun.IDB, boutIDs []sharedtypes.BoutID) ([]CornerCount, error)
}
