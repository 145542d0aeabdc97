package communityservice

import (
	"context"
	"time"

	communitydomain "github.com/Black-And-White-Club/ringside/app/modules/community/domain"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

// Service is the community module's application surface.
type Service interface {
	// GetPercentages returns percentages for every requested bout, including
	// zero entries for bouts nobody picked. It fails with
	// ErrAggregationDegraded once the batch read has exhausted its retries.
	GetPercentages(ctx context.Context, boutIDs []sharedtypes.BoutID) (map[sharedtypes.BoutID]communitydomain.Percentages, error)

	// GetBatchCommunityPercentages is GetPercentages for callers that must
	// never fail: degraded reads become an empty map.
	GetBatchCommunityPercentages(ctx context.Context, boutIDs []sharedtypes.BoutID) map[sharedtypes.BoutID]communitydomain.Percentages

	// Invalidate drops cached percentages after a pick mutation.
	Invalidate(ctx context.Context, boutIDs ...sharedtypes.BoutID) error

	// Displayable applies the configured display gate.
	Displayable(total int) bool
}

// Config tunes caching and retries.
type Config struct {
	MinSampleSize        int
	RetryMaxAttempts     int
	RetryInitialInterval time.Duration
}
