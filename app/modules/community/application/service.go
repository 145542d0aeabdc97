package communityservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	communitydomain "github.com/Black-And-White-Club/ringside/app/modules/community/domain"
	communitycache "github.com/Black-And-White-Club/ringside/app/modules/community/infrastructure/cache"
	communitydb "github.com/Black-And-White-Club/ringside/app/modules/community/infrastructure/repositories"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	"github.com/Black-And-White-Club/ringside/pkg/observability/metrics"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/Black-And-White-Club/ringside/pkg/utils/operation"
	"github.com/Black-And-White-Club/ringside/pkg/utils/results"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultRetryMaxAttempts     = 3
	defaultRetryInitialInterval = 100 * time.Millisecond
)

var _ Service = (*CommunityService)(nil)

// CommunityService implements the Service interface.
type CommunityService struct {
	repo      communitydb.Repository
	cache     communitycache.Cache
	cfg       Config
	logger    *slog.Logger
	telemetry operation.Telemetry
}

// NewCommunityService creates a new CommunityService. A nil cache disables caching.
func NewCommunityService(
	repo communitydb.Repository,
	cache communitycache.Cache,
	cfg Config,
	logger *slog.Logger,
	opMetrics metrics.OperationMetrics,
	tracer trace.Tracer,
) *CommunityService {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = communitycache.NoopCache{}
	}
	if cfg.RetryMaxAttempts <= 0 {
		cfg.RetryMaxAttempts = defaultRetryMaxAttempts
	}
	if cfg.RetryInitialInterval < 0 {
		cfg.RetryInitialInterval = defaultRetryInitialInterval
	}
	if cfg.MinSampleSize <= 0 {
		cfg.MinSampleSize = communitydomain.MinSampleSize
	}
	return &CommunityService{
		repo:   repo,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
		telemetry: operation.Telemetry{
			Service: "CommunityService",
			Logger:  logger,
			Metrics: opMetrics,
			Tracer:  tracer,
		},
	}
}

func (s *CommunityService) Displayable(total int) bool {
	return communitydomain.ShouldDisplayWith(total, s.cfg.MinSampleSize)
}

func (s *CommunityService) GetPercentages(ctx context.Context, boutIDs []sharedtypes.BoutID) (map[sharedtypes.BoutID]communitydomain.Percentages, error) {
	ids := dedupe(boutIDs)
	return operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "GetPercentages", fmt.Sprintf("%d bouts", len(ids)), func(ctx context.Context) (results.OperationResult[map[sharedtypes.BoutID]communitydomain.Percentages, error], error) {
		return s.getPercentagesLogic(ctx, ids)
	}))
}

func (s *CommunityService) getPercentagesLogic(ctx context.Context, ids []sharedtypes.BoutID) (results.OperationResult[map[sharedtypes.BoutID]communitydomain.Percentages, error], error) {
	out := make(map[sharedtypes.BoutID]communitydomain.Percentages, len(ids))
	if len(ids) == 0 {
		return results.SuccessResult[map[sharedtypes.BoutID]communitydomain.Percentages, error](out), nil
	}

	snap, err := s.cache.GetMany(ctx, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "Community cache read failed, reading from store",
			attr.ExtractCorrelationID(ctx),
			attr.Error(err),
		)
		snap = communitycache.Snapshot{}
	}

	missing := make([]sharedtypes.BoutID, 0, len(ids))
	for _, id := range ids {
		if p, ok := snap.Hits[id]; ok {
			out[id] = p
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return results.SuccessResult[map[sharedtypes.BoutID]communitydomain.Percentages, error](out), nil
	}

	rows, err := s.countWithRetry(ctx, missing)
	if err != nil {
		return results.FailureResult[map[sharedtypes.BoutID]communitydomain.Percentages, error](
			fmt.Errorf("%w: %v", sharedtypes.ErrAggregationDegraded, err),
		), nil
	}

	counts := make(map[sharedtypes.BoutID]map[sharedtypes.Corner]int, len(missing))
	for _, row := range rows {
		if counts[row.BoutID] == nil {
			counts[row.BoutID] = map[sharedtypes.Corner]int{}
		}
		counts[row.BoutID][row.Corner] += row.Count
	}

	fresh := make([]communitydomain.Percentages, 0, len(missing))
	for _, id := range missing {
		p := communitydomain.Compute(id, counts[id])
		out[id] = p
		fresh = append(fresh, p)
	}

	// A pick written during the count invalidates the key, and the write
	// below then loses to it.
	if err := s.cache.PutMany(ctx, fresh, snap.Revisions); err != nil {
		s.logger.WarnContext(ctx, "Community cache write failed",
			attr.ExtractCorrelationID(ctx),
			attr.Error(err),
		)
	}

	return results.SuccessResult[map[sharedtypes.BoutID]communitydomain.Percentages, error](out), nil
}

// countWithRetry runs the grouped count with bounded exponential backoff.
// Context cancellation stops retrying immediately.
func (s *CommunityService) countWithRetry(ctx context.Context, ids []sharedtypes.BoutID) ([]communitydb.CornerCount, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.RetryInitialInterval
	policy.MaxElapsedTime = 0

	var rows []communitydb.CornerCount
	op := func() error {
		var err error
		rows, err = s.repo.CountByCorner(ctx, nil, ids)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		s.logger.WarnContext(ctx, "Community count failed, retrying",
			attr.ExtractCorrelationID(ctx),
			attr.Duration("wait", wait),
			attr.Error(err),
		)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.cfg.RetryMaxAttempts-1)), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *CommunityService) GetBatchCommunityPercentages(ctx context.Context, boutIDs []sharedtypes.BoutID) map[sharedtypes.BoutID]communitydomain.Percentages {
	out, err := s.GetPercentages(ctx, boutIDs)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, sharedtypes.ErrAggregationDegraded) {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "Community percentages unavailable, returning empty result",
			attr.ExtractCorrelationID(ctx),
			attr.Int("bouts", len(boutIDs)),
			attr.Error(err),
		)
		return map[sharedtypes.BoutID]communitydomain.Percentages{}
	}
	return out
}

func (s *CommunityService) Invalidate(ctx context.Context, boutIDs ...sharedtypes.BoutID) error {
	return s.cache.Invalidate(ctx, boutIDs...)
}

func dedupe(ids []sharedtypes.BoutID) []sharedtypes.BoutID {
	seen := make(map[sharedtypes.BoutID]struct{}, len(ids))
	out := make([]sharedtypes.BoutID, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
