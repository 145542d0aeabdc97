package pickservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	eventservice "github.com/Black-And-White-Club/ringside/app/modules/event/application"
	eventdomain "github.com/Black-And-White-Club/ringside/app/modules/event/domain"
	eventdb "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories"
	pickdomain "github.com/Black-And-White-Club/ringside/app/modules/pick/domain"
	pickdb "github.com/Black-And-White-Club/ringside/app/modules/pick/infrastructure/repositories"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	"github.com/Black-And-White-Club/ringside/pkg/observability/metrics"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/Black-And-White-Club/ringside/pkg/utils/operation"
	"github.com/Black-And-White-Club/ringside/pkg/utils/results"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

var _ Service = (*PickService)(nil)

// PickService implements the Service interface.
type PickService struct {
	repo      pickdb.Repository
	bouts     BoutLookup
	cache     CacheInvalidator
	clock     clockwork.Clock
	logger    *slog.Logger
	telemetry operation.Telemetry
	db        *bun.DB
}

// NewPickService creates a new PickService. cache may be nil.
func NewPickService(
	repo pickdb.Repository,
	bouts BoutLookup,
	cache CacheInvalidator,
	clock clockwork.Clock,
	logger *slog.Logger,
	opMetrics metrics.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *PickService {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PickService{
		repo:   repo,
		bouts:  bouts,
		cache:  cache,
		clock:  clock,
		logger: logger,
		telemetry: operation.Telemetry{
			Service: "PickService",
			Logger:  logger,
			Metrics: opMetrics,
			Tracer:  tracer,
		},
		db: db,
	}
}

// mutationGate loads the bout and applies the lock and bout state checks
// every pick mutation starts with, in that order.
func (s *PickService) mutationGate(ctx context.Context, boutID sharedtypes.BoutID) (*eventservice.BoutContext, error) {
	bc, err := s.bouts.GetBoutContext(ctx, boutID)
	if err != nil {
		return nil, err
	}
	if eventdomain.IsLocked(bc.ScheduledStart, s.clock.Now()) {
		return nil, fmt.Errorf("%w: event %s started at %s", sharedtypes.ErrLocked, bc.EventID, bc.ScheduledStart.UTC().Format(time.RFC3339))
	}
	if !bc.Bout.Status.AcceptsPicks() {
		return nil, fmt.Errorf("%w: bout %s is %s", sharedtypes.ErrInvalidBoutState, boutID, bc.Bout.Status)
	}
	return bc, nil
}

// gateFailure turns a gate error into a failure result when it is a domain
// error and into an infrastructure error otherwise.
func gateFailure[S any](err error) (results.OperationResult[S, error], error) {
	if sharedtypes.IsDomainError(err) {
		return results.FailureResult[S, error](err), nil
	}
	return results.OperationResult[S, error]{}, err
}

func validatePrediction(req UpsertPickRequest, scheduledRounds int) error {
	if req.PredictedRound != nil && (*req.PredictedRound < 1 || *req.PredictedRound > scheduledRounds) {
		return fmt.Errorf("%w: round %d of %d", sharedtypes.ErrInvalidPrediction, *req.PredictedRound, scheduledRounds)
	}
	return nil
}

func (s *PickService) UpsertPick(ctx context.Context, req UpsertPickRequest) (*pickdb.Pick, error) {
	pick, err := operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "UpsertPick", req.BoutID.String(), func(ctx context.Context) (results.OperationResult[*pickdb.Pick, error], error) {
		corner, err := sharedtypes.ParsePickCorner(req.Corner)
		if err != nil {
			return results.FailureResult[*pickdb.Pick, error](err), nil
		}

		bc, err := s.mutationGate(ctx, req.BoutID)
		if err != nil {
			return gateFailure[*pickdb.Pick](err)
		}
		if err := validatePrediction(req, bc.ScheduledRounds); err != nil {
			return results.FailureResult[*pickdb.Pick, error](err), nil
		}

		return operation.RunInTx(ctx, s.db, func(ctx context.Context, db bun.IDB) (results.OperationResult[*pickdb.Pick, error], error) {
			stored, err := s.repo.Upsert(ctx, db, &pickdb.Pick{
				UserID:          req.UserID,
				BoutID:          req.BoutID,
				Corner:          corner,
				PredictedMethod: req.PredictedMethod,
				PredictedRound:  req.PredictedRound,
			})
			if err != nil {
				return results.OperationResult[*pickdb.Pick, error]{}, err
			}
			return results.SuccessResult[*pickdb.Pick, error](stored), nil
		})
	}))
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, req.BoutID)
	return pick, nil
}

func (s *PickService) DeletePick(ctx context.Context, userID sharedtypes.UserID, boutID sharedtypes.BoutID) error {
	_, err := operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "DeletePick", boutID.String(), func(ctx context.Context) (results.OperationResult[bool, error], error) {
		if _, err := s.mutationGate(ctx, boutID); err != nil {
			return gateFailure[bool](err)
		}
		if err := s.repo.Delete(ctx, nil, userID, boutID); err != nil {
			if errors.Is(err, pickdb.ErrNotFound) {
				return results.FailureResult[bool, error](err), nil
			}
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](true), nil
	}))
	if err != nil {
		return err
	}

	s.invalidate(ctx, boutID)
	return nil
}

func (s *PickService) SelectCorner(ctx context.Context, userID sharedtypes.UserID, boutID sharedtypes.BoutID, corner string) (*Selection, error) {
	selectTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*Selection, error], error) {
		c, err := sharedtypes.ParsePickCorner(corner)
		if err != nil {
			return results.FailureResult[*Selection, error](err), nil
		}
		if _, err := s.mutationGate(ctx, boutID); err != nil {
			return gateFailure[*Selection](err)
		}

		var existing *pickdomain.Pick
		current, err := s.repo.Get(ctx, db, userID, boutID)
		switch {
		case err == nil:
			existing = &pickdomain.Pick{Corner: current.Corner, Status: current.Status, Score: current.Score}
		case !errors.Is(err, pickdb.ErrNotFound):
			return results.OperationResult[*Selection, error]{}, err
		}

		if pickdomain.ResolveSelection(existing, c) == pickdomain.ActionDelete {
			if err := s.repo.Delete(ctx, db, userID, boutID); err != nil {
				return results.OperationResult[*Selection, error]{}, err
			}
			return results.SuccessResult[*Selection, error](&Selection{Removed: true}), nil
		}

		req := &pickdb.Pick{UserID: userID, BoutID: boutID, Corner: c}
		if current != nil {
			req.PredictedMethod = current.PredictedMethod
			req.PredictedRound = current.PredictedRound
		}
		stored, err := s.repo.Upsert(ctx, db, req)
		if err != nil {
			return results.OperationResult[*Selection, error]{}, err
		}
		return results.SuccessResult[*Selection, error](&Selection{Pick: stored}), nil
	}

	sel, err := operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "SelectCorner", boutID.String(), func(ctx context.Context) (results.OperationResult[*Selection, error], error) {
		return operation.RunInTx(ctx, s.db, selectTx)
	}))
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, boutID)
	return sel, nil
}

func (s *PickService) VoidPicksForBout(ctx context.Context, boutID sharedtypes.BoutID) (int, error) {
	count, err := operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "VoidPicksForBout", boutID.String(), func(ctx context.Context) (results.OperationResult[int, error], error) {
		n, err := s.repo.VoidForBout(ctx, nil, boutID)
		if err != nil {
			return results.OperationResult[int, error]{}, err
		}
		return results.SuccessResult[int, error](n), nil
	}))
	if err != nil {
		return 0, err
	}

	s.invalidate(ctx, boutID)
	return count, nil
}

func (s *PickService) GradeBout(ctx context.Context, boutID sharedtypes.BoutID, winner sharedtypes.Corner) (*GradeSummary, error) {
	gradeTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*GradeSummary, error], error) {
		return s.gradeBoutLogic(ctx, db, boutID, winner)
	}

	return operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "GradeBout", boutID.String(), func(ctx context.Context) (results.OperationResult[*GradeSummary, error], error) {
		return operation.RunInTx(ctx, s.db, gradeTx)
	}))
}

func (s *PickService) gradeBoutLogic(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID, winner sharedtypes.Corner) (results.OperationResult[*GradeSummary, error], error) {
	summary := &GradeSummary{BoutID: boutID, Winner: winner}
	if !winner.IsDecisive() {
		summary.Skipped = true
		return results.SuccessResult[*GradeSummary, error](summary), nil
	}

	picks, err := s.repo.ListForBout(ctx, db, boutID)
	if err != nil {
		return results.OperationResult[*GradeSummary, error]{}, err
	}

	for _, p := range picks {
		before := pickdomain.Pick{Corner: p.Corner, Status: p.Status, Score: p.Score}
		after := pickdomain.GradePick(before, winner)
		if after.Status == sharedtypes.PickStatusGraded {
			summary.Graded++
			if after.Score != nil && *after.Score == 1 {
				summary.Correct++
			}
		}
		if !pickdomain.Changed(before, after) {
			continue
		}
		if err := s.repo.UpdateGrade(ctx, db, p.UserID, p.BoutID, after.Status, after.Score); err != nil {
			return results.OperationResult[*GradeSummary, error]{}, fmt.Errorf("user %s: %w", p.UserID, err)
		}
	}

	return results.SuccessResult[*GradeSummary, error](summary), nil
}

func (s *PickService) GradeBoutFromResult(ctx context.Context, boutID sharedtypes.BoutID) (*GradeSummary, error) {
	res, err := s.bouts.GetResult(ctx, boutID)
	if err != nil {
		if errors.Is(err, eventdb.ErrNotFound) {
			return nil, fmt.Errorf("no result for bout %s: %w", boutID, err)
		}
		return nil, err
	}
	return s.GradeBout(ctx, boutID, res.WinnerCorner)
}

func (s *PickService) GetBoutsForEvent(ctx context.Context, eventID sharedtypes.EventID, userID sharedtypes.UserID) (*EventBouts, error) {
	return operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "GetBoutsForEvent", eventID.String(), func(ctx context.Context) (results.OperationResult[*EventBouts, error], error) {
		card, err := s.bouts.ListEventBouts(ctx, eventID)
		if err != nil {
			return gateFailure[*EventBouts](err)
		}

		byBout := map[sharedtypes.BoutID]*pickdb.Pick{}
		if userID != "" {
			ids := make([]sharedtypes.BoutID, len(card.Bouts))
			for i, b := range card.Bouts {
				ids[i] = b.Bout.ID
			}
			picks, err := s.repo.ListForUserAndBouts(ctx, nil, userID, ids)
			if err != nil {
				return results.OperationResult[*EventBouts, error]{}, err
			}
			for i := range picks {
				byBout[picks[i].BoutID] = &picks[i]
			}
		}

		out := &EventBouts{
			Event:  card.Event,
			Locked: eventdomain.IsLocked(card.Event.ScheduledStart, s.clock.Now()),
			Bouts:  make([]BoutWithPick, len(card.Bouts)),
		}
		for i, b := range card.Bouts {
			out.Bouts[i] = BoutWithPick{BoutContext: b, Pick: byBout[b.Bout.ID]}
		}
		return results.SuccessResult[*EventBouts, error](out), nil
	}))
}

func (s *PickService) invalidate(ctx context.Context, boutID sharedtypes.BoutID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, boutID); err != nil {
		s.logger.WarnContext(ctx, "Failed to invalidate community cache",
			attr.ExtractCorrelationID(ctx),
			attr.BoutID("bout_id", boutID),
			attr.Error(err),
		)
	}
}
