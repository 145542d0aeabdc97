package eventservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	eventdomain "github.com/Black-And-White-Club/ringside/app/modules/event/domain"
	eventdb "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories"
	feedevents "github.com/Black-And-White-Club/ringside/pkg/events/feed"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	"github.com/Black-And-White-Club/ringside/pkg/observability/metrics"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/Black-And-White-Club/ringside/pkg/utils/operation"
	"github.com/Black-And-White-Club/ringside/pkg/utils/results"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

var _ Service = (*EventService)(nil)

// EventService implements the Service interface.
type EventService struct {
	repo      eventdb.Repository
	scheduler LockScheduler
	clock     clockwork.Clock
	logger    *slog.Logger
	telemetry operation.Telemetry
	db        *bun.DB
}

// NewEventService creates a new EventService. scheduler may be nil when no
// job queue is configured; lock derivation does not depend on it.
func NewEventService(
	repo eventdb.Repository,
	scheduler LockScheduler,
	clock clockwork.Clock,
	logger *slog.Logger,
	opMetrics metrics.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &EventService{
		repo:      repo,
		scheduler: scheduler,
		clock:     clock,
		logger:    logger,
		telemetry: operation.Telemetry{
			Service: "EventService",
			Logger:  logger,
			Metrics: opMetrics,
			Tracer:  tracer,
		},
		db: db,
	}
}

func (s *EventService) IngestCard(ctx context.Context, card feedevents.CardPublishedPayloadV1) (*eventdb.Event, error) {
	ingestTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*eventdb.Event, error], error) {
		return s.ingestCardLogic(ctx, db, card)
	}

	event, err := operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "IngestCard", card.EventID.String(), func(ctx context.Context) (results.OperationResult[*eventdb.Event, error], error) {
		return operation.RunInTx(ctx, s.db, ingestTx)
	}))
	if err != nil {
		return nil, err
	}

	s.replaceLockJob(ctx, event.ID, event.ScheduledStart)
	return event, nil
}

func (s *EventService) ingestCardLogic(ctx context.Context, db bun.IDB, card feedevents.CardPublishedPayloadV1) (results.OperationResult[*eventdb.Event, error], error) {
	event := &eventdb.Event{
		ID:             card.EventID,
		Name:           card.Name,
		Location:       card.Location,
		ScheduledStart: card.ScheduledStart.UTC(),
	}
	if err := s.repo.UpsertEvent(ctx, db, event); err != nil {
		return results.OperationResult[*eventdb.Event, error]{}, err
	}

	for _, b := range card.Bouts {
		bout := &eventdb.Bout{
			ID:              b.BoutID,
			EventID:         card.EventID,
			Position:        b.Position,
			RedFighter:      b.RedFighter,
			BlueFighter:     b.BlueFighter,
			ScheduledRounds: b.ScheduledRounds,
		}
		if err := s.repo.UpsertBout(ctx, db, bout); err != nil {
			return results.OperationResult[*eventdb.Event, error]{}, fmt.Errorf("bout %s: %w", b.BoutID, err)
		}
	}

	return results.SuccessResult[*eventdb.Event, error](event), nil
}

func (s *EventService) RescheduleEvent(ctx context.Context, eventID sharedtypes.EventID, start time.Time) (*eventdb.Event, error) {
	rescheduleTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*eventdb.Event, error], error) {
		if err := s.repo.RescheduleEvent(ctx, db, eventID, start.UTC()); err != nil {
			if errors.Is(err, eventdb.ErrNotFound) {
				return results.FailureResult[*eventdb.Event, error](err), nil
			}
			return results.OperationResult[*eventdb.Event, error]{}, err
		}
		event, err := s.repo.GetEvent(ctx, db, eventID)
		if err != nil {
			return results.OperationResult[*eventdb.Event, error]{}, err
		}
		return results.SuccessResult[*eventdb.Event, error](event), nil
	}

	event, err := operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "RescheduleEvent", eventID.String(), func(ctx context.Context) (results.OperationResult[*eventdb.Event, error], error) {
		return operation.RunInTx(ctx, s.db, rescheduleTx)
	}))
	if err != nil {
		return nil, err
	}

	s.replaceLockJob(ctx, event.ID, event.ScheduledStart)
	return event, nil
}

func (s *EventService) RescheduleEventFromText(ctx context.Context, eventID sharedtypes.EventID, text string) (*eventdb.Event, error) {
	start, err := ParseStartTime(text, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return s.RescheduleEvent(ctx, eventID, start)
}

// replaceLockJob swaps the scheduled lock job for an event. Failures are
// logged only: the lock itself is derived from the start time on every call.
func (s *EventService) replaceLockJob(ctx context.Context, eventID sharedtypes.EventID, start time.Time) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.CancelPicksLock(ctx, eventID); err != nil {
		s.logger.WarnContext(ctx, "Failed to cancel pick lock job",
			attr.ExtractCorrelationID(ctx),
			attr.EventID("event_id", eventID),
			attr.Error(err),
		)
	}
	if eventdomain.IsLocked(start, s.clock.Now()) {
		return
	}
	if err := s.scheduler.SchedulePicksLock(ctx, eventID, start); err != nil {
		s.logger.WarnContext(ctx, "Failed to schedule pick lock job",
			attr.ExtractCorrelationID(ctx),
			attr.EventID("event_id", eventID),
			attr.Time("scheduled_start", start),
			attr.Error(err),
		)
	}
}

func (s *EventService) RecordBoutStatus(ctx context.Context, boutID sharedtypes.BoutID, status sharedtypes.BoutStatus) (*StatusChange, error) {
	statusTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*StatusChange, error], error) {
		if !status.Valid() {
			return results.FailureResult[*StatusChange, error](fmt.Errorf("%w: unknown status %q", sharedtypes.ErrInvalidBoutState, status)), nil
		}

		bout, err := s.repo.GetBout(ctx, db, boutID)
		if err != nil {
			if errors.Is(err, eventdb.ErrNotFound) {
				return results.FailureResult[*StatusChange, error](err), nil
			}
			return results.OperationResult[*StatusChange, error]{}, err
		}

		change := &StatusChange{
			EventID:  bout.EventID,
			BoutID:   bout.ID,
			Previous: bout.Status,
			Current:  status,
		}
		if bout.Status == status {
			return results.SuccessResult[*StatusChange, error](change), nil
		}

		if err := s.repo.UpdateBoutStatus(ctx, db, boutID, status); err != nil {
			return results.OperationResult[*StatusChange, error]{}, err
		}
		change.Changed = true
		return results.SuccessResult[*StatusChange, error](change), nil
	}

	return operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "RecordBoutStatus", boutID.String(), func(ctx context.Context) (results.OperationResult[*StatusChange, error], error) {
		return operation.RunInTx(ctx, s.db, statusTx)
	}))
}

func (s *EventService) RecordResult(ctx context.Context, payload feedevents.BoutResultRecordedPayloadV1) (*StoredResult, error) {
	resultTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*StoredResult, error], error) {
		return s.recordResultLogic(ctx, db, payload)
	}

	return operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "RecordResult", payload.BoutID.String(), func(ctx context.Context) (results.OperationResult[*StoredResult, error], error) {
		return operation.RunInTx(ctx, s.db, resultTx)
	}))
}

func (s *EventService) recordResultLogic(ctx context.Context, db bun.IDB, payload feedevents.BoutResultRecordedPayloadV1) (results.OperationResult[*StoredResult, error], error) {
	winner, err := sharedtypes.ParseResultCorner(payload.WinnerCorner)
	if err != nil {
		return results.FailureResult[*StoredResult, error](err), nil
	}

	bout, err := s.repo.GetBout(ctx, db, payload.BoutID)
	if err != nil {
		if errors.Is(err, eventdb.ErrNotFound) {
			return results.FailureResult[*StoredResult, error](err), nil
		}
		return results.OperationResult[*StoredResult, error]{}, err
	}

	if bout.Status.VoidsPicks() {
		return results.FailureResult[*StoredResult, error](
			fmt.Errorf("%w: bout %s is %s", sharedtypes.ErrInvalidBoutState, bout.ID, bout.Status)), nil
	}

	if bout.Status == sharedtypes.BoutStatusCompleted {
		_, err := s.repo.GetResult(ctx, db, bout.ID)
		if err == nil {
			return results.FailureResult[*StoredResult, error](
				fmt.Errorf("%w: result for completed bout %s is final", sharedtypes.ErrInvalidBoutState, bout.ID)), nil
		}
		if !errors.Is(err, eventdb.ErrNotFound) {
			return results.OperationResult[*StoredResult, error]{}, err
		}
	}

	res := &eventdb.Result{
		BoutID:       bout.ID,
		WinnerCorner: winner,
		Method:       payload.Method,
		Round:        payload.Round,
		Time:         payload.Time,
	}
	if err := s.repo.UpsertResult(ctx, db, res); err != nil {
		return results.OperationResult[*StoredResult, error]{}, err
	}
	if err := s.repo.UpdateBoutStatus(ctx, db, bout.ID, sharedtypes.BoutStatusCompleted); err != nil {
		return results.OperationResult[*StoredResult, error]{}, err
	}

	return results.SuccessResult[*StoredResult, error](&StoredResult{EventID: bout.EventID, Result: *res}), nil
}

func (s *EventService) GetResult(ctx context.Context, boutID sharedtypes.BoutID) (*eventdb.Result, error) {
	return operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "GetResult", boutID.String(), func(ctx context.Context) (results.OperationResult[*eventdb.Result, error], error) {
		res, err := s.repo.GetResult(ctx, nil, boutID)
		if err != nil {
			if errors.Is(err, eventdb.ErrNotFound) {
				return results.FailureResult[*eventdb.Result, error](err), nil
			}
			return results.OperationResult[*eventdb.Result, error]{}, err
		}
		return results.SuccessResult[*eventdb.Result, error](res), nil
	}))
}

func (s *EventService) GetBoutContext(ctx context.Context, boutID sharedtypes.BoutID) (*BoutContext, error) {
	return operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "GetBoutContext", boutID.String(), func(ctx context.Context) (results.OperationResult[*BoutContext, error], error) {
		bout, err := s.repo.GetBout(ctx, nil, boutID)
		if err != nil {
			if errors.Is(err, eventdb.ErrNotFound) {
				return results.FailureResult[*BoutContext, error](err), nil
			}
			return results.OperationResult[*BoutContext, error]{}, err
		}
		if bout.Event == nil {
			event, err := s.repo.GetEvent(ctx, nil, bout.EventID)
			if err != nil {
				return results.OperationResult[*BoutContext, error]{}, err
			}
			bout.Event = event
		}
		bc := s.boutContext(*bout, bout.Event.ScheduledStart, s.clock.Now())
		return results.SuccessResult[*BoutContext, error](&bc), nil
	}))
}

func (s *EventService) ListEventBouts(ctx context.Context, eventID sharedtypes.EventID) (*EventCard, error) {
	return operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "ListEventBouts", eventID.String(), func(ctx context.Context) (results.OperationResult[*EventCard, error], error) {
		event, err := s.repo.GetEvent(ctx, nil, eventID)
		if err != nil {
			if errors.Is(err, eventdb.ErrNotFound) {
				return results.FailureResult[*EventCard, error](err), nil
			}
			return results.OperationResult[*EventCard, error]{}, err
		}
		bouts, err := s.repo.GetBoutsByEvent(ctx, nil, eventID)
		if err != nil {
			return results.OperationResult[*EventCard, error]{}, err
		}

		now := s.clock.Now()
		card := &EventCard{
			Event:  *event,
			Bouts:  make([]BoutContext, 0, len(bouts)),
			Locked: eventdomain.IsLocked(event.ScheduledStart, now),
		}
		for _, b := range bouts {
			card.Bouts = append(card.Bouts, s.boutContext(b, event.ScheduledStart, now))
		}
		return results.SuccessResult[*EventCard, error](card), nil
	}))
}

func (s *EventService) ListBouts(ctx context.Context, boutIDs []sharedtypes.BoutID) ([]BoutContext, error) {
	return operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "ListBouts", fmt.Sprintf("%d bouts", len(boutIDs)), func(ctx context.Context) (results.OperationResult[[]BoutContext, error], error) {
		bouts, err := s.repo.GetBoutsByIDs(ctx, nil, boutIDs)
		if err != nil {
			return results.OperationResult[[]BoutContext, error]{}, err
		}

		starts := make(map[sharedtypes.EventID]time.Time)
		out := make([]BoutContext, 0, len(bouts))
		now := s.clock.Now()
		for _, b := range bouts {
			start, ok := starts[b.EventID]
			if !ok {
				event, err := s.repo.GetEvent(ctx, nil, b.EventID)
				if err != nil {
					return results.OperationResult[[]BoutContext, error]{}, err
				}
				start = event.ScheduledStart
				starts[b.EventID] = start
			}
			out = append(out, s.boutContext(b, start, now))
		}
		return results.SuccessResult[[]BoutContext, error](out), nil
	}))
}

func (s *EventService) IsLocked(ctx context.Context, eventID sharedtypes.EventID) (bool, error) {
	event, err := s.repo.GetEvent(ctx, nil, eventID)
	if err != nil {
		return false, err
	}
	return eventdomain.IsLocked(event.ScheduledStart, s.clock.Now()), nil
}

func (s *EventService) boutContext(b eventdb.Bout, start, now time.Time) BoutContext {
	return BoutContext{
		Bout:            b,
		EventID:         b.EventID,
		ScheduledStart:  start,
		ScheduledRounds: eventdomain.ScheduledRounds(b.Position, b.ScheduledRounds),
		Locked:          eventdomain.IsLocked(start, now),
	}
}
