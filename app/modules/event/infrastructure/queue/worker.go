package eventqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	eventdb "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	lifecycleevents "github.com/Black-And-White-Club/ringside/pkg/events/lifecycle"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jonboulle/clockwork"
	"github.com/riverqueue/river"
)

// PicksLockWorker stamps picks_locked_at and publishes the lock
// announcement. A job made stale by a later reschedule is a no-op.
type PicksLockWorker struct {
	river.WorkerDefaults[EventPicksLockJob]

	repo      eventdb.Repository
	publisher message.Publisher
	clock     clockwork.Clock
	logger    *slog.Logger
}

// NewPicksLockWorker creates a PicksLockWorker.
func NewPicksLockWorker(repo eventdb.Repository, publisher message.Publisher, clock clockwork.Clock, logger *slog.Logger) *PicksLockWorker {
	return &PicksLockWorker{
		repo:      repo,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

func (w *PicksLockWorker) Work(ctx context.Context, job *river.Job[EventPicksLockJob]) error {
	eventID := job.Args.EventID
	logger := w.logger.With(attr.EventID("event_id", eventID))

	event, err := w.repo.GetEvent(ctx, nil, eventID)
	if err != nil {
		if errors.Is(err, eventdb.ErrNotFound) {
			logger.WarnContext(ctx, "Pick lock job for unknown event, discarding")
			return nil
		}
		return fmt.Errorf("failed to load event: %w", err)
	}

	now := w.clock.Now()
	if now.Before(event.ScheduledStart) {
		logger.InfoContext(ctx, "Pick lock job is stale, event was rescheduled",
			attr.Time("scheduled_start", event.ScheduledStart))
		return nil
	}
	if event.PicksLockedAt != nil {
		logger.InfoContext(ctx, "Picks already marked locked")
		return nil
	}

	if err := w.repo.MarkPicksLocked(ctx, nil, eventID, now); err != nil {
		return fmt.Errorf("failed to mark picks locked: %w", err)
	}

	if err := eventbus.PublishScoped(ctx, w.publisher, lifecycleevents.EventPicksLockedV1, eventID.String(), &lifecycleevents.EventPicksLockedPayloadV1{
		EventID:  eventID,
		LockedAt: now,
	}); err != nil {
		return fmt.Errorf("failed to publish picks locked: %w", err)
	}

	logger.InfoContext(ctx, "Event picks locked", attr.Time("locked_at", now))
	return nil
}
