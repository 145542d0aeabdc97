package eventqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	eventdb "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	"github.com/Black-And-White-Club/ringside/pkg/observability/metrics"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/uptrace/bun"
)

// Service handles job scheduling for the event module using River
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	db      *bun.DB
	metrics metrics.OperationMetrics
	clock   clockwork.Clock
}

// NewService creates a new River-based queue service for event scheduling
func NewService(
	ctx context.Context,
	bunDB *bun.DB,
	dsn string,
	repo eventdb.Repository,
	publisher message.Publisher,
	clock clockwork.Clock,
	logger *slog.Logger,
	opMetrics metrics.OperationMetrics,
) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_event_queue_service"),
		attr.String("component", "river_queue"),
	)
	if opMetrics == nil {
		opMetrics = metrics.NewNoop()
	}

	start := time.Now()
	opMetrics.RecordOperationAttempt(ctx, "initialize_service", "river")

	// River requires pgx, not database/sql
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		opMetrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		opMetrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		ctxLogger.Error("Failed to ping database for River", attr.Error(err))
		opMetrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewPicksLockWorker(repo, publisher, clock, ctxLogger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
			QueueName:          {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		pool.Close()
		ctxLogger.Error("Failed to create River client", attr.Error(err))
		opMetrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	opMetrics.RecordOperationSuccess(ctx, "initialize_service", "river")
	opMetrics.RecordOperationDuration(ctx, "initialize_service", "river", time.Since(start))
	ctxLogger.Info("Event queue service initialized")

	return &Service{
		client:  riverClient,
		pool:    pool,
		logger:  ctxLogger,
		db:      bunDB,
		metrics: opMetrics,
		clock:   clock,
	}, nil
}

// Start starts the River client.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting event queue service")
	if err := s.client.Start(ctx); err != nil {
		s.metrics.RecordOperationFailure(ctx, "start_service", "river")
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "start_service", "river")
	return nil
}

// Stop stops the River client and releases its pool.
func (s *Service) Stop(ctx context.Context) error {
	s.logger.Info("Stopping event queue service")
	defer s.pool.Close()
	if err := s.client.Stop(ctx); err != nil {
		s.metrics.RecordOperationFailure(ctx, "stop_service", "river")
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "stop_service", "river")
	return nil
}

// SchedulePicksLock schedules the lock job for an event's start.
func (s *Service) SchedulePicksLock(ctx context.Context, eventID sharedtypes.EventID, at time.Time) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "schedule_picks_lock", "river")

	ctxLogger := s.logger.With(
		attr.EventID("event_id", eventID),
		attr.Time("lock_at", at),
	)

	jobResult, err := s.client.Insert(ctx, EventPicksLockJob{EventID: eventID}, &river.InsertOpts{
		Queue:       QueueName,
		ScheduledAt: at,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
		},
	})
	if err != nil {
		ctxLogger.Error("Failed to schedule picks lock job", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "schedule_picks_lock", "river")
		return fmt.Errorf("failed to schedule picks lock job: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "schedule_picks_lock", "river")
	s.metrics.RecordOperationDuration(ctx, "schedule_picks_lock", "river", time.Since(start))
	ctxLogger.Info("Picks lock job scheduled",
		attr.Duration("delay", at.Sub(s.clock.Now())),
		attr.Int64("job_id", jobResult.Job.ID))
	return nil
}

// CancelPicksLock cancels every pending lock job for an event.
func (s *Service) CancelPicksLock(ctx context.Context, eventID sharedtypes.EventID) error {
	s.metrics.RecordOperationAttempt(ctx, "cancel_picks_lock", "river")

	jobs, err := s.pendingJobs(ctx, eventID)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "cancel_picks_lock", "river")
		return err
	}

	cancelled := 0
	for _, job := range jobs {
		if _, err := s.client.JobCancel(ctx, job.ID); err != nil {
			s.logger.Warn("Failed to cancel job",
				attr.Int64("job_id", job.ID),
				attr.Error(err))
			continue
		}
		cancelled++
	}

	if cancelled == len(jobs) {
		s.metrics.RecordOperationSuccess(ctx, "cancel_picks_lock", "river")
	} else {
		s.metrics.RecordOperationFailure(ctx, "cancel_picks_lock", "river")
	}
	s.logger.Info("Picks lock jobs cancelled",
		attr.EventID("event_id", eventID),
		attr.Int("total_found", len(jobs)),
		attr.Int("cancelled_count", cancelled))
	return nil
}

func (s *Service) pendingJobs(ctx context.Context, eventID sharedtypes.EventID) ([]JobInfo, error) {
	type riverJobRow struct {
		ID          int64      `bun:"id"`
		Kind        string     `bun:"kind"`
		State       string     `bun:"state"`
		ScheduledAt *time.Time `bun:"scheduled_at"`
	}

	var rows []riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "kind", "state", "scheduled_at").
		Where("kind = ?", PicksLockKind).
		Where("state IN (?, ?)", "available", "scheduled").
		Where("args->>'event_id' = ?", eventID.String()).
		Order("scheduled_at ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to query picks lock jobs: %w", err)
	}

	out := make([]JobInfo, len(rows))
	for i, r := range rows {
		scheduledAt := ""
		if r.ScheduledAt != nil {
			scheduledAt = r.ScheduledAt.Format(time.RFC3339)
		}
		out[i] = JobInfo{
			ID:          r.ID,
			Kind:        r.Kind,
			EventID:     eventID.String(),
			State:       r.State,
			ScheduledAt: scheduledAt,
		}
	}
	return out, nil
}
