// Package livescheduler runs the periodic scoring window reconciliation.
package livescheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	liveservice "github.com/Black-And-White-Club/ringside/app/modules/live/application"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// DefaultInterval is how often persisted windows are checked.
const DefaultInterval = 30 * time.Second

const jobName = "live-window-reconcile"

// Reconciler is the part of the live service the job drives.
type Reconciler interface {
	Reconcile(ctx context.Context) (*liveservice.ReconcileSummary, error)
}

// WindowReconciler restores scoring windows on start and then keeps the
// persisted windows and the in-memory timers in agreement.
type WindowReconciler struct {
	scheduler gocron.Scheduler
	service   Reconciler
	interval  time.Duration
	logger    *slog.Logger
}

// NewWindowReconciler creates the scheduler without starting it.
func NewWindowReconciler(service Reconciler, clock clockwork.Clock, interval time.Duration, logger *slog.Logger) (*WindowReconciler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	s, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &WindowReconciler{
		scheduler: s,
		service:   service,
		interval:  interval,
		logger:    logger,
	}, nil
}

// Start restores windows synchronously, then schedules the periodic job. A
// failed restore is logged and left to the next tick.
func (r *WindowReconciler) Start(ctx context.Context) error {
	summary, err := r.service.Reconcile(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to restore scoring windows", attr.Error(err))
	} else {
		r.logger.InfoContext(ctx, "Scoring windows restored",
			attr.Int("rearmed", summary.Rearmed),
			attr.Int("closed", summary.Closed),
		)
	}

	_, err = r.scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(r.run),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", jobName, err)
	}

	r.scheduler.Start()
	return nil
}

func (r *WindowReconciler) run(ctx context.Context) {
	summary, err := r.service.Reconcile(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Scoring window reconciliation failed", attr.Error(err))
		return
	}
	if summary.Rearmed > 0 || summary.Closed > 0 {
		r.logger.InfoContext(ctx, "Scoring windows reconciled",
			attr.Int("rearmed", summary.Rearmed),
			attr.Int("closed", summary.Closed),
		)
	}
}

// Stop waits for a running job and stops the scheduler.
func (r *WindowReconciler) Stop() error {
	return r.scheduler.Shutdown()
}
