package live

import (
	"context"
	"fmt"
	"sync"
	"time"

	liveservice "github.com/Black-And-White-Club/ringside/app/modules/live/application"
	livehandlers "github.com/Black-And-White-Club/ringside/app/modules/live/infrastructure/handlers"
	livehttp "github.com/Black-And-White-Club/ringside/app/modules/live/infrastructure/http"
	livedb "github.com/Black-And-White-Club/ringside/app/modules/live/infrastructure/repositories"
	liverouter "github.com/Black-And-White-Club/ringside/app/modules/live/infrastructure/router"
	livescheduler "github.com/Black-And-White-Club/ringside/app/modules/live/infrastructure/scheduler"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	"github.com/Black-And-White-Club/ringside/pkg/observability"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	"github.com/Black-And-White-Club/ringside/pkg/observability/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"
)

// Config tunes the live module.
type Config struct {
	Tracker           liveservice.Config
	ReconcileInterval time.Duration
}

// Module represents the live module.
type Module struct {
	Tracker       *liveservice.Tracker
	LiveRouter    *liverouter.LiveRouter
	HTTP          *livehttp.Handlers
	reconciler    *livescheduler.WindowReconciler
	cancelFunc    context.CancelFunc
	observability *observability.Observability
}

// NewLiveModule creates and initializes a new live module.
func NewLiveModule(
	ctx context.Context,
	obs *observability.Observability,
	eventBus eventbus.EventBus,
	router *message.Router,
	db *bun.DB,
	bouts liveservice.BoutLookup,
	clock clockwork.Clock,
	cfg Config,
) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Tracer

	logger.InfoContext(ctx, "live.NewLiveModule initializing")

	opMetrics, err := metrics.New(obs.Meter("live"), "live")
	if err != nil {
		return nil, fmt.Errorf("failed to create live metrics: %w", err)
	}

	tracker := liveservice.NewTracker(livedb.NewRepository(db), bouts, eventBus, clock, cfg.Tracker, logger, opMetrics, tracer, db)
	handlers := livehandlers.NewLiveHandlers(tracker, logger, tracer)

	liveRouter := liverouter.NewLiveRouter(logger, router, eventBus, eventBus, opMetrics, tracer)
	if err := liveRouter.Configure(ctx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure live router: %w", err)
	}

	reconciler, err := livescheduler.NewWindowReconciler(tracker, clock, cfg.ReconcileInterval, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create window reconciler: %w", err)
	}

	return &Module{
		Tracker:       tracker,
		LiveRouter:    liveRouter,
		HTTP:          livehttp.NewHandlers(tracker, logger, tracer),
		reconciler:    reconciler,
		observability: obs,
	}, nil
}

// RegisterRoutes mounts the module's HTTP routes.
func (m *Module) RegisterRoutes(r chi.Router) {
	m.HTTP.Register(r)
}

// Run restores scoring windows, starts the reconciler and blocks until ctx is done.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.observability.Provider.Logger
	logger.InfoContext(ctx, "Starting live module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if err := m.reconciler.Start(ctx); err != nil {
		logger.ErrorContext(ctx, "Live reconciler failed to start", attr.Error(err))
	}

	<-ctx.Done()
	logger.InfoContext(ctx, "Live module goroutine stopped")
}

// Close stops the reconciler and cancels in-memory timers. Persisted
// windows are re-armed on the next start.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	var err error
	if m.reconciler != nil {
		err = m.reconciler.Stop()
	}
	m.Tracker.Shutdown()
	m.observability.Provider.Logger.Info("Live module stopped")
	return err
}
