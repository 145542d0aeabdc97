package event

import (
	"context"
	"fmt"
	"sync"

	eventservice "github.com/Black-And-White-Club/ringside/app/modules/event/application"
	eventhandlers "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/handlers"
	eventhttp "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/http"
	eventqueue "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/queue"
	eventdb "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories"
	eventrouter "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/router"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	"github.com/Black-And-White-Club/ringside/pkg/jwt"
	"github.com/Black-And-White-Club/ringside/pkg/observability"
	"github.com/Black-And-White-Club/ringside/pkg/observability/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"
)

// Module represents the event module.
type Module struct {
	EventService  eventservice.Service
	EventRouter   *eventrouter.EventRouter
	HTTP          *eventhttp.Handlers
	queue         *eventqueue.Service
	cancelFunc    context.CancelFunc
	observability *observability.Observability
}

// NewEventModule creates and initializes a new event module. An empty dsn
// disables the River lock queue.
func NewEventModule(
	ctx context.Context,
	obs *observability.Observability,
	eventBus eventbus.EventBus,
	router *message.Router,
	db *bun.DB,
	dsn string,
	clock clockwork.Clock,
	tokens jwt.Service,
) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Tracer

	logger.InfoContext(ctx, "event.NewEventModule initializing")

	repo := eventdb.NewRepository(db)

	opMetrics, err := metrics.New(obs.Meter("event"), "event")
	if err != nil {
		return nil, fmt.Errorf("failed to create event metrics: %w", err)
	}

	var queue *eventqueue.Service
	var scheduler eventservice.LockScheduler
	if dsn != "" {
		queue, err = eventqueue.NewService(ctx, db, dsn, repo, eventBus, clock, logger, opMetrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create event queue: %w", err)
		}
		scheduler = queue
	}

	service := eventservice.NewEventService(repo, scheduler, clock, logger, opMetrics, tracer, db)
	handlers := eventhandlers.NewEventHandlers(service, logger, tracer)

	eventRouter := eventrouter.NewEventRouter(logger, router, eventBus, eventBus, opMetrics, tracer)
	if err := eventRouter.Configure(ctx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure event router: %w", err)
	}

	return &Module{
		EventService:  service,
		EventRouter:   eventRouter,
		HTTP:          eventhttp.NewHandlers(service, tokens, logger, tracer),
		queue:         queue,
		observability: obs,
	}, nil
}

// RegisterRoutes mounts the module's HTTP routes.
func (m *Module) RegisterRoutes(r chi.Router) {
	m.HTTP.Register(r)
}

// Run starts the lock queue and blocks until ctx is done.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.observability.Provider.Logger
	logger.InfoContext(ctx, "Starting event module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if m.queue != nil {
		// River stops hard when its start context ends, so Close drives shutdown instead.
		if err := m.queue.Start(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to start event queue", "error", err)
		}
	}

	<-ctx.Done()
	logger.InfoContext(ctx, "Event module goroutine stopped")
}

// Close shuts down the event module.
func (m *Module) Close() error {
	logger := m.observability.Provider.Logger
	logger.Info("Stopping event module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	if m.queue != nil {
		if err := m.queue.Stop(context.Background()); err != nil {
			logger.Error("Error stopping event queue", "error", err)
			return fmt.Errorf("error stopping event queue: %w", err)
		}
	}

	logger.Info("Event module stopped")
	return nil
}
