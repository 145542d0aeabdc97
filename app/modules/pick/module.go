package pick

import (
	"context"
	"fmt"
	"sync"

	pickservice "github.com/Black-And-White-Club/ringside/app/modules/pick/application"
	pickhandlers "github.com/Black-And-White-Club/ringside/app/modules/pick/infrastructure/handlers"
	pickhttp "github.com/Black-And-White-Club/ringside/app/modules/pick/infrastructure/http"
	pickdb "github.com/Black-And-White-Club/ringside/app/modules/pick/infrastructure/repositories"
	pickrouter "github.com/Black-And-White-Club/ringside/app/modules/pick/infrastructure/router"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	"github.com/Black-And-White-Club/ringside/pkg/jwt"
	"github.com/Black-And-White-Club/ringside/pkg/observability"
	"github.com/Black-And-White-Club/ringside/pkg/observability/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"
)

// Module represents the pick module.
type Module struct {
	PickService   pickservice.Service
	PickRouter    *pickrouter.PickRouter
	HTTP          *pickhttp.Handlers
	cancelFunc    context.CancelFunc
	observability *observability.Observability
}

// NewPickModule creates and initializes a new pick module.
func NewPickModule(
	ctx context.Context,
	obs *observability.Observability,
	eventBus eventbus.EventBus,
	router *message.Router,
	db *bun.DB,
	bouts pickservice.BoutLookup,
	cache pickservice.CacheInvalidator,
	clock clockwork.Clock,
	tokens jwt.Service,
) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Tracer

	logger.InfoContext(ctx, "pick.NewPickModule initializing")

	opMetrics, err := metrics.New(obs.Meter("pick"), "pick")
	if err != nil {
		return nil, fmt.Errorf("failed to create pick metrics: %w", err)
	}

	service := pickservice.NewPickService(pickdb.NewRepository(db), bouts, cache, clock, logger, opMetrics, tracer, db)
	handlers := pickhandlers.NewPickHandlers(service, logger, tracer)

	pickRouter := pickrouter.NewPickRouter(logger, router, eventBus, eventBus, opMetrics, tracer)
	if err := pickRouter.Configure(ctx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure pick router: %w", err)
	}

	return &Module{
		PickService:   service,
		PickRouter:    pickRouter,
		HTTP:          pickhttp.NewHandlers(service, tokens, logger, tracer),
		observability: obs,
	}, nil
}

// RegisterRoutes mounts the module's HTTP routes.
func (m *Module) RegisterRoutes(r chi.Router) {
	m.HTTP.Register(r)
}

// Run blocks until ctx is done.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.observability.Provider.Logger
	logger.InfoContext(ctx, "Starting pick module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	logger.InfoContext(ctx, "Pick module goroutine stopped")
}

// Close shuts down the pick module.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.observability.Provider.Logger.Info("Pick module stopped")
	return nil
}
