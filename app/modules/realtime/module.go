package realtime

import (
	"context"
	"fmt"
	"sync"

	realtimeservice "github.com/Black-And-White-Club/ringside/app/modules/realtime/application"
	realtimerouter "github.com/Black-And-White-Club/ringside/app/modules/realtime/infrastructure/router"
	realtimews "github.com/Black-And-White-Club/ringside/app/modules/realtime/infrastructure/websocket"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	"github.com/Black-And-White-Club/ringside/pkg/jwt"
	"github.com/Black-And-White-Club/ringside/pkg/observability"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
)

// Module represents the realtime module.
type Module struct {
	Hub            *realtimews.Hub
	Relay          *realtimeservice.Relay
	RealtimeRouter *realtimerouter.RealtimeRouter
	cancelFunc     context.CancelFunc
	observability  *observability.Observability
}

// NewRealtimeModule creates the websocket hub and subscribes it to the
// live topics. snapshots supplies the first frame each viewer receives.
func NewRealtimeModule(
	ctx context.Context,
	obs *observability.Observability,
	eventBus eventbus.EventBus,
	router *message.Router,
	snapshots realtimeservice.Snapshotter,
	tokens jwt.Service,
	cfg realtimews.Config,
) (*Module, error) {
	logger := obs.Provider.Logger

	logger.InfoContext(ctx, "realtime.NewRealtimeModule initializing")

	hub := realtimews.NewHub(cfg, realtimeservice.NewSnapshots(snapshots), tokens, logger)
	relay := realtimeservice.NewRelay(hub, logger, obs.Tracer)

	realtimeRouter := realtimerouter.NewRealtimeRouter(logger, router, eventBus)
	if err := realtimeRouter.Configure(ctx, relay); err != nil {
		return nil, fmt.Errorf("failed to configure realtime router: %w", err)
	}

	return &Module{
		Hub:            hub,
		Relay:          relay,
		RealtimeRouter: realtimeRouter,
		observability:  obs,
	}, nil
}

// RegisterRoutes mounts the socket route.
func (m *Module) RegisterRoutes(r chi.Router) {
	m.Hub.Register(r)
}

// Run drives the hub until ctx is done.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.observability.Provider.Logger
	logger.InfoContext(ctx, "Starting realtime module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	m.Hub.Run(ctx)
	logger.InfoContext(ctx, "Realtime module goroutine stopped")
}

// Close disconnects every viewer.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.observability.Provider.Logger.Info("Realtime module stopped")
	return nil
}
