package liverouter

import (
	"context"
	"log/slog"

	livehandlers "github.com/Black-And-White-Club/ringside/app/modules/live/infrastructure/handlers"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	feedevents "github.com/Black-And-White-Club/ringside/pkg/events/feed"
	"github.com/Black-And-White-Club/ringside/pkg/observability/metrics"
	"github.com/Black-And-White-Club/ringside/pkg/utils/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"
)

// LiveRouter handles Watermill handler registration for round timing feed events.
type LiveRouter struct {
	logger     *slog.Logger
	router     *message.Router
	subscriber eventbus.EventBus
	publisher  eventbus.EventBus
	metrics    metrics.OperationMetrics
	tracer     trace.Tracer
}

// NewLiveRouter creates a new LiveRouter.
func NewLiveRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber eventbus.EventBus,
	publisher eventbus.EventBus,
	opMetrics metrics.OperationMetrics,
	tracer trace.Tracer,
) *LiveRouter {
	return &LiveRouter{
		logger:     logger,
		router:     router,
		subscriber: subscriber,
		publisher:  publisher,
		metrics:    opMetrics,
		tracer:     tracer,
	}
}

// Configure sets up the router with handlers.
func (r *LiveRouter) Configure(_ context.Context, handlers livehandlers.Handlers) error {
	deps := handlerDeps{
		router:     r.router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
		metrics:    r.metrics,
	}

	registerHandler(deps, feedevents.RoundStartedV1, handlers.HandleRoundStarted)
	registerHandler(deps, feedevents.RoundEndedV1, handlers.HandleRoundEnded)
	registerHandler(deps, feedevents.FightEndedV1, handlers.HandleFightEnded)

	r.logger.Info("Live module handlers registered successfully")
	return nil
}

// handlerDeps bundles dependencies for handler registration.
type handlerDeps struct {
	router     *message.Router
	subscriber eventbus.EventBus
	publisher  eventbus.EventBus
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    metrics.OperationMetrics
}

// registerHandler is a generic function for type-safe Watermill handler registration.
func registerHandler[T any](
	deps handlerDeps,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "live." + topic

	deps.router.AddHandler(
		handlerName,
		topic,
		deps.subscriber,
		"",
		deps.publisher,
		handlerwrapper.WrapTransformingTyped(
			handlerName,
			deps.logger,
			deps.tracer,
			deps.metrics,
			handler,
		),
	)
}
