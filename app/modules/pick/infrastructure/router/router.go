package pickrouter

import (
	"context"
	"log/slog"

	pickhandlers "github.com/Black-And-White-Club/ringside/app/modules/pick/infrastructure/handlers"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	lifecycleevents "github.com/Black-And-White-Club/ringside/pkg/events/lifecycle"
	"github.com/Black-And-White-Club/ringside/pkg/observability/metrics"
	"github.com/Black-And-White-Club/ringside/pkg/utils/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"
)

// PickRouter handles Watermill handler registration for bout lifecycle events.
type PickRouter struct {
	logger     *slog.Logger
	router     *message.Router
	subscriber eventbus.EventBus
	publisher  eventbus.EventBus
	metrics    metrics.OperationMetrics
	tracer     trace.Tracer
}

// NewPickRouter creates a new PickRouter.
func NewPickRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber eventbus.EventBus,
	publisher eventbus.EventBus,
	opMetrics metrics.OperationMetrics,
	tracer trace.Tracer,
) *PickRouter {
	return &PickRouter{
		logger:     logger,
		router:     router,
		subscriber: subscriber,
		publisher:  publisher,
		metrics:    opMetrics,
		tracer:     tracer,
	}
}

// Configure sets up the router with handlers.
func (r *PickRouter) Configure(_ context.Context, handlers pickhandlers.Handlers) error {
	deps := handlerDeps{
		router:     r.router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
		metrics:    r.metrics,
	}

	registerHandler(deps, lifecycleevents.BoutStatusUpdatedV1, handlers.HandleBoutStatusUpdated)
	registerHandler(deps, lifecycleevents.BoutResultStoredV1, handlers.HandleBoutResultStored)
	registerHandler(deps, lifecycleevents.BoutGradingRequestedV1, handlers.HandleGradingRequested)

	r.logger.Info("Pick module handlers registered successfully")
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
	handlerName := "pick." + topic

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
