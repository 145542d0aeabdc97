package eventrouter

import (
	"context"
	"log/slog"

	eventhandlers "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/handlers"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	feedevents "github.com/Black-And-White-Club/ringside/pkg/events/feed"
	"github.com/Black-And-White-Club/ringside/pkg/observability/metrics"
	"github.com/Black-And-White-Club/ringside/pkg/utils/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"
)

// EventRouter handles Watermill handler registration for feed events.
type EventRouter struct {
	logger     *slog.Logger
	router     *message.Router
	subscriber eventbus.EventBus
	publisher  eventbus.EventBus
	metrics    metrics.OperationMetrics
	tracer     trace.Tracer
}

// NewEventRouter creates a new EventRouter.
func NewEventRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber eventbus.EventBus,
	publisher eventbus.EventBus,
	opMetrics metrics.OperationMetrics,
	tracer trace.Tracer,
) *EventRouter {
	return &EventRouter{
		logger:     logger,
		router:     router,
		subscriber: subscriber,
		publisher:  publisher,
		metrics:    opMetrics,
		tracer:     tracer,
	}
}

// Configure sets up the router with handlers.
func (r *EventRouter) Configure(_ context.Context, handlers eventhandlers.Handlers) error {
	deps := handlerDeps{
		router:     r.router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
		metrics:    r.metrics,
	}

	registerHandler(deps, feedevents.CardPublishedV1, handlers.HandleCardPublished)
	registerHandler(deps, feedevents.EventRescheduledV1, handlers.HandleEventRescheduled)
	registerHandler(deps, feedevents.BoutStatusChangedV1, handlers.HandleBoutStatusChanged)
	registerHandler(deps, feedevents.BoutResultRecordedV1, handlers.HandleBoutResultRecorded)

	r.logger.Info("Event module handlers registered successfully")
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
	handlerName := "event." + topic

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
