package realtimerouter

import (
	"context"
	"log/slog"

	realtimeservice "github.com/Black-And-White-Club/ringside/app/modules/realtime/application"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	lifecycleevents "github.com/Black-And-White-Club/ringside/pkg/events/lifecycle"
	liveevents "github.com/Black-And-White-Club/ringside/pkg/events/live"
	"github.com/ThreeDotsLabs/watermill/message"
)

// RelayedTopics are the event-scoped topics pushed to viewers.
var RelayedTopics = append(append([]string{}, liveevents.Topics...), lifecycleevents.EventPicksLockedV1)

// RealtimeRouter subscribes the relay to every scope of the relayed topics.
type RealtimeRouter struct {
	logger     *slog.Logger
	router     *message.Router
	subscriber message.Subscriber
}

// NewRealtimeRouter creates a new RealtimeRouter.
func NewRealtimeRouter(logger *slog.Logger, router *message.Router, subscriber message.Subscriber) *RealtimeRouter {
	return &RealtimeRouter{logger: logger, router: router, subscriber: subscriber}
}

// Configure registers one consumer handler per relayed topic.
func (r *RealtimeRouter) Configure(_ context.Context, relay *realtimeservice.Relay) error {
	for _, topic := range RelayedTopics {
		r.router.AddNoPublisherHandler(
			"realtime."+topic,
			eventbus.Wildcard(topic),
			r.subscriber,
			relay.Handler(topic),
		)
	}
	r.logger.Info("Realtime relay handlers registered successfully")
	return nil
}
