// Package realtimeservice turns event-scoped bus messages into frames for
// connected viewers.
package realtimeservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	liveservice "github.com/Black-And-White-Club/ringside/app/modules/live/application"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SnapshotType is the frame sent to a viewer right after connecting.
const SnapshotType = "live.snapshot"

// ErrNoScope is returned for messages that name no event.
var ErrNoScope = errors.New("message carries no event scope")

// Frame is what a viewer receives over the socket.
type Frame struct {
	Type    string              `json:"type"`
	EventID sharedtypes.EventID `json:"event_id"`
	Payload json.RawMessage     `json:"payload"`
}

// Broadcaster delivers frames to every viewer watching an event.
type Broadcaster interface {
	Broadcast(eventID sharedtypes.EventID, frame Frame)
}

// Snapshotter supplies the aggregate a new viewer starts from.
type Snapshotter interface {
	GetEventLive(ctx context.Context, eventID sharedtypes.EventID) (*liveservice.EventLive, error)
}

// Relay forwards bus messages to a Broadcaster.
type Relay struct {
	broadcaster Broadcaster
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewRelay creates a Relay.
func NewRelay(broadcaster Broadcaster, logger *slog.Logger, tracer trace.Tracer) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{broadcaster: broadcaster, logger: logger, tracer: tracer}
}

// FrameFromMessage builds a frame for a message received on a scoped
// subject of baseTopic. The event comes from the topic metadata and falls
// back to the payload's event_id.
func FrameFromMessage(baseTopic string, msg *message.Message) (Frame, error) {
	if !json.Valid(msg.Payload) {
		return Frame{}, fmt.Errorf("payload on %s is not json", baseTopic)
	}

	frame := Frame{Type: baseTopic, Payload: json.RawMessage(msg.Payload)}
	if scope, ok := eventbus.ScopeFromTopic(baseTopic, msg.Metadata.Get(eventbus.TopicMetadataKey)); ok {
		frame.EventID = sharedtypes.EventID(scope)
		return frame, nil
	}

	var body struct {
		EventID sharedtypes.EventID `json:"event_id"`
	}
	if err := json.Unmarshal(msg.Payload, &body); err != nil || body.EventID == "" {
		return Frame{}, ErrNoScope
	}
	frame.EventID = body.EventID
	return frame, nil
}

// Handler returns the watermill handler relaying baseTopic. Messages that
// cannot be framed are logged and acknowledged.
func (r *Relay) Handler(baseTopic string) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		ctx := attr.WithCorrelationID(msg.Context(), middleware.MessageCorrelationID(msg))
		if r.tracer != nil {
			var span trace.Span
			ctx, span = r.tracer.Start(ctx, "Relay."+baseTopic, trace.WithAttributes(
				attribute.String("message_id", msg.UUID),
			))
			defer span.End()
		}

		frame, err := FrameFromMessage(baseTopic, msg)
		if err != nil {
			r.logger.WarnContext(ctx, "Dropping unrelayable message",
				attr.ExtractCorrelationID(ctx),
				attr.String("topic", baseTopic),
				attr.Error(err),
			)
			return nil
		}

		r.broadcaster.Broadcast(frame.EventID, frame)
		return nil
	}
}

// Snapshots builds opening frames from the live aggregate.
type Snapshots struct {
	source Snapshotter
}

func NewSnapshots(source Snapshotter) *Snapshots {
	return &Snapshots{source: source}
}

// Snapshot returns the opening frame for a viewer of eventID.
func (s *Snapshots) Snapshot(ctx context.Context, eventID sharedtypes.EventID) (*Frame, error) {
	if s == nil || s.source == nil {
		return nil, nil
	}
	live, err := s.source.GetEventLive(ctx, eventID)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(SnapshotPayload(live))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return &Frame{Type: SnapshotType, EventID: eventID, Payload: payload}, nil
}

type snapshotPayload struct {
	Statuses            []liveservice.LiveStatus `json:"statuses"`
	PollIntervalSeconds int                      `json:"poll_interval_seconds"`
}

// SnapshotPayload shapes an EventLive the way the polling endpoint does.
func SnapshotPayload(live *liveservice.EventLive) any {
	statuses := live.Statuses
	if statuses == nil {
		statuses = []liveservice.LiveStatus{}
	}
	return snapshotPayload{Statuses: statuses, PollIntervalSeconds: int(live.PollInterval.Seconds())}
}
