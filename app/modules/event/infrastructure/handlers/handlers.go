package eventhandlers

import (
	"context"
	"log/slog"

	eventservice "github.com/Black-And-White-Club/ringside/app/modules/event/application"
	feedevents "github.com/Black-And-White-Club/ringside/pkg/events/feed"
	lifecycleevents "github.com/Black-And-White-Club/ringside/pkg/events/lifecycle"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/Black-And-White-Club/ringside/pkg/utils/handlerwrapper"
	"go.opentelemetry.io/otel/trace"
)

// EventHandlers implements the Handlers interface.
type EventHandlers struct {
	service eventservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewEventHandlers creates a new EventHandlers instance.
func NewEventHandlers(service eventservice.Service, logger *slog.Logger, tracer trace.Tracer) Handlers {
	return &EventHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

func (h *EventHandlers) HandleCardPublished(ctx context.Context, payload *feedevents.CardPublishedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "EventHandlers.HandleCardPublished")
	defer span.End()

	event, err := h.service.IngestCard(ctx, *payload)
	if err != nil {
		return nil, err
	}

	h.logger.InfoContext(ctx, "Card ingested",
		attr.ExtractCorrelationID(ctx),
		attr.EventID("event_id", event.ID),
		attr.Int("bouts", len(payload.Bouts)),
	)
	return nil, nil
}

func (h *EventHandlers) HandleEventRescheduled(ctx context.Context, payload *feedevents.EventRescheduledPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "EventHandlers.HandleEventRescheduled")
	defer span.End()

	if _, err := h.service.RescheduleEvent(ctx, payload.EventID, payload.ScheduledStart); err != nil {
		if sharedtypes.IsDomainError(err) {
			h.logger.WarnContext(ctx, "Reschedule skipped",
				attr.ExtractCorrelationID(ctx),
				attr.EventID("event_id", payload.EventID),
				attr.Error(err),
			)
			return nil, nil
		}
		return nil, err
	}
	return nil, nil
}

func (h *EventHandlers) HandleBoutStatusChanged(ctx context.Context, payload *feedevents.BoutStatusChangedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "EventHandlers.HandleBoutStatusChanged")
	defer span.End()

	change, err := h.service.RecordBoutStatus(ctx, payload.BoutID, sharedtypes.BoutStatus(payload.Status))
	if err != nil {
		if sharedtypes.IsDomainError(err) {
			h.logger.WarnContext(ctx, "Bout status change skipped",
				attr.ExtractCorrelationID(ctx),
				attr.BoutID("bout_id", payload.BoutID),
				attr.String("status", payload.Status),
				attr.Error(err),
			)
			return nil, nil
		}
		return nil, err
	}

	if !change.Changed {
		return nil, nil
	}

	return []handlerwrapper.Result{{
		Topic: lifecycleevents.BoutStatusUpdatedV1,
		Payload: &lifecycleevents.BoutStatusUpdatedPayloadV1{
			EventID:  change.EventID,
			BoutID:   change.BoutID,
			Previous: change.Previous,
			Status:   change.Current,
		},
	}}, nil
}

// HandleBoutResultRecorded stores a result. A malformed or out-of-order
// result is fatal to that bout only: it is logged and acknowledged.
func (h *EventHandlers) HandleBoutResultRecorded(ctx context.Context, payload *feedevents.BoutResultRecordedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "EventHandlers.HandleBoutResultRecorded")
	defer span.End()

	stored, err := h.service.RecordResult(ctx, *payload)
	if err != nil {
		if sharedtypes.IsDomainError(err) {
			h.logger.ErrorContext(ctx, "Rejected result from feed",
				attr.ExtractCorrelationID(ctx),
				attr.BoutID("bout_id", payload.BoutID),
				attr.String("winner_corner", payload.WinnerCorner),
				attr.Error(err),
			)
			return nil, nil
		}
		return nil, err
	}

	return []handlerwrapper.Result{{
		Topic: lifecycleevents.BoutResultStoredV1,
		Payload: &lifecycleevents.BoutResultStoredPayloadV1{
			EventID:      stored.EventID,
			BoutID:       stored.Result.BoutID,
			WinnerCorner: stored.Result.WinnerCorner,
			Method:       stored.Result.Method,
			Round:        stored.Result.Round,
			Time:         stored.Result.Time,
		},
	}}, nil
}
