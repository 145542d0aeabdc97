package pickhandlers

import (
	"context"
	"log/slog"

	pickservice "github.com/Black-And-White-Club/ringside/app/modules/pick/application"
	lifecycleevents "github.com/Black-And-White-Club/ringside/pkg/events/lifecycle"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/Black-And-White-Club/ringside/pkg/utils/handlerwrapper"
	"go.opentelemetry.io/otel/trace"
)

// PickHandlers implements the Handlers interface.
type PickHandlers struct {
	service pickservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewPickHandlers creates a new PickHandlers instance.
func NewPickHandlers(service pickservice.Service, logger *slog.Logger, tracer trace.Tracer) Handlers {
	return &PickHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

// HandleBoutStatusUpdated voids picks when a bout is canceled or replaced.
func (h *PickHandlers) HandleBoutStatusUpdated(ctx context.Context, payload *lifecycleevents.BoutStatusUpdatedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "PickHandlers.HandleBoutStatusUpdated")
	defer span.End()

	if !payload.Status.VoidsPicks() {
		return nil, nil
	}

	count, err := h.service.VoidPicksForBout(ctx, payload.BoutID)
	if err != nil {
		return nil, err
	}

	h.logger.InfoContext(ctx, "Picks voided",
		attr.ExtractCorrelationID(ctx),
		attr.BoutID("bout_id", payload.BoutID),
		attr.String("status", string(payload.Status)),
		attr.Int("count", count),
	)

	return []handlerwrapper.Result{{
		Topic:   lifecycleevents.PicksVoidedV1,
		Payload: &lifecycleevents.PicksVoidedPayloadV1{BoutID: payload.BoutID, Count: count},
	}}, nil
}

func (h *PickHandlers) HandleBoutResultStored(ctx context.Context, payload *lifecycleevents.BoutResultStoredPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "PickHandlers.HandleBoutResultStored")
	defer span.End()

	summary, err := h.service.GradeBout(ctx, payload.BoutID, payload.WinnerCorner)
	if err != nil {
		return nil, err
	}
	return h.graded(ctx, summary), nil
}

// HandleGradingRequested re-grades a bout from its stored result. A bout
// without a result is acknowledged; the result event grades it later.
func (h *PickHandlers) HandleGradingRequested(ctx context.Context, payload *lifecycleevents.BoutGradingRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "PickHandlers.HandleGradingRequested")
	defer span.End()

	summary, err := h.service.GradeBoutFromResult(ctx, payload.BoutID)
	if err != nil {
		if sharedtypes.IsDomainError(err) {
			h.logger.WarnContext(ctx, "Grading request skipped",
				attr.ExtractCorrelationID(ctx),
				attr.BoutID("bout_id", payload.BoutID),
				attr.Error(err),
			)
			return nil, nil
		}
		return nil, err
	}
	return h.graded(ctx, summary), nil
}

func (h *PickHandlers) graded(ctx context.Context, summary *pickservice.GradeSummary) []handlerwrapper.Result {
	if summary.Skipped {
		h.logger.InfoContext(ctx, "Non-decisive result, picks left ungraded",
			attr.ExtractCorrelationID(ctx),
			attr.BoutID("bout_id", summary.BoutID),
			attr.String("winner", string(summary.Winner)),
		)
		return nil
	}

	return []handlerwrapper.Result{{
		Topic: lifecycleevents.PicksGradedV1,
		Payload: &lifecycleevents.PicksGradedPayloadV1{
			BoutID:  summary.BoutID,
			Graded:  summary.Graded,
			Correct: summary.Correct,
		},
	}}
}
