package livehandlers

import (
	"context"
	"log/slog"

	liveservice "github.com/Black-And-White-Club/ringside/app/modules/live/application"
	livedomain "github.com/Black-And-White-Club/ringside/app/modules/live/domain"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	feedevents "github.com/Black-And-White-Club/ringside/pkg/events/feed"
	lifecycleevents "github.com/Black-And-White-Club/ringside/pkg/events/lifecycle"
	liveevents "github.com/Black-And-White-Club/ringside/pkg/events/live"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/Black-And-White-Club/ringside/pkg/utils/handlerwrapper"
	"go.opentelemetry.io/otel/trace"
)

// LiveHandlers implements the Handlers interface.
type LiveHandlers struct {
	service liveservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewLiveHandlers creates a new LiveHandlers instance.
func NewLiveHandlers(service liveservice.Service, logger *slog.Logger, tracer trace.Tracer) Handlers {
	return &LiveHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

func (h *LiveHandlers) HandleRoundStarted(ctx context.Context, payload *feedevents.RoundSignalPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "LiveHandlers.HandleRoundStarted")
	defer span.End()

	return h.apply(ctx, payload.BoutID, livedomain.RoundStarted(payload.Round))
}

func (h *LiveHandlers) HandleRoundEnded(ctx context.Context, payload *feedevents.RoundSignalPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "LiveHandlers.HandleRoundEnded")
	defer span.End()

	return h.apply(ctx, payload.BoutID, livedomain.RoundEnded(payload.Round))
}

func (h *LiveHandlers) HandleFightEnded(ctx context.Context, payload *feedevents.FightEndedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "LiveHandlers.HandleFightEnded")
	defer span.End()

	return h.apply(ctx, payload.BoutID, livedomain.FightEnded())
}

// apply runs the signal and fans the outcome out. A signal the phase
// machine rejects only affects its own bout, so it is logged and acked.
func (h *LiveHandlers) apply(ctx context.Context, boutID sharedtypes.BoutID, sig livedomain.Signal) ([]handlerwrapper.Result, error) {
	tr, err := h.service.ApplySignal(ctx, boutID, sig)
	if err != nil {
		if sharedtypes.IsDomainError(err) {
			h.logger.WarnContext(ctx, "Round signal rejected",
				attr.ExtractCorrelationID(ctx),
				attr.BoutID("bout_id", boutID),
				attr.String("signal", string(sig.Kind)),
				attr.Int("round", sig.Round),
				attr.Error(err),
			)
			return nil, nil
		}
		return nil, err
	}

	return transitionResults(tr), nil
}

func transitionResults(tr *liveservice.Transition) []handlerwrapper.Result {
	scope := tr.Status.EventID.String()
	var out []handlerwrapper.Result

	if tr.Closed != nil {
		out = append(out, handlerwrapper.Result{
			Topic:   eventbus.ScopedTopic(liveevents.ScoringClosedV1, scope),
			Payload: liveservice.ClosedPayload(tr.Status.EventID, *tr.Closed),
		})
	}
	if tr.Changed {
		out = append(out, handlerwrapper.Result{
			Topic:   eventbus.ScopedTopic(liveevents.StatusUpdatedV1, scope),
			Payload: liveservice.StatusPayload(tr.Status),
		})
	}
	if tr.GradingRequested {
		out = append(out, handlerwrapper.Result{
			Topic: lifecycleevents.BoutGradingRequestedV1,
			Payload: &lifecycleevents.BoutGradingRequestedPayloadV1{
				EventID: tr.Status.EventID,
				BoutID:  tr.Status.BoutID,
			},
		})
	}
	return out
}
