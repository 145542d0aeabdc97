// Package eventhttp exposes the admin reschedule endpoint.
package eventhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	eventservice "github.com/Black-And-White-Club/ringside/app/modules/event/application"
	eventdb "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories"
	"github.com/Black-And-White-Club/ringside/pkg/httpserver"
	"github.com/Black-And-White-Club/ringside/pkg/jwt"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
)

// Rescheduler is the slice of the event service the HTTP layer needs.
type Rescheduler interface {
	RescheduleEventFromText(ctx context.Context, eventID sharedtypes.EventID, text string) (*eventdb.Event, error)
}

// Handlers serves event admin routes.
type Handlers struct {
	service Rescheduler
	tokens  jwt.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewHandlers creates event HTTP handlers.
func NewHandlers(service Rescheduler, tokens jwt.Service, logger *slog.Logger, tracer trace.Tracer) *Handlers {
	return &Handlers{service: service, tokens: tokens, logger: logger, tracer: tracer}
}

// Register mounts the routes on r.
func (h *Handlers) Register(r chi.Router) {
	r.With(httpserver.AuthMiddleware(h.tokens), httpserver.AdminOnly).
		Post("/api/events/{eventID}/reschedule", h.HandleReschedule)
}

type rescheduleRequest struct {
	Start string `json:"start"`
}

type eventResponse struct {
	ID             sharedtypes.EventID `json:"id"`
	Name           string              `json:"name"`
	ScheduledStart string              `json:"scheduled_start"`
}

// HandleReschedule accepts {"start": "..."} as RFC3339 or natural language.
func (h *Handlers) HandleReschedule(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "EventHTTP.HandleReschedule")
	defer span.End()

	eventID := sharedtypes.EventID(chi.URLParam(r, "eventID"))

	var req rescheduleRequest
	if err := httpserver.DecodeJSON(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	event, err := h.service.RescheduleEventFromText(ctx, eventID, req.Start)
	if err != nil {
		if errors.Is(err, eventservice.ErrUnparseableTime) {
			httpserver.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error(), "code": "invalid_time"})
			return
		}
		h.logger.WarnContext(ctx, "Reschedule failed",
			attr.EventID("event_id", eventID),
			attr.Error(err),
		)
		httpserver.WriteError(w, err)
		return
	}

	httpserver.WriteJSON(w, http.StatusOK, eventResponse{
		ID:             event.ID,
		Name:           event.Name,
		ScheduledStart: event.ScheduledStart.UTC().Format(time.RFC3339),
	})
}
