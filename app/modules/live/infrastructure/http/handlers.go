// Package livehttp serves live bout status for polling clients.
package livehttp

import (
	"log/slog"
	"net/http"

	liveservice "github.com/Black-And-White-Club/ringside/app/modules/live/application"
	"github.com/Black-And-White-Club/ringside/pkg/httpserver"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
)

const maxBouts = 50

// Handlers serves live routes.
type Handlers struct {
	service liveservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewHandlers creates live HTTP handlers.
func NewHandlers(service liveservice.Service, logger *slog.Logger, tracer trace.Tracer) *Handlers {
	return &Handlers{service: service, logger: logger, tracer: tracer}
}

// Register mounts the routes on r.
func (h *Handlers) Register(r chi.Router) {
	r.Get("/api/live/status", h.HandleStatus)
	r.Get("/api/events/{eventID}/live", h.HandleEventLive)
}

type statusResponse struct {
	Statuses map[sharedtypes.BoutID]liveservice.LiveStatus `json:"statuses"`
}

type eventLiveResponse struct {
	EventID             sharedtypes.EventID      `json:"event_id"`
	Statuses            []liveservice.LiveStatus `json:"statuses"`
	PollIntervalSeconds int                      `json:"poll_interval_seconds"`
}

// HandleStatus answers ?bout_ids=a,b,c.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "LiveHTTP.HandleStatus")
	defer span.End()

	ids := httpserver.BoutIDs(httpserver.ParseIDList(r.URL.Query().Get("bout_ids")))
	if len(ids) == 0 {
		http.Error(w, "bout_ids is required", http.StatusBadRequest)
		return
	}
	if len(ids) > maxBouts {
		http.Error(w, "too many bout_ids", http.StatusBadRequest)
		return
	}

	statuses, err := h.service.GetLiveStatus(ctx, ids)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, statusResponse{Statuses: statuses})
}

// HandleEventLive returns every bout of the event with the polling hint.
// A zero interval tells the client it can stop polling.
func (h *Handlers) HandleEventLive(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "LiveHTTP.HandleEventLive")
	defer span.End()

	live, err := h.service.GetEventLive(ctx, sharedtypes.EventID(chi.URLParam(r, "eventID")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, eventLiveResponse{
		EventID:             live.EventID,
		Statuses:            live.Statuses,
		PollIntervalSeconds: int(live.PollInterval.Seconds()),
	})
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !sharedtypes.IsDomainError(err) {
		h.logger.ErrorContext(r.Context(), "Live request failed",
			attr.String("path", r.URL.Path),
			attr.Error(err),
		)
	}
	httpserver.WriteError(w, err)
}
