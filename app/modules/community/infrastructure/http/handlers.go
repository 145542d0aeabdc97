// Package communityhttp serves community pick percentages.
package communityhttp

import (
	"log/slog"
	"net/http"

	communityservice "github.com/Black-And-White-Club/ringside/app/modules/community/application"
	communitydomain "github.com/Black-And-White-Club/ringside/app/modules/community/domain"
	"github.com/Black-And-White-Club/ringside/pkg/httpserver"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
)

// maxBouts bounds one request to a large card's worth of bouts.
const maxBouts = 50

// Handlers serves community routes.
type Handlers struct {
	service communityservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewHandlers creates community HTTP handlers.
func NewHandlers(service communityservice.Service, logger *slog.Logger, tracer trace.Tracer) *Handlers {
	return &Handlers{service: service, logger: logger, tracer: tracer}
}

// Register mounts the routes on r.
func (h *Handlers) Register(r chi.Router) {
	r.Get("/api/community/percentages", h.HandlePercentages)
}

type percentagesEntry struct {
	communitydomain.Percentages
	Displayable bool `json:"displayable"`
}

type percentagesResponse struct {
	Percentages map[sharedtypes.BoutID]percentagesEntry `json:"percentages"`
}

// HandlePercentages answers ?bout_ids=a,b,c. An empty map means the
// numbers are unknown right now, not that nobody picked.
func (h *Handlers) HandlePercentages(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CommunityHTTP.HandlePercentages")
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

	batch := h.service.GetBatchCommunityPercentages(ctx, ids)
	resp := percentagesResponse{Percentages: make(map[sharedtypes.BoutID]percentagesEntry, len(batch))}
	for id, p := range batch {
		resp.Percentages[id] = percentagesEntry{Percentages: p, Displayable: h.service.Displayable(p.TotalPicks)}
	}
	httpserver.WriteJSON(w, http.StatusOK, resp)
}
