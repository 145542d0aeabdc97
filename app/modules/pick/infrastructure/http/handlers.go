// Package pickhttp exposes the viewer pick routes.
package pickhttp

import (
	"log/slog"
	"net/http"
	"time"

	pickservice "github.com/Black-And-White-Club/ringside/app/modules/pick/application"
	pickdb "github.com/Black-And-White-Club/ringside/app/modules/pick/infrastructure/repositories"
	"github.com/Black-And-White-Club/ringside/pkg/httpserver"
	"github.com/Black-And-White-Club/ringside/pkg/jwt"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
)

// Handlers serves pick routes.
type Handlers struct {
	service pickservice.Service
	tokens  jwt.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewHandlers creates pick HTTP handlers.
func NewHandlers(service pickservice.Service, tokens jwt.Service, logger *slog.Logger, tracer trace.Tracer) *Handlers {
	return &Handlers{service: service, tokens: tokens, logger: logger, tracer: tracer}
}

// Register mounts the routes on r.
func (h *Handlers) Register(r chi.Router) {
	r.With(httpserver.OptionalAuthMiddleware(h.tokens)).
		Get("/api/events/{eventID}/bouts", h.HandleListBouts)

	r.Group(func(r chi.Router) {
		r.Use(httpserver.AuthMiddleware(h.tokens))
		r.Put("/api/bouts/{boutID}/pick", h.HandleUpsertPick)
		r.Delete("/api/bouts/{boutID}/pick", h.HandleDeletePick)
		r.Post("/api/bouts/{boutID}/pick/select", h.HandleSelectCorner)
	})
}

type upsertPickRequest struct {
	Corner          string  `json:"corner"`
	PredictedMethod *string `json:"predicted_method,omitempty"`
	PredictedRound  *int    `json:"predicted_round,omitempty"`
}

type selectRequest struct {
	Corner string `json:"corner"`
}

type pickResponse struct {
	BoutID          sharedtypes.BoutID     `json:"bout_id"`
	Corner          sharedtypes.Corner     `json:"corner"`
	PredictedMethod *string                `json:"predicted_method,omitempty"`
	PredictedRound  *int                   `json:"predicted_round,omitempty"`
	Status          sharedtypes.PickStatus `json:"status"`
	Score           *int                   `json:"score"`
}

type boutResponse struct {
	ID              sharedtypes.BoutID     `json:"id"`
	Position        int                    `json:"position"`
	RedFighter      string                 `json:"red_fighter"`
	BlueFighter     string                 `json:"blue_fighter"`
	Status          sharedtypes.BoutStatus `json:"status"`
	ScheduledRounds int                    `json:"scheduled_rounds"`
	Pick            *pickResponse          `json:"pick"`
}

type eventBoutsResponse struct {
	EventID        sharedtypes.EventID `json:"event_id"`
	Name           string              `json:"name"`
	ScheduledStart string              `json:"scheduled_start"`
	Locked         bool                `json:"locked"`
	Bouts          []boutResponse      `json:"bouts"`
}

type selectResponse struct {
	Removed bool          `json:"removed"`
	Pick    *pickResponse `json:"pick"`
}

func toPickResponse(p *pickdb.Pick) *pickResponse {
	if p == nil {
		return nil
	}
	return &pickResponse{
		BoutID:          p.BoutID,
		Corner:          p.Corner,
		PredictedMethod: p.PredictedMethod,
		PredictedRound:  p.PredictedRound,
		Status:          p.Status,
		Score:           p.Score,
	}
}

// HandleListBouts returns an event's card with the caller's picks when a
// token is present.
func (h *Handlers) HandleListBouts(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PickHTTP.HandleListBouts")
	defer span.End()

	eventID := sharedtypes.EventID(chi.URLParam(r, "eventID"))
	userID, _ := httpserver.UserIDFromContext(ctx)

	card, err := h.service.GetBoutsForEvent(ctx, eventID, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := eventBoutsResponse{
		EventID:        card.Event.ID,
		Name:           card.Event.Name,
		ScheduledStart: card.Event.ScheduledStart.UTC().Format(time.RFC3339),
		Locked:         card.Locked,
		Bouts:          make([]boutResponse, len(card.Bouts)),
	}
	for i, b := range card.Bouts {
		resp.Bouts[i] = boutResponse{
			ID:              b.Bout.ID,
			Position:        b.Bout.Position,
			RedFighter:      b.Bout.RedFighter,
			BlueFighter:     b.Bout.BlueFighter,
			Status:          b.Bout.Status,
			ScheduledRounds: b.ScheduledRounds,
			Pick:            toPickResponse(b.Pick),
		}
	}
	httpserver.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handlers) HandleUpsertPick(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PickHTTP.HandleUpsertPick")
	defer span.End()

	var req upsertPickRequest
	if err := httpserver.DecodeJSON(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	userID, _ := httpserver.UserIDFromContext(ctx)

	pick, err := h.service.UpsertPick(ctx, pickservice.UpsertPickRequest{
		UserID:          userID,
		BoutID:          sharedtypes.BoutID(chi.URLParam(r, "boutID")),
		Corner:          req.Corner,
		PredictedMethod: req.PredictedMethod,
		PredictedRound:  req.PredictedRound,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, toPickResponse(pick))
}

func (h *Handlers) HandleDeletePick(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PickHTTP.HandleDeletePick")
	defer span.End()

	userID, _ := httpserver.UserIDFromContext(ctx)
	if err := h.service.DeletePick(ctx, userID, sharedtypes.BoutID(chi.URLParam(r, "boutID"))); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSelectCorner stores the tapped corner, or removes the pick when the
// tapped corner is already picked.
func (h *Handlers) HandleSelectCorner(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PickHTTP.HandleSelectCorner")
	defer span.End()

	var req selectRequest
	if err := httpserver.DecodeJSON(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	userID, _ := httpserver.UserIDFromContext(ctx)

	sel, err := h.service.SelectCorner(ctx, userID, sharedtypes.BoutID(chi.URLParam(r, "boutID")), req.Corner)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, selectResponse{Removed: sel.Removed, Pick: toPickResponse(sel.Pick)})
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !sharedtypes.IsDomainError(err) {
		h.logger.ErrorContext(r.Context(), "Pick request failed",
			attr.String("path", r.URL.Path),
			attr.Error(err),
		)
	}
	httpserver.WriteError(w, err)
}
