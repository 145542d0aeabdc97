// Package scorecardhttp exposes round scoring and scorecard routes.
package scorecardhttp

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	scorecardservice "github.com/Black-And-White-Club/ringside/app/modules/scorecard/application"
	scorecarddomain "github.com/Black-And-White-Club/ringside/app/modules/scorecard/domain"
	scorecardexport "github.com/Black-And-White-Club/ringside/app/modules/scorecard/infrastructure/export"
	"github.com/Black-And-White-Club/ringside/pkg/httpserver"
	"github.com/Black-And-White-Club/ringside/pkg/jwt"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers serves scorecard routes.
type Handlers struct {
	service scorecardservice.Service
	tokens  jwt.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewHandlers creates scorecard HTTP handlers.
func NewHandlers(service scorecardservice.Service, tokens jwt.Service, logger *slog.Logger, tracer trace.Tracer) *Handlers {
	return &Handlers{service: service, tokens: tokens, logger: logger, tracer: tracer}
}

// Register mounts the routes on r.
func (h *Handlers) Register(r chi.Router) {
	r.Get("/api/events/{eventID}/scorecards", h.HandleEventScorecards)

	r.Group(func(r chi.Router) {
		r.Use(httpserver.AuthMiddleware(h.tokens))
		r.Post("/api/bouts/{boutID}/rounds/{round}/score", h.HandleSubmitScore)
		r.With(httpserver.AdminOnly).Get("/api/events/{eventID}/scorecards.xlsx", h.HandleExport)
	})
}

type submitScoreRequest struct {
	RedScore  *int `json:"red_score"`
	BlueScore *int `json:"blue_score"`
}

type roundUpdateResponse struct {
	EventID sharedtypes.EventID          `json:"event_id"`
	BoutID  sharedtypes.BoutID           `json:"bout_id"`
	Summary scorecarddomain.RoundSummary `json:"summary"`
}

type scorecardsResponse struct {
	EventID    sharedtypes.EventID             `json:"event_id"`
	Scorecards []scorecarddomain.BoutScorecard `json:"scorecards"`
}

func (h *Handlers) HandleSubmitScore(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ScorecardHTTP.HandleSubmitScore")
	defer span.End()

	round, err := strconv.Atoi(chi.URLParam(r, "round"))
	if err != nil || round < 1 {
		http.Error(w, "invalid round", http.StatusBadRequest)
		return
	}

	var req submitScoreRequest
	if err := httpserver.DecodeJSON(r, &req); err != nil || req.RedScore == nil || req.BlueScore == nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	userID, _ := httpserver.UserIDFromContext(ctx)

	update, err := h.service.SubmitRoundScore(ctx, scorecardservice.SubmitRequest{
		UserID:    userID,
		BoutID:    sharedtypes.BoutID(chi.URLParam(r, "boutID")),
		Round:     round,
		RedScore:  *req.RedScore,
		BlueScore: *req.BlueScore,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, roundUpdateResponse{
		EventID: update.EventID,
		BoutID:  update.BoutID,
		Summary: update.Summary,
	})
}

func (h *Handlers) HandleEventScorecards(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ScorecardHTTP.HandleEventScorecards")
	defer span.End()

	eventID := sharedtypes.EventID(chi.URLParam(r, "eventID"))
	cards, err := h.service.GetEventScorecards(ctx, eventID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if cards == nil {
		cards = []scorecarddomain.BoutScorecard{}
	}
	httpserver.WriteJSON(w, http.StatusOK, scorecardsResponse{EventID: eventID, Scorecards: cards})
}

// HandleExport streams the event's scorecards as an xlsx workbook.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ScorecardHTTP.HandleExport")
	defer span.End()

	eventID := sharedtypes.EventID(chi.URLParam(r, "eventID"))
	sheet, err := h.service.GetEventSheet(ctx, eventID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := scorecardexport.WriteEventSheet(&buf, sheet); err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-scorecards.xlsx"`, eventID))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(ctx, "Failed to stream scorecard export",
			attr.EventID("event_id", eventID),
			attr.Error(err),
		)
	}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !sharedtypes.IsDomainError(err) {
		h.logger.ErrorContext(r.Context(), "Scorecard request failed",
			attr.String("path", r.URL.Path),
			attr.Error(err),
		)
	}
	httpserver.WriteError(w, err)
}
