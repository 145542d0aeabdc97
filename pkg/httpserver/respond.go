package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps domain errors onto HTTP status codes. Anything unknown is
// reported as a 500 without leaking the underlying message.
func WriteError(w http.ResponseWriter, err error) {
	status, code := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	WriteJSON(w, status, errorBody{Error: msg, Code: code})
}

// StatusFor returns the HTTP status and stable error code for err.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, sharedtypes.ErrLocked):
		return http.StatusConflict, "locked"
	case errors.Is(err, sharedtypes.ErrWindowClosed):
		return http.StatusConflict, "window_closed"
	case errors.Is(err, sharedtypes.ErrInvalidBoutState):
		return http.StatusConflict, "invalid_bout_state"
	case errors.Is(err, sharedtypes.ErrInvalidScore):
		return http.StatusBadRequest, "invalid_score"
	case errors.Is(err, sharedtypes.ErrInvalidCorner):
		return http.StatusBadRequest, "invalid_corner"
	case errors.Is(err, sharedtypes.ErrInvalidPrediction):
		return http.StatusBadRequest, "invalid_prediction"
	case errors.Is(err, sharedtypes.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// ParseIDList splits a comma separated query value, dropping blanks and duplicates.
func ParseIDList(raw string) []string {
	if raw == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// BoutIDs converts raw ids into bout ids.
func BoutIDs(raw []string) []sharedtypes.BoutID {
	out := make([]sharedtypes.BoutID, len(raw))
	for i, id := range raw {
		out[i] = sharedtypes.BoutID(id)
	}
	return out
}
