package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"tilestock/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps the service error taxonomy to HTTP statuses. Unknown
// errors become a 500 with the message passed through.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrInvalidQuantity):
		writeError(w, r, err.Error(), "INVALID_QUANTITY", http.StatusBadRequest)
	case errors.Is(err, core.ErrMissingPackagingRatio):
		writeError(w, r, err.Error(), "MISSING_PACKAGING_RATIO", http.StatusUnprocessableEntity)
	case errors.Is(err, core.ErrUnsupportedConversion):
		writeError(w, r, err.Error(), "UNSUPPORTED_CONVERSION", http.StatusUnprocessableEntity)
	case errors.Is(err, core.ErrConsistencyViolation):
		writeError(w, r, err.Error(), "CONSISTENCY_VIOLATION", http.StatusConflict)
	default:
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
