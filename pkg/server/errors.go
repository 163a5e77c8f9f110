package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"mercator-hq/ledger/pkg/records"
	"mercator-hq/ledger/pkg/records/query"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeInvalidQuery     = "INVALID_QUERY"
	CodeInvalidBody      = "INVALID_BODY"
	CodeInvalidFormat    = "INVALID_FORMAT"
	CodeInvalidRange     = "INVALID_RANGE"
	CodeNotFound         = "NOT_FOUND"
	CodeDuplicateID      = "DUPLICATE_ID"
	CodeSweepInProgress  = "SWEEP_IN_PROGRESS"
	CodeTimeout          = "TIMEOUT"
	CodeInternal         = "INTERNAL_ERROR"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("failed to encode response", "error", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondError maps err onto a status code. Server-side failures are logged
// and their detail is withheld from the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		message := "internal server error"
		if status == http.StatusGatewayTimeout {
			message = "request timed out"
		}
		writeError(w, status, code, message)
		return
	}
	writeError(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	var (
		paramErr *query.ParamError
		queryErr *records.QueryError
	)
	switch {
	case errors.As(err, &paramErr):
		return http.StatusBadRequest, CodeInvalidParameter
	case errors.As(err, &queryErr):
		return http.StatusBadRequest, CodeInvalidQuery
	case errors.Is(err, records.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, records.ErrTimestampRange):
		return http.StatusBadRequest, CodeInvalidBody
	case errors.Is(err, records.ErrDuplicateID):
		return http.StatusConflict, CodeDuplicateID
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
