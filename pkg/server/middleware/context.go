package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Header names read or written by the middleware.
const (
	RequestIDHeader = "X-Request-ID"
	TimezoneHeader  = "X-Timezone"
)

// errorBody is the JSON error shape shared with the handlers.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorBody{Error: message, Code: code}); err != nil {
		slog.Default().Warn("failed to encode error response", "error", err)
	}
}
