package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/coursebook-gateway/internal/pending"
)

// Error represents a structured error response for failures that originate
// in the gateway itself.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeInternal     = "internal_error"
	ErrCodeUnavailable  = "unavailable"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeBadGateway   = "bad_gateway"
	ErrCodeNotSupported = "not_supported"
)

// correlationHeader carries the correlation id of a suspended request so a
// caller that got the timeout outcome can follow up on the completion stream.
const correlationHeader = "X-Correlation-ID"

// messageBody is the {message} shape used by the auth and read-through
// endpoints, which existing clients already parse.
type messageBody struct {
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeRawJSON writes an already-encoded JSON document.
func writeRawJSON(w http.ResponseWriter, status int, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(raw)
}

// writeText writes a plain text response. Worker messages, validation
// failures and minted tokens travel this way.
func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write([]byte(body))
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeMessage writes {"message": message}.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageBody{Message: message})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeUnavailable writes a 503 error response.
func writeUnavailable(w http.ResponseWriter, message string) {
	writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}

// writeOutcome answers a suspended request.
//
// net/http cannot send an informational status as the final response, so
// 1xx outcomes (e.g. 102 "still processing") go out as 202.
func writeOutcome(w http.ResponseWriter, out pending.Outcome) {
	status := out.Status
	if status < http.StatusOK || status > 599 {
		status = http.StatusAccepted
	}
	if out.CorrelationID != "" {
		w.Header().Set(correlationHeader, out.CorrelationID)
	}
	writeText(w, status, out.Body)
}
