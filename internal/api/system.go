package api

import (
	"net/http"
	"time"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	Timestamp       string `json:"timestamp"`
	PendingRequests int    `json:"pending_requests"`
	StreamClients   int    `json:"stream_clients"`
}

// handleHealth is the liveness probe. It never touches the broker or the
// downstream services.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:          "ok",
		Version:         s.version,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		PendingRequests: s.pending.Len(),
		StreamClients:   s.hub.ClientCount(),
	})
}

// handleMetrics serves the Prometheus exposition.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "metrics disabled")
		return
	}
	s.metrics.Handler().ServeHTTP(w, r)
}
