package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/coursebook-gateway/internal/audit"
)

// handleListAudit returns paginated audit records with optional filters.
//
// Query parameters:
//   - correlation_id: a single request's trail
//   - action: REGISTRATION, COURSE_CREATE, WISH_CREATE, PUBLISH
//   - disposition: resolved, expired, cancelled, shutdown, publish_failed
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotSupported, "audit trail not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		CorrelationID: q.Get("correlation_id"),
		Action:        q.Get("action"),
		Disposition:   q.Get("disposition"),
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit records", "error", err)
		writeInternalError(w, "failed to list audit records")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
