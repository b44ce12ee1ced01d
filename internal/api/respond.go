package api

import (
	"io"
	"net/http"

	"github.com/nerrad567/coursebook-gateway/internal/completion"
)

// handleRespond accepts a completion event from a worker that reports over
// HTTP instead of the broker. The caller always gets 200: whether a request
// was still waiting is none of the worker's business.
func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Warn("completion callback body unreadable", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	ev, err := completion.ParseEvent(data)
	if err != nil {
		s.logger.Warn("completion callback rejected",
			"error", err,
			"request_id", requestID(r),
		)
		w.WriteHeader(http.StatusOK)
		return
	}

	delivered := s.router.OnCompletion(ev)
	s.logger.Debug("completion callback routed",
		"correlation_id", ev.CorrelationID,
		"action", ev.ActionKind,
		"delivered", delivered,
	)
	w.WriteHeader(http.StatusOK)
}
