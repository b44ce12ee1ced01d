package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/coursebook-gateway/internal/downstream"
)

// countResponse is the body of a found counter.
type countResponse struct {
	Count json.RawMessage `json:"count"`
}

// attemptsResponse is the body of the login stats endpoint.
type attemptsResponse struct {
	Attempts json.RawMessage `json:"attempts"`
}

// handleLoginStats reports login attempts from the caller's own address.
func (s *Server) handleLoginStats(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	reply, ok := s.readCounter(w, r, "login", ip)
	if !ok {
		return
	}
	if reply.IsNotFound {
		writeText(w, http.StatusNotFound, "there are no login data for this ip: "+ip)
		return
	}
	writeJSON(w, http.StatusOK, attemptsResponse{Attempts: orNull(reply.Map.Counters)})
}

// handleRegistrationStats reports registration attempts from the caller's
// own address.
func (s *Server) handleRegistrationStats(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	s.writeCount(w, r, "REGISTRATION", ip, "registration", ip)
}

// counterStats returns a handler for /<entity>/<op>/<param> counters. An
// empty param reads the ALL counter.
func (s *Server) counterStats(statType, entity, op, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := fetchAll
		if param != "" {
			key = chi.URLParam(r, param)
		}
		s.writeCount(w, r, statType, key, entity, op, key)
	}
}

func (s *Server) writeCount(w http.ResponseWriter, r *http.Request, statType, key string, segments ...string) {
	reply, ok := s.readCounter(w, r, segments...)
	if !ok {
		return
	}
	if reply.IsNotFound {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("there are no %s stats for: %s", statType, key))
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: orNull(reply.CounterValue)})
}

// readCounter fetches a counter, writing the error response itself.
func (s *Server) readCounter(w http.ResponseWriter, r *http.Request, segments ...string) (*downstream.CounterReply, bool) {
	if s.counters == nil {
		writeUnavailable(w, "counters service not configured")
		return nil, false
	}
	reply, err := s.counters.Get(r.Context(), segments...)
	if err != nil {
		s.logger.Error("counters read failed",
			"segments", segments,
			"error", err,
			"request_id", requestID(r),
		)
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return reply, true
}

func orNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
