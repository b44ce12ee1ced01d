package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/nerrad567/coursebook-gateway/internal/broker"
	"github.com/nerrad567/coursebook-gateway/internal/downstream"
	"github.com/nerrad567/coursebook-gateway/internal/pending"
)

// errInvalidBody is reported for bodies that are not a JSON object.
var errInvalidBody = errors.New("request body must be a JSON object")

// decodeBody decodes a JSON object body into v. An empty body decodes as
// an empty object so that field validation produces the usual messages.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return errInvalidBody
}

// present reports whether a raw JSON field holds a usable value. Absent,
// null, false, 0 and "" count as missing.
func present(raw json.RawMessage) bool {
	switch string(raw) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}

// publishStat sends a counters message in the background. Its failure is
// logged and never reaches the caller.
func (s *Server) publishStat(r *http.Request, env broker.Envelope) {
	ctx := context.WithoutCancel(r.Context())
	reqID := requestID(r)

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if err := s.publisher.Publish(ctx, broker.RouteCounters, env); err != nil {
			s.logger.Warn("stat message not published",
				"action", env.Action(),
				"error", err,
				"request_id", reqID,
			)
		}
	}()
}

// enqueue publishes a fire-and-forget command and answers 202 with
// accepted once the broker has it.
func (s *Server) enqueue(w http.ResponseWriter, r *http.Request, env broker.Envelope, accepted string) {
	if err := s.publisher.Publish(r.Context(), broker.RouteDocuments, env); err != nil {
		s.writePublishError(w, r, env.Action(), err)
		return
	}
	writeText(w, http.StatusAccepted, accepted)
}

// dispatch publishes a command that expects a completion and holds the
// request until the pending registry delivers its outcome or the client
// goes away.
//
// The entry is registered before publishing because a fast worker can
// answer before Publish returns. A failed publish cancels the entry.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, kind pending.ActionKind, env broker.Envelope) {
	id := uuid.NewString()
	env.WithCorrelationID(id)
	log := s.logger.With("correlation_id", id, "action", kind, "request_id", requestID(r))

	sink := pending.NewChanSink()
	if err := s.pending.Register(id, sink, kind, 0); err != nil {
		if errors.Is(err, pending.ErrClosed) {
			writeUnavailable(w, pending.ShutdownMessage)
			return
		}
		log.Error("pending registration failed", "error", err)
		writeInternalError(w, "unable to track request")
		return
	}

	if err := s.publisher.Publish(r.Context(), broker.RouteDocuments, env); err != nil {
		s.pending.Cancel(id)
		s.writePublishError(w, r, string(kind), err)
		return
	}
	log.Debug("awaiting completion")

	select {
	case out, ok := <-sink.C():
		if !ok {
			writeUnavailable(w, "request cancelled")
			return
		}
		if out.TimedOut() {
			log.Warn("no completion before timeout")
		}
		writeOutcome(w, out)
	case <-r.Context().Done():
		if s.pending.Cancel(id) {
			log.Info("client went away before completion")
		}
	}
}

// writePublishError answers a failed primary publish with 503.
func (s *Server) writePublishError(w http.ResponseWriter, r *http.Request, action string, err error) {
	s.logger.Error("command not published",
		"action", action,
		"kind", broker.KindOf(err).String(),
		"error", err,
		"request_id", requestID(r),
	)
	writeUnavailable(w, "Unable to queue "+action)
}

// writeStoreReply relays a document store read. A JSON string message is
// sent as text, anything else as JSON.
func (s *Server) writeStoreReply(w http.ResponseWriter, reply *downstream.StoreReply, err error) {
	if err != nil {
		s.logger.Error("document store read failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reply.StatusCode < http.StatusOK || reply.StatusCode > 599 {
		writeError(w, http.StatusBadGateway, ErrCodeBadGateway, "document store reply has no valid status")
		return
	}
	if text, ok := reply.MessageText(); ok {
		writeText(w, reply.StatusCode, text)
		return
	}
	if len(reply.Message) == 0 {
		w.WriteHeader(reply.StatusCode)
		return
	}
	writeRawJSON(w, reply.StatusCode, reply.Message)
}
