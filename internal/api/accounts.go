package api

import (
	"net/http"

	"github.com/nerrad567/coursebook-gateway/internal/broker"
	"github.com/nerrad567/coursebook-gateway/internal/pending"
)

// Account action names.
const (
	actionRegistration = string(pending.Registration)
	actionLogin        = "LOGIN"
)

// Validation messages for the credential endpoints.
const (
	msgUsernameMissing = "Username is missing."
	msgPasswordMissing = "Password is missing."
)

// credentials is the register and login request body.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c credentials) problem() string {
	switch {
	case c.Username == "":
		return msgUsernameMissing
	case c.Password == "":
		return msgPasswordMissing
	}
	return ""
}

// handleRegister queues a registration and answers with the worker's
// outcome: 201 with a token, or the worker's status and message.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if msg := body.problem(); msg != "" {
		writeText(w, http.StatusBadRequest, msg)
		return
	}

	s.publishStat(r, broker.NewEnvelope(actionRegistration, map[string]any{
		"ip": clientIP(r),
	}))

	s.dispatch(w, r, pending.Registration, broker.NewEnvelope(actionRegistration, map[string]any{
		"username": body.Username,
		"password": body.Password,
	}))
}

// handleLogin checks credentials against the document store and mints a
// token when it authorises them.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	// The store receives the caller's body untouched.
	var raw map[string]any
	if err := decodeBody(r, &raw); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if raw == nil {
		raw = map[string]any{}
	}
	username, _ := raw["username"].(string)
	password, _ := raw["password"].(string)
	if msg := (credentials{Username: username, Password: password}).problem(); msg != "" {
		writeText(w, http.StatusBadRequest, msg)
		return
	}

	s.publishStat(r, broker.NewEnvelope(actionLogin, map[string]any{
		"ip":       clientIP(r),
		"username": username,
	}))

	if s.documents == nil {
		writeUnavailable(w, "document store not configured")
		return
	}

	reply, err := s.documents.Login(r.Context(), raw)
	if err != nil {
		s.logger.Error("login check failed", "error", err, "request_id", requestID(r))
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reply.StatusCode < http.StatusOK || reply.StatusCode > 599 {
		writeError(w, http.StatusBadGateway, ErrCodeBadGateway, "document store reply has no valid status")
		return
	}

	if !reply.Authorized {
		if text, ok := reply.MessageText(); ok || len(reply.Message) == 0 {
			writeText(w, reply.StatusCode, text)
			return
		}
		writeRawJSON(w, reply.StatusCode, reply.Message)
		return
	}

	token, err := s.tokens.Issue(username)
	if err != nil {
		s.logger.Error("token issue failed", "error", err)
		writeInternalError(w, "unable to issue token")
		return
	}
	writeText(w, reply.StatusCode, token.Raw)
}
