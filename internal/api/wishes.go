package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/coursebook-gateway/internal/broker"
	"github.com/nerrad567/coursebook-gateway/internal/pending"
)

// Wish actions.
const (
	actionWishCreate = string(pending.WishCreate)
	actionWishFetch  = "WISH_FETCH"
	actionWishUpdate = "WISH_UPDATE"
	actionWishDelete = "WISH_DELETE"
)

// Wish messages.
const (
	msgWishIncomplete   = "A Wish requires a name and details"
	msgWishUpdateQueued = "Wish update has been queued for processing."
	msgWishDeleteQueued = "Wish has been queued for deletion."
)

type wishRequest struct {
	Name    string `json:"name"`
	Details string `json:"details"`
}

func decodeWish(w http.ResponseWriter, r *http.Request) (wishRequest, bool) {
	var body wishRequest
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, err.Error())
		return body, false
	}
	if body.Name == "" || body.Details == "" {
		writeText(w, http.StatusBadRequest, msgWishIncomplete)
		return body, false
	}
	return body, true
}

func (s *Server) handleCreateWish(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeWish(w, r)
	if !ok {
		return
	}
	username, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	s.publishStat(r, broker.NewEnvelope(actionWishCreate, map[string]any{
		"username": username,
	}))

	s.dispatch(w, r, pending.WishCreate, broker.NewEnvelope(actionWishCreate, map[string]any{
		"name":    body.Name,
		"details": body.Details,
		"wisher":  username,
	}))
}

func (s *Server) handleUpdateWish(w http.ResponseWriter, r *http.Request) {
	wishID := chi.URLParam(r, "id")
	body, ok := decodeWish(w, r)
	if !ok {
		return
	}
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	s.publishStat(r, broker.NewEnvelope(actionWishUpdate, map[string]any{
		"id": wishID,
	}))

	s.enqueue(w, r, broker.NewEnvelope(actionWishUpdate, map[string]any{
		"wishId":  wishID,
		"name":    body.Name,
		"details": body.Details,
	}), msgWishUpdateQueued)
}

func (s *Server) handleDeleteWish(w http.ResponseWriter, r *http.Request) {
	wishID := chi.URLParam(r, "id")
	username, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	s.publishStat(r, broker.NewEnvelope(actionWishDelete, map[string]any{
		"username": username,
	}))

	s.enqueue(w, r, broker.NewEnvelope(actionWishDelete, map[string]any{
		"wishId": wishID,
	}), msgWishDeleteQueued)
}

func (s *Server) handleListWishes(w http.ResponseWriter, r *http.Request) {
	s.publishStat(r, broker.NewEnvelope(actionWishFetch, map[string]any{"id": fetchAll}))
	if s.documents == nil {
		writeUnavailable(w, "document store not configured")
		return
	}
	reply, err := s.documents.ListWishes(r.Context(), listQuery(r))
	s.writeStoreReply(w, reply, err)
}

func (s *Server) handleGetWish(w http.ResponseWriter, r *http.Request) {
	wishID := chi.URLParam(r, "id")
	s.publishStat(r, broker.NewEnvelope(actionWishFetch, map[string]any{"id": wishID}))
	if s.documents == nil {
		writeUnavailable(w, "document store not configured")
		return
	}
	reply, err := s.documents.GetWish(r.Context(), wishID)
	s.writeStoreReply(w, reply, err)
}
