package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/coursebook-gateway/internal/broker"
	"github.com/nerrad567/coursebook-gateway/internal/downstream"
	"github.com/nerrad567/coursebook-gateway/internal/pending"
)

// Course actions.
const (
	actionCourseCreate = string(pending.CourseCreate)
	actionCourseFetch  = "COURSE_FETCH"
	actionCourseUpdate = "COURSE_UPDATE"
	actionCourseDelete = "COURSE_DELETE"
)

// Course messages.
const (
	msgCourseNameMissing   = "Course name is missing."
	msgCourseNoSources     = "Course has no sources."
	msgCourseNoDescription = "Course has no description."
	msgCourseUpdateQueued  = "Course update has been queued for processing"
	msgCourseDeleteQueued  = "Course has been queued for deletion."
)

// fetchAll is the stat id recorded for list reads.
const fetchAll = "ALL"

// courseRequest is the create and update body. Fields the gateway does not
// validate by type are relayed verbatim, whatever JSON value they hold.
type courseRequest struct {
	Name             string          `json:"name"`
	Sources          json.RawMessage `json:"sources"`
	Description      string          `json:"description"`
	ShortDescription json.RawMessage `json:"shortDescription"`
	Wish             json.RawMessage `json:"wish"`
}

// relay copies raw into fields under key unless the client omitted it.
func relay(fields map[string]any, key string, raw json.RawMessage) {
	if len(raw) > 0 {
		fields[key] = raw
	}
}

// problem returns the first validation failure, checked in the order
// name, sources, description.
func (c courseRequest) problem() string {
	switch {
	case c.Name == "":
		return msgCourseNameMissing
	case !present(c.Sources):
		return msgCourseNoSources
	case c.Description == "":
		return msgCourseNoDescription
	}
	return ""
}

// decodeCourse reads and validates a course body, writing the 400 itself.
func decodeCourse(w http.ResponseWriter, r *http.Request) (courseRequest, bool) {
	var body courseRequest
	if err := decodeBody(r, &body); err != nil {
		writeBadRequest(w, err.Error())
		return body, false
	}
	if msg := body.problem(); msg != "" {
		writeText(w, http.StatusBadRequest, msg)
		return body, false
	}
	return body, true
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeCourse(w, r)
	if !ok {
		return
	}
	username, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	s.publishStat(r, broker.NewEnvelope(actionCourseCreate, map[string]any{
		"username": username,
	}))

	fields := map[string]any{
		"author":      username,
		"name":        body.Name,
		"sources":     body.Sources,
		"description": body.Description,
	}
	relay(fields, "shortDescription", body.ShortDescription)
	relay(fields, "wish", body.Wish)
	s.dispatch(w, r, pending.CourseCreate, broker.NewEnvelope(actionCourseCreate, fields))
}

func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "id")
	body, ok := decodeCourse(w, r)
	if !ok {
		return
	}
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	s.publishStat(r, broker.NewEnvelope(actionCourseUpdate, map[string]any{
		"id": courseID,
	}))

	fields := map[string]any{
		"courseId":    courseID,
		"name":        body.Name,
		"sources":     body.Sources,
		"description": body.Description,
	}
	relay(fields, "shortDescription", body.ShortDescription)
	s.enqueue(w, r, broker.NewEnvelope(actionCourseUpdate, fields), msgCourseUpdateQueued)
}

func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "id")
	username, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	s.publishStat(r, broker.NewEnvelope(actionCourseDelete, map[string]any{
		"username": username,
	}))

	s.enqueue(w, r, broker.NewEnvelope(actionCourseDelete, map[string]any{
		"courseId": courseID,
	}), msgCourseDeleteQueued)
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	s.publishStat(r, broker.NewEnvelope(actionCourseFetch, map[string]any{"id": fetchAll}))
	if s.documents == nil {
		writeUnavailable(w, "document store not configured")
		return
	}
	reply, err := s.documents.ListCourses(r.Context(), listQuery(r))
	s.writeStoreReply(w, reply, err)
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "id")
	s.publishStat(r, broker.NewEnvelope(actionCourseFetch, map[string]any{"id": courseID}))
	if s.documents == nil {
		writeUnavailable(w, "document store not configured")
		return
	}
	reply, err := s.documents.GetCourse(r.Context(), courseID)
	s.writeStoreReply(w, reply, err)
}

// listQuery reads page, perPage and search. Missing or unparsable numbers
// fall back to the defaults.
func listQuery(r *http.Request) downstream.ListQuery {
	q := r.URL.Query()
	lq := downstream.ListQuery{
		Page:    downstream.DefaultPage,
		PerPage: downstream.DefaultPerPage,
		Search:  q.Get("search"),
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n >= 0 {
		lq.Page = n
	}
	if n, err := strconv.Atoi(q.Get("perPage")); err == nil && n > 0 {
		lq.PerPage = n
	}
	return lq
}
