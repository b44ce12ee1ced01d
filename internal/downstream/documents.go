package downstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Default paging for list reads.
const (
	DefaultPage    = 0
	DefaultPerPage = 10
)

// StoreReply is the document store's reply envelope.
type StoreReply struct {
	StatusCode int             `json:"statusCode"`
	Message    json.RawMessage `json:"message"`
	Authorized bool            `json:"authorized"`
}

// MessageText returns Message as text when it is a JSON string.
func (r StoreReply) MessageText() (string, bool) {
	var s string
	if err := json.Unmarshal(r.Message, &s); err != nil {
		return "", false
	}
	return s, true
}

// ListQuery pages through courses or wishes.
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
}

func (q ListQuery) encode() string {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("perPage", strconv.Itoa(q.PerPage))
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v.Encode()
}

// DocumentStore reads from the document store's HTTP API.
type DocumentStore struct {
	client
}

// NewDocumentStore creates a client for the document store at baseURL.
func NewDocumentStore(baseURL string, timeout time.Duration) *DocumentStore {
	return &DocumentStore{client: newClient(baseURL, timeout)}
}

// Login forwards credentials to POST /login.
func (s *DocumentStore) Login(ctx context.Context, credentials any) (*StoreReply, error) {
	var reply StoreReply
	if err := s.do(ctx, http.MethodPost, "/login", credentials, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// ListCourses calls GET /course with paging.
func (s *DocumentStore) ListCourses(ctx context.Context, q ListQuery) (*StoreReply, error) {
	return s.get(ctx, "/course?"+q.encode())
}

// GetCourse calls GET /course/{id}.
func (s *DocumentStore) GetCourse(ctx context.Context, id string) (*StoreReply, error) {
	return s.get(ctx, "/course/"+url.PathEscape(id))
}

// ListWishes calls GET /wish with paging.
func (s *DocumentStore) ListWishes(ctx context.Context, q ListQuery) (*StoreReply, error) {
	return s.get(ctx, "/wish?"+q.encode())
}

// GetWish calls GET /wish/{id}.
func (s *DocumentStore) GetWish(ctx context.Context, id string) (*StoreReply, error) {
	return s.get(ctx, "/wish/"+url.PathEscape(id))
}

func (s *DocumentStore) get(ctx context.Context, path string) (*StoreReply, error) {
	var reply StoreReply
	if err := s.do(ctx, http.MethodGet, path, nil, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}
