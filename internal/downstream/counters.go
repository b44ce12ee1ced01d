package downstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CounterReply is the counters service's reply.
type CounterReply struct {
	IsNotFound   bool            `json:"isNotFound"`
	CounterValue json.RawMessage `json:"counterValue"`
	Map          struct {
		Counters json.RawMessage `json:"counters"`
	} `json:"map"`
}

// Counters reads usage statistics from the counters service.
type Counters struct {
	client
}

// NewCounters creates a client for the counters service at baseURL.
func NewCounters(baseURL string, timeout time.Duration) *Counters {
	return &Counters{client: newClient(baseURL, timeout)}
}

// Get fetches the counter stored under the given path segments, e.g.
// Get(ctx, "course", "create", "alice") reads /course/create/alice.
func (c *Counters) Get(ctx context.Context, segments ...string) (*CounterReply, error) {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}

	var reply CounterReply
	if err := c.do(ctx, http.MethodGet, "/"+strings.Join(escaped, "/"), nil, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}
