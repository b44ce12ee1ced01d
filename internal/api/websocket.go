package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/coursebook-gateway/internal/completion"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/config"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/logging"
	"github.com/nerrad567/coursebook-gateway/internal/pending"
)

// Frame types on the completion stream.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FramePing        = "ping"
	FramePong        = "pong"
	FrameEvent       = "event"
	FrameResponse    = "response"
	FrameError       = "error"

	// EventCompletion is the event type of every completion notice.
	EventCompletion = "completion"
)

const (
	streamQueueSize = 256

	defaultStreamPing    = 30 * time.Second
	defaultStreamPong    = 10 * time.Second
	defaultStreamMaxRead = 8192
)

// Frame is one message on the completion stream, in either direction.
type Frame struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// inbound is a client frame with its payload left undecoded.
type inbound struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// CompletionNotice is the payload of a completion event.
type CompletionNotice struct {
	CorrelationID string `json:"correlation_id"`
	Action        string `json:"action"`
	Status        int    `json:"status"`
	Message       string `json:"message,omitempty"`

	// Delivered is false when no request was waiting any more.
	Delivered bool `json:"delivered"`
}

// streamTiming is the resolved keepalive configuration.
type streamTiming struct {
	ping    time.Duration
	pong    time.Duration
	maxRead int64
}

func resolveTiming(cfg config.WebSocketConfig) streamTiming {
	t := streamTiming{ping: defaultStreamPing, pong: defaultStreamPong, maxRead: defaultStreamMaxRead}
	if cfg.PingInterval > 0 {
		t.ping = time.Duration(cfg.PingInterval) * time.Second
	}
	if cfg.PongTimeout > 0 {
		t.pong = time.Duration(cfg.PongTimeout) * time.Second
	}
	if cfg.MaxMessageSize > 0 {
		t.maxRead = int64(cfg.MaxMessageSize)
	}
	return t
}

// Hub fans completion notices out to stream clients.
//
// A client sees the completions for the correlation ids it subscribed to,
// or, with no subscriptions, every completion about its own token subject.
type Hub struct {
	timing streamTiming
	logger *logging.Logger

	mu      sync.RWMutex
	streams map[*stream]struct{}
}

// NewHub creates a hub. Unset websocket settings fall back to defaults.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		timing:  resolveTiming(cfg),
		logger:  logger,
		streams: make(map[*stream]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams)
}

func (h *Hub) attach(s *stream) {
	h.mu.Lock()
	h.streams[s] = struct{}{}
	n := len(h.streams)
	h.mu.Unlock()
	h.logger.Debug("stream client connected", "subject", s.subject, "clients", n)
}

func (h *Hub) detach(s *stream) {
	h.mu.Lock()
	delete(h.streams, s)
	n := len(h.streams)
	h.mu.Unlock()
	s.shut()
	h.logger.Debug("stream client disconnected", "subject", s.subject, "clients", n)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	streams := h.streams
	h.streams = make(map[*stream]struct{})
	h.mu.Unlock()

	for s := range streams {
		s.shut()
	}
}

func (h *Hub) snapshot() []*stream {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*stream, 0, len(h.streams))
	for s := range h.streams {
		out = append(out, s)
	}
	return out
}

// CompletionRouted implements completion.Listener.
//
// A 201 registration notice carries no message, so issued tokens never go
// out on the stream.
func (h *Hub) CompletionRouted(ev completion.Event, out pending.Outcome, delivered bool) {
	notice := CompletionNotice{
		CorrelationID: ev.CorrelationID,
		Action:        ev.ActionKind,
		Status:        out.Status,
		Message:       out.Body,
		Delivered:     delivered,
	}
	if ev.ActionKind == string(pending.Registration) && out.Status == http.StatusCreated {
		notice.Message = ""
	}

	data, err := encodeFrame(Frame{Type: FrameEvent, EventType: EventCompletion, Payload: notice})
	if err != nil {
		h.logger.Error("encoding completion notice", "error", err)
		return
	}

	subject := ev.Subject()
	recipients := 0
	for _, s := range h.snapshot() {
		if s.wants(ev.CorrelationID, subject) && s.enqueue(data) {
			recipients++
		}
	}
	if recipients > 0 {
		h.logger.Debug("completion streamed", "correlation_id", ev.CorrelationID, "recipients", recipients)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS middleware has already vetted the origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebSocket upgrades the request to a completion stream. The
// optional correlationId query parameter is the first subscription.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	st := &stream{
		conn:    conn,
		subject: subjectFromContext(r.Context()),
		queue:   make(chan []byte, streamQueueSize),
		done:    make(chan struct{}),
		ids:     make(map[string]struct{}),
	}
	if id := r.URL.Query().Get("correlationId"); id != "" {
		st.follow([]string{id})
	}

	s.hub.attach(st)
	go st.writeLoop(s.hub.timing)
	go func() {
		st.readLoop(s.hub.timing, s.hub.logger)
		s.hub.detach(st)
	}()
}

// stream is one connected client.
type stream struct {
	conn    *websocket.Conn
	subject string

	queue    chan []byte
	done     chan struct{}
	shutOnce sync.Once

	mu  sync.RWMutex
	ids map[string]struct{}
}

// shut stops the write loop and closes the connection. Safe to call more
// than once.
func (s *stream) shut() {
	s.shutOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// enqueue hands data to the write loop without blocking. A full queue
// drops the frame.
func (s *stream) enqueue(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.queue <- data:
		return true
	default:
		return false
	}
}

func (s *stream) follow(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

func (s *stream) unfollow(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.ids, id)
	}
}

// wants reports whether a completion for correlationID about subject
// belongs on this stream.
func (s *stream) wants(correlationID, subject string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.ids) > 0 {
		_, ok := s.ids[correlationID]
		return ok
	}
	return s.subject != "" && s.subject == subject
}

func (s *stream) readLoop(t streamTiming, logger *logging.Logger) {
	extend := func() error {
		return s.conn.SetReadDeadline(time.Now().Add(t.ping + t.pong))
	}
	s.conn.SetReadLimit(t.maxRead)
	//nolint:errcheck // a failed deadline surfaces as a read error
	extend()
	s.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("stream read failed", "subject", s.subject, "error", err)
			}
			return
		}
		//nolint:errcheck // a failed deadline surfaces as a read error
		extend()
		s.handle(data)
	}
}

func (s *stream) writeLoop(t streamTiming) {
	ticker := time.NewTicker(t.ping)
	defer ticker.Stop()

	write := func(kind int, data []byte) error {
		//nolint:errcheck // a failed deadline surfaces as a write error
		s.conn.SetWriteDeadline(time.Now().Add(t.pong))
		return s.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case <-s.done:
			//nolint:errcheck // connection is closing anyway
			write(websocket.CloseMessage, nil)
			return
		case data := <-s.queue:
			if err := write(websocket.TextMessage, data); err != nil {
				s.shut()
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				s.shut()
				return
			}
		}
	}
}

// handle answers one client frame.
func (s *stream) handle(data []byte) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		s.reply(in.ID, FrameError, map[string]string{"message": "invalid JSON message"})
		return
	}

	switch in.Type {
	case FrameSubscribe, FrameUnsubscribe:
		var body struct {
			CorrelationIDs []string `json:"correlation_ids"`
		}
		if err := json.Unmarshal(in.Payload, &body); err != nil || len(body.CorrelationIDs) == 0 {
			s.reply(in.ID, FrameError, map[string]string{"message": "invalid " + in.Type + " payload"})
			return
		}
		if in.Type == FrameSubscribe {
			s.follow(body.CorrelationIDs)
			s.reply(in.ID, FrameResponse, map[string]any{"subscribed": body.CorrelationIDs})
		} else {
			s.unfollow(body.CorrelationIDs)
			s.reply(in.ID, FrameResponse, map[string]any{"unsubscribed": body.CorrelationIDs})
		}
	case FramePing:
		s.reply(in.ID, FramePong, nil)
	default:
		s.reply(in.ID, FrameError, map[string]string{"message": "unknown message type: " + in.Type})
	}
}

func (s *stream) reply(id, kind string, payload any) {
	data, err := encodeFrame(Frame{Type: kind, ID: id, Payload: payload})
	if err == nil {
		s.enqueue(data)
	}
}

func encodeFrame(f Frame) ([]byte, error) {
	f.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return json.Marshal(f)
}
