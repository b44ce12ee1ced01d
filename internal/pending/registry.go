package pending

import (
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/logging"
)

// DefaultTimeout bounds an entry whose action has no configured timeout.
const DefaultTimeout = 5 * time.Second

// Timeouts holds the suspension bound per action kind.
type Timeouts struct {
	Default   time.Duration
	PerAction map[ActionKind]time.Duration
}

// For returns the bound for kind, falling back to Default and then to
// DefaultTimeout.
func (t Timeouts) For(kind ActionKind) time.Duration {
	if d, ok := t.PerAction[kind]; ok && d > 0 {
		return d
	}
	if t.Default > 0 {
		return t.Default
	}
	return DefaultTimeout
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry's logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTimeouts sets the per-action bounds used when Register is called
// with a zero timeout.
func WithTimeouts(t Timeouts) Option {
	return func(r *Registry) {
		r.timeouts = t
	}
}

// WithObserver adds an observer notified of every closed entry. It may be
// given more than once; observers run in the order added.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

type entry struct {
	id        string
	kind      ActionKind
	sink      Sink
	createdAt time.Time
	timer     *time.Timer
}

// Registry maps correlation ids to waiting callers.
//
// Thread Safety:
//   - All methods are safe for concurrent use. A single mutex guards the
//     map; sinks and the observer are invoked after it is released.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	timeouts  Timeouts
	observers []Observer
	logger    *logging.Logger
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register inserts an entry and arms its expiry timer.
//
// Parameters:
//   - id: Correlation id; must not be pending already
//   - sink: Receives the terminal outcome; must be non-nil
//   - kind: Action that created the entry
//   - timeout: Suspension bound; zero or negative uses the configured
//     bound for kind
//
// Returns:
//   - error: ErrInvalidEntry, ErrDuplicateID or ErrClosed
func (r *Registry) Register(id string, sink Sink, kind ActionKind, timeout time.Duration) error {
	if id == "" || sink == nil {
		return ErrInvalidEntry
	}
	if timeout <= 0 {
		timeout = r.timeouts.For(kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if _, exists := r.entries[id]; exists {
		r.logger.Error("duplicate correlation id registered", "correlation_id", id, "action", kind)
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	e := &entry{
		id:        id,
		kind:      kind,
		sink:      sink,
		createdAt: time.Now(),
	}
	// The timer callback takes the lock, so it cannot observe the map
	// before this function returns.
	e.timer = time.AfterFunc(timeout, func() { r.expire(e) })
	r.entries[id] = e

	r.logger.Debug("pending entry registered", "correlation_id", id, "action", kind, "timeout", timeout)
	return nil
}

// ResolveOnce removes the entry for id and delivers out to its sink.
// It returns false when no entry was pending, which covers late and
// duplicate completions as well as unknown ids.
func (r *Registry) ResolveOnce(id string, out Outcome) bool {
	e := r.take(id, nil)
	if e == nil {
		return false
	}

	out.CorrelationID = id
	out.Disposition = Resolved
	e.sink.Deliver(out)
	r.notify(e, Resolved, out.Status)
	return true
}

// Cancel removes the entry for id without delivering anything. It is used
// when the waiting caller has gone away.
func (r *Registry) Cancel(id string) bool {
	e := r.take(id, nil)
	if e == nil {
		return false
	}

	if d, ok := e.sink.(discarder); ok {
		d.Discard()
	}
	r.notify(e, Cancelled, 0)
	return true
}

// expire is the timer callback. It only acts if e is still the live entry
// for its id.
func (r *Registry) expire(e *entry) {
	if r.take(e.id, e) == nil {
		return
	}

	out := timeoutOutcome(e.id)
	e.sink.Deliver(out)
	r.logger.Warn("pending entry expired", "correlation_id", e.id, "action", e.kind, "age", time.Since(e.createdAt))
	r.notify(e, Expired, out.Status)
}

// take removes and returns the entry for id. When want is non-nil the
// entry is only removed if it is that exact entry.
func (r *Registry) take(id string, want *entry) *entry {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok || (want != nil && e != want) {
		r.mu.Unlock()
		return nil
	}
	delete(r.entries, id)
	r.mu.Unlock()

	e.timer.Stop()
	return e
}

func (r *Registry) notify(e *entry, d Disposition, status int) {
	if len(r.observers) == 0 {
		return
	}
	c := Closure{
		ID:          e.id,
		Kind:        e.kind,
		Disposition: d,
		Status:      status,
		Age:         time.Since(e.createdAt),
	}
	for _, o := range r.observers {
		o.EntryClosed(c)
	}
}

// Len returns the number of pending entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close rejects further registrations and answers every pending entry with
// a shutdown outcome. It is safe to call more than once.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	remaining := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range remaining {
		e.timer.Stop()
		out := shutdownOutcome(e.id)
		e.sink.Deliver(out)
		r.notify(e, Shutdown, out.Status)
	}
	if len(remaining) > 0 {
		r.logger.Info("pending registry closed", "released", len(remaining))
	}
}
