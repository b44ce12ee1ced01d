package completion

import (
	"errors"
	"net/http"
	"sync"

	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/logging"
	"github.com/nerrad567/coursebook-gateway/internal/pending"
)

// UnexpectedActionMessage answers an entry whose completion names an action
// with no translator.
const UnexpectedActionMessage = "Unexpected response action"

// Resolver delivers an outcome to a pending entry. *pending.Registry
// satisfies it.
type Resolver interface {
	ResolveOnce(id string, out pending.Outcome) bool
}

// Listener is told about every routed completion after resolution.
// Listeners are called synchronously and must not block.
type Listener interface {
	CompletionRouted(ev Event, out pending.Outcome, delivered bool)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ev Event, out pending.Outcome, delivered bool)

// CompletionRouted implements Listener.
func (f ListenerFunc) CompletionRouted(ev Event, out pending.Outcome, delivered bool) {
	f(ev, out, delivered)
}

// RouterDeps holds the Router's collaborators.
type RouterDeps struct {
	Registry Resolver
	Tokens   TokenIssuer
	Logger   *logging.Logger
}

// Router dispatches completion events to translators and resolves the
// matching pending entries.
//
// Thread Safety:
//   - OnCompletion may be called concurrently from the broker consumer and
//     the HTTP callback. The translator table is guarded by an RWMutex.
type Router struct {
	registry Resolver
	logger   *logging.Logger

	mu          sync.RWMutex
	translators map[pending.ActionKind]Translator
	listeners   []Listener
}

// NewRouter creates a Router with the standard translator table:
// REGISTRATION, COURSE_CREATE and WISH_CREATE.
func NewRouter(deps RouterDeps) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	r := &Router{
		registry:    deps.Registry,
		logger:      logger.With("component", "completion"),
		translators: make(map[pending.ActionKind]Translator),
	}
	r.Register(pending.Registration, RegistrationTranslator{Tokens: deps.Tokens})
	r.Register(pending.CourseCreate, CreationTranslator{Entity: "course"})
	r.Register(pending.WishCreate, CreationTranslator{Entity: "wish"})
	return r
}

// Register installs or replaces the translator for kind.
func (r *Router) Register(kind pending.ActionKind, t Translator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.translators[kind] = t
}

// AddListener subscribes l to routed completions.
func (r *Router) AddListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// OnCompletion translates ev and resolves its pending entry.
// It returns whether an outcome was delivered; false means the entry had
// already been resolved, expired or cancelled, or never existed.
func (r *Router) OnCompletion(ev Event) bool {
	if ev.CorrelationID == "" {
		r.logger.Warn("completion without correlation id dropped", "action", ev.ActionKind)
		return false
	}

	r.mu.RLock()
	t, ok := r.translators[pending.ActionKind(ev.ActionKind)]
	listeners := r.listeners
	r.mu.RUnlock()

	var out pending.Outcome
	if !ok {
		r.logger.Warn("unrecognized completion action",
			"correlation_id", ev.CorrelationID,
			"action", ev.ActionKind,
		)
		out = pending.Outcome{Status: http.StatusInternalServerError, Body: UnexpectedActionMessage}
	} else {
		var err error
		out, err = t.Translate(ev)
		if err != nil {
			level := r.logger.Warn
			if !errors.Is(err, ErrUnrecognizedOutcome) {
				level = r.logger.Error
			}
			level("completion translation problem",
				"correlation_id", ev.CorrelationID,
				"action", ev.ActionKind,
				"outcome_code", ev.OutcomeCode,
				"error", err,
			)
		}
	}

	delivered := r.registry.ResolveOnce(ev.CorrelationID, out)
	if delivered {
		r.logger.Info("completion delivered",
			"correlation_id", ev.CorrelationID,
			"action", ev.ActionKind,
			"status", out.Status,
		)
	} else {
		r.logger.Debug("completion for unknown or finished entry dropped",
			"correlation_id", ev.CorrelationID,
			"action", ev.ActionKind,
		)
	}

	out.CorrelationID = ev.CorrelationID
	for _, l := range listeners {
		l.CompletionRouted(ev, out, delivered)
	}
	return delivered
}

// HandleMessage decodes a raw completion message, as received from the
// broker, and routes it.
func (r *Router) HandleMessage(payload []byte) error {
	ev, err := ParseEvent(payload)
	if err != nil {
		r.logger.Warn("undecodable completion message", "error", err, "size", len(payload))
		return err
	}
	r.OnCompletion(ev)
	return nil
}
