package pending

import (
	"net/http"
	"sync"
	"time"
)

// ActionKind names the action that created a pending entry.
type ActionKind string

// Action kinds that suspend their caller.
const (
	Registration ActionKind = "REGISTRATION"
	CourseCreate ActionKind = "COURSE_CREATE"
	WishCreate   ActionKind = "WISH_CREATE"
)

// Messages used for registry-generated outcomes.
const (
	TimeoutMessage  = "Request timed out; processing may still complete."
	ShutdownMessage = "gateway shutting down"
)

// Disposition records how an entry left the registry.
type Disposition string

// Dispositions reported to an Observer.
const (
	Resolved  Disposition = "resolved"
	Expired   Disposition = "expired"
	Cancelled Disposition = "cancelled"
	Shutdown  Disposition = "shutdown"
)

// Outcome is the terminal response delivered to a waiting caller.
type Outcome struct {
	// Status is the HTTP-style status code.
	Status int

	// Body is the response body. Pass-through worker messages and minted
	// tokens are carried verbatim.
	Body string

	// CorrelationID identifies the entry the outcome was delivered for.
	CorrelationID string

	// Disposition is Resolved for real completions, Expired or Shutdown for
	// registry-generated outcomes.
	Disposition Disposition
}

// TimedOut reports whether the outcome was generated by expiry.
func (o Outcome) TimedOut() bool {
	return o.Disposition == Expired
}

func timeoutOutcome(id string) Outcome {
	return Outcome{
		Status:        http.StatusAccepted,
		Body:          TimeoutMessage,
		CorrelationID: id,
		Disposition:   Expired,
	}
}

func shutdownOutcome(id string) Outcome {
	return Outcome{
		Status:        http.StatusServiceUnavailable,
		Body:          ShutdownMessage,
		CorrelationID: id,
		Disposition:   Shutdown,
	}
}

// Sink receives the single terminal outcome of a pending entry.
// Deliver is called at most once per registration and must not block.
type Sink interface {
	Deliver(Outcome)
}

// discarder is implemented by sinks that want to be told when their entry
// was cancelled without an outcome.
type discarder interface {
	Discard()
}

// ChanSink is a Sink backed by a one-slot channel. The channel is closed
// after delivery or discard, so a receive never blocks past the entry's end.
type ChanSink struct {
	ch        chan Outcome
	closeOnce sync.Once
}

// NewChanSink creates a ChanSink ready for registration.
func NewChanSink() *ChanSink {
	return &ChanSink{ch: make(chan Outcome, 1)}
}

// C returns the channel the waiting caller receives on. A receive that
// yields ok == false means the entry was cancelled.
func (s *ChanSink) C() <-chan Outcome {
	return s.ch
}

// Deliver implements Sink.
func (s *ChanSink) Deliver(out Outcome) {
	s.closeOnce.Do(func() {
		select {
		case s.ch <- out:
		default:
		}
		close(s.ch)
	})
}

// Discard closes the channel without an outcome.
func (s *ChanSink) Discard() {
	s.closeOnce.Do(func() {
		close(s.ch)
	})
}

// Closure describes an entry that has left the registry.
type Closure struct {
	ID          string
	Kind        ActionKind
	Disposition Disposition
	Status      int
	Age         time.Duration
}

// Observer is notified after every entry leaves the registry. It is called
// outside the registry lock and must not block.
type Observer interface {
	EntryClosed(Closure)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Closure)

// EntryClosed implements Observer.
func (f ObserverFunc) EntryClosed(c Closure) {
	f(c)
}
