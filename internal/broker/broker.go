package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/logging"
)

const defaultPublishTimeout = 5 * time.Second

// Publisher is the gateway's view of the outbound channel.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, env Envelope) error
}

// FailureObserver is told about every failed publish.
type FailureObserver interface {
	PublishFailed(routingKey string, kind PublishErrorKind)
}

// Option configures a Broker.
type Option func(*Broker)

// WithLogger sets the broker's logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Broker) {
		if l != nil {
			b.logger = l.With("component", "broker")
		}
	}
}

// WithPublishTimeout bounds each publish that arrives without a deadline.
func WithPublishTimeout(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.publishTimeout = d
		}
	}
}

// WithCompletionHandler subscribes handler to completion events on every
// successful dial.
func WithCompletionHandler(h func(payload []byte) error) Option {
	return func(b *Broker) { b.onCompletion = h }
}

// WithFailureObserver adds an observer for failed publishes. It may be
// given more than once.
func WithFailureObserver(o FailureObserver) Option {
	return func(b *Broker) {
		if o != nil {
			b.observers = append(b.observers, o)
		}
	}
}

// Broker is a lazily connected Publisher.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Concurrent dials are collapsed into one through a singleflight group.
type Broker struct {
	dial           Dialer
	logger         *logging.Logger
	publishTimeout time.Duration
	onCompletion   func(payload []byte) error
	observers      []FailureObserver

	group singleflight.Group

	mu     sync.RWMutex
	driver Driver
	closed bool
}

// New creates a Broker that dials through dial on first use.
func New(dial Dialer, opts ...Option) *Broker {
	b := &Broker{
		dial:           dial,
		logger:         logging.Discard(),
		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Connect dials now if no connection exists yet. It is optional: Publish
// connects on demand.
func (b *Broker) Connect(ctx context.Context) error {
	_, err := b.connection(ctx)
	return err
}

// connection returns the established driver, dialling if needed.
func (b *Broker) connection(ctx context.Context) (Driver, error) {
	b.mu.RLock()
	d, closed := b.driver, b.closed
	b.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if d != nil {
		return d, nil
	}

	// The shared dial outlives any one caller: each caller waits on its
	// own ctx, while the dial itself is bounded by the publish timeout.
	ch := b.group.DoChan("dial", func() (any, error) {
		dialCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.publishTimeout)
		defer cancel()

		b.mu.RLock()
		existing := b.driver
		b.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		b.logger.Info("dialling broker")
		d, err := b.dial(dialCtx)
		if err != nil {
			b.logger.Warn("broker dial failed", "error", err)
			return nil, err
		}

		if b.onCompletion != nil {
			if err := d.SubscribeCompletions(b.onCompletion); err != nil {
				_ = d.Close()
				return nil, fmt.Errorf("subscribing to completions: %w", err)
			}
		}

		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			_ = d.Close()
			return nil, ErrClosed
		}
		b.driver = d
		b.mu.Unlock()

		b.logger.Info("broker connected")
		return d, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Driver), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Publish encodes env and sends it to routingKey.
//
// Returns:
//   - error: nil once the transport accepted the message, otherwise a
//     *PublishError with Kind ConnectFailed or ChannelFailed
func (b *Broker) Publish(ctx context.Context, routingKey string, env Envelope) error {
	if routingKey == "" {
		return b.fail(routingKey, ChannelFailed, ErrInvalidRoutingKey)
	}
	payload, err := env.Encode()
	if err != nil {
		return b.fail(routingKey, ChannelFailed, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.publishTimeout)
		defer cancel()
	}

	d, err := b.connection(ctx)
	if err != nil {
		return b.fail(routingKey, ConnectFailed, err)
	}

	if err := d.Publish(ctx, routingKey, payload, env.CorrelationID()); err != nil {
		kind := ChannelFailed
		if errors.Is(err, ErrDisconnected) {
			kind = ConnectFailed
		}
		return b.fail(routingKey, kind, err)
	}
	return nil
}

func (b *Broker) fail(routingKey string, kind PublishErrorKind, err error) error {
	for _, o := range b.observers {
		o.PublishFailed(routingKey, kind)
	}
	return &PublishError{Kind: kind, RoutingKey: routingKey, Err: err}
}

// Connected reports whether a connection has been established.
func (b *Broker) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.driver != nil
}

// HealthCheck reports the state of the established connection. A broker
// that has not dialled yet is reported as ErrDisconnected.
func (b *Broker) HealthCheck(ctx context.Context) error {
	b.mu.RLock()
	d, closed := b.driver, b.closed
	b.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if d == nil {
		return ErrDisconnected
	}
	return d.HealthCheck(ctx)
}

// Close closes the connection, if any. Later publishes fail with ErrClosed.
func (b *Broker) Close() error {
	b.mu.Lock()
	d := b.driver
	b.driver = nil
	b.closed = true
	b.mu.Unlock()

	if d == nil {
		return nil
	}
	return d.Close()
}
