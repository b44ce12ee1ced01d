package natsbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/config"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/logging"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	defaultStreamMaxAge   = 24 * time.Hour
	duplicateWindow       = 2 * time.Minute
)

// MessageHandler is invoked for each message on a subscribed subject.
// A returned error is logged.
type MessageHandler func(subject string, data []byte) error

// Bus wraps a NATS connection and, optionally, a JetStream context.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Bus struct {
	nc       *nats.Conn
	js       nats.JetStreamContext
	subjects Subjects
	logger   *logging.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

// Connect dials NATS once and, if cfg.JetStream is set, ensures the command
// stream exists.
//
// Parameters:
//   - ctx: Its deadline, if any, bounds the dial
//   - cfg: NATS configuration from config.yaml
//   - subjects: Subject builder for the configured exchange
//   - logger: Connection event logger
//
// Returns:
//   - *Bus: Connected bus
//   - error: ErrConnectionFailed wrapping the cause
func Connect(ctx context.Context, cfg config.NATSConfig, subjects Subjects, logger *logging.Logger) (*Bus, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With("component", "natsbus")

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	timeout := defaultConnectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	name := cfg.Name
	if name == "" {
		name = "coursebook-gateway"
	}

	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(timeout),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(time.Duration(cfg.ReconnectWait) * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("disconnected from NATS", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	b := &Bus{nc: nc, subjects: subjects, logger: logger}

	if cfg.JetStream {
		if err := b.initJetStream(); err != nil {
			nc.Close()
			return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
		}
	}

	return b, nil
}

// initJetStream obtains a JetStream context and ensures the command stream.
func (b *Bus) initJetStream() error {
	js, err := b.nc.JetStream()
	if err != nil {
		return fmt.Errorf("jetstream init: %w", err)
	}
	if _, err := js.AccountInfo(); err != nil {
		return fmt.Errorf("jetstream not available: %w", err)
	}

	name := b.subjects.StreamName()
	_, err = js.AddStream(&nats.StreamConfig{
		Name:       name,
		Subjects:   []string{b.subjects.AllCommands()},
		Retention:  nats.WorkQueuePolicy,
		Storage:    nats.FileStorage,
		MaxAge:     defaultStreamMaxAge,
		Duplicates: duplicateWindow,
	})
	if err != nil {
		// An existing stream with the same name is fine.
		if _, infoErr := js.StreamInfo(name); infoErr != nil {
			return fmt.Errorf("ensuring stream %s: %w", name, err)
		}
	}

	b.js = js
	b.logger.Info("jetstream stream ensured", "stream", name, "subjects", b.subjects.AllCommands())
	return nil
}

// JetStreamEnabled reports whether publishes go through JetStream.
func (b *Bus) JetStreamEnabled() bool {
	return b.js != nil
}

// Subjects returns the subject builder the bus was connected with.
func (b *Bus) Subjects() Subjects {
	return b.subjects
}

// Publish sends data on subject and waits for the server to accept it.
//
// msgID, when non-empty, is used for JetStream de-duplication.
func (b *Bus) Publish(ctx context.Context, subject string, data []byte, msgID string) error {
	if subject == "" {
		return ErrInvalidSubject
	}
	if !b.IsConnected() {
		return ErrNotConnected
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultPublishTimeout)
		defer cancel()
	}

	if b.js != nil {
		opts := []nats.PubOpt{nats.Context(ctx)}
		if msgID != "" {
			opts = append(opts, nats.MsgId(msgID))
		}
		if _, err := b.js.Publish(subject, data, opts...); err != nil {
			return fmt.Errorf("%w: %w", ErrPublishFailed, err)
		}
		return nil
	}

	if err := b.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	if err := b.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Subscribe attaches a core NATS subscription. Handler panics are recovered
// and logged.
func (b *Bus) Subscribe(subject string, handler MessageHandler) error {
	if subject == "" {
		return ErrInvalidSubject
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !b.IsConnected() {
		return ErrNotConnected
	}

	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("NATS handler panic recovered", "subject", msg.Subject, "panic", r)
			}
		}()
		if err := handler(msg.Subject, msg.Data); err != nil {
			b.logger.Warn("NATS handler returned error", "subject", msg.Subject, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return nil
}

// IsConnected reports whether the connection is currently up.
func (b *Bus) IsConnected() bool {
	return b != nil && b.nc != nil && b.nc.IsConnected()
}

// HealthCheck reports whether the connection is up.
func (b *Bus) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("nats health check: %w", err)
	}
	if !b.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Close unsubscribes and closes the connection.
func (b *Bus) Close() error {
	if b == nil || b.nc == nil {
		return nil
	}

	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}
	b.nc.Close()
	return errors.Join(errs...)
}
