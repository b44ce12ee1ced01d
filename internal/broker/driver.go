package broker

import (
	"context"
	"fmt"

	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/config"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/logging"
)

// Driver is one established transport connection.
type Driver interface {
	// Publish sends payload to the worker behind routingKey and waits for the
	// transport to accept it. msgID may be empty. A driver whose connection is
	// down returns an error wrapping ErrDisconnected.
	Publish(ctx context.Context, routingKey string, payload []byte, msgID string) error

	// SubscribeCompletions delivers every completion event payload to handler.
	SubscribeCompletions(handler func(payload []byte) error) error

	// HealthCheck reports whether the connection is usable.
	HealthCheck(ctx context.Context) error

	Close() error
}

// Dialer establishes a Driver. It is called lazily and may be called again
// after a failure.
type Dialer func(ctx context.Context) (Driver, error)

// DialerFor selects the Dialer named by cfg.Driver.
func DialerFor(cfg config.BrokerConfig, logger *logging.Logger) (Dialer, error) {
	switch cfg.Driver {
	case "", config.DriverMQTT:
		return MQTTDialer(cfg, logger), nil
	case config.DriverNATS:
		return NATSDialer(cfg, logger), nil
	default:
		return nil, fmt.Errorf("broker: unknown driver %q", cfg.Driver)
	}
}
