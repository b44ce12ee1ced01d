package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/config"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/logging"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/natsbus"
)

// natsDriver publishes commands on <exchange>.command.<key>.
type natsDriver struct {
	bus *natsbus.Bus
}

// NATSDialer returns a Dialer for the NATS transport.
func NATSDialer(cfg config.BrokerConfig, logger *logging.Logger) Dialer {
	return func(ctx context.Context) (Driver, error) {
		bus, err := natsbus.Connect(ctx, cfg.NATS, natsbus.Subjects{Exchange: cfg.Exchange}, logger)
		if err != nil {
			return nil, err
		}
		return &natsDriver{bus: bus}, nil
	}
}

func (d *natsDriver) Publish(ctx context.Context, routingKey string, payload []byte, msgID string) error {
	if err := natsbus.ValidateRoutingKey(routingKey); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRoutingKey, err)
	}
	err := d.bus.Publish(ctx, d.bus.Subjects().Command(routingKey), payload, msgID)
	if errors.Is(err, natsbus.ErrNotConnected) {
		return fmt.Errorf("%w: %w", ErrDisconnected, err)
	}
	return err
}

func (d *natsDriver) SubscribeCompletions(handler func(payload []byte) error) error {
	return d.bus.Subscribe(d.bus.Subjects().Completion(), func(_ string, data []byte) error {
		return handler(data)
	})
}

func (d *natsDriver) HealthCheck(ctx context.Context) error {
	if err := d.bus.HealthCheck(ctx); err != nil {
		if errors.Is(err, natsbus.ErrNotConnected) {
			return fmt.Errorf("%w: %w", ErrDisconnected, err)
		}
		return err
	}
	return nil
}

func (d *natsDriver) Close() error {
	return d.bus.Close()
}
