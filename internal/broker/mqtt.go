package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/config"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/logging"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/mqtt"
)

// mqttDriver publishes commands as MQTT messages on <exchange>/command/<key>.
type mqttDriver struct {
	client *mqtt.Client
}

// MQTTDialer returns a Dialer for the MQTT transport.
func MQTTDialer(cfg config.BrokerConfig, logger *logging.Logger) Dialer {
	return func(ctx context.Context) (Driver, error) {
		var opts []mqtt.Option
		if logger != nil {
			opts = append(opts, mqtt.WithLogger(logger.With("component", "mqtt")))
		}
		client, err := mqtt.Connect(ctx, cfg.MQTT, mqtt.Topics{Exchange: cfg.Exchange}, opts...)
		if err != nil {
			return nil, err
		}
		return &mqttDriver{client: client}, nil
	}
}

func (d *mqttDriver) Publish(ctx context.Context, routingKey string, payload []byte, _ string) error {
	if err := mqtt.ValidateRoutingKey(routingKey); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRoutingKey, err)
	}
	topic := d.client.Topics().Command(routingKey)
	err := d.client.Publish(ctx, topic, payload, d.client.QoS(), false)
	if errors.Is(err, mqtt.ErrNotConnected) {
		return fmt.Errorf("%w: %w", ErrDisconnected, err)
	}
	return err
}

func (d *mqttDriver) SubscribeCompletions(handler func(payload []byte) error) error {
	return d.client.Subscribe(d.client.Topics().Completion(), d.client.QoS(), func(_ string, payload []byte) error {
		return handler(payload)
	})
}

func (d *mqttDriver) HealthCheck(ctx context.Context) error {
	if err := d.client.HealthCheck(ctx); err != nil {
		if errors.Is(err, mqtt.ErrNotConnected) {
			return fmt.Errorf("%w: %w", ErrDisconnected, err)
		}
		return err
	}
	return nil
}

func (d *mqttDriver) Close() error {
	return d.client.Close()
}
