package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/config"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/logging"
)

// Errors returned by the client. Check with errors.Is.
var (
	ErrNotConnected     = errors.New("mqtt: client not connected")
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrPublishFailed    = errors.New("mqtt: publish failed")
	ErrSubscribeFailed  = errors.New("mqtt: subscribe failed")
	ErrInvalidQoS       = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")
	ErrInvalidTopic     = errors.New("mqtt: invalid topic")
)

// MessageHandler receives one message. A returned error is logged; the
// message is acknowledged regardless.
type MessageHandler func(topic string, payload []byte) error

// Option configures a Client at Connect time.
type Option func(*Client)

// WithLogger sets the logger for connection loss and handler failures.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStateHook registers fn to run on every connection state change,
// with true after a (re)connect and false after a loss.
func WithStateHook(fn func(up bool)) Option {
	return func(c *Client) { c.onState = fn }
}

// Client is a paho session carrying the gateway's command and completion
// traffic.
//
// Options are fixed at Connect, so only the connection flag and the route
// table change afterwards. Routes are re-subscribed after every reconnect.
type Client struct {
	client  pahomqtt.Client
	cfg     config.MQTTConfig
	topics  Topics
	logger  *logging.Logger
	onState func(up bool)

	up         atomic.Bool
	reconnects atomic.Int64

	mu     sync.Mutex
	routes map[string]route
}

type route struct {
	qos     byte
	handler MessageHandler
}

// Connect dials the broker once, bounded by ctx and defaultConnectTimeout.
// A retained "online" status is published on every successful connect.
//
// Returns:
//   - *Client: Connected client
//   - error: ErrConnectionFailed wrapping the cause
func Connect(ctx context.Context, cfg config.MQTTConfig, topics Topics, opts ...Option) (*Client, error) {
	c := &Client{
		cfg:    cfg,
		topics: topics,
		logger: logging.Discard(),
		routes: make(map[string]route),
	}
	for _, opt := range opts {
		opt(c)
	}

	po := buildClientOptions(cfg)
	configureLWT(po, topics, cfg.Broker.ClientID)
	po.SetOnConnectHandler(func(pahomqtt.Client) { c.connected() })
	po.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.lost(err) })

	c.client = pahomqtt.NewClient(po)
	token := c.client.Connect()

	timer := time.NewTimer(defaultConnectTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
		}
	case <-ctx.Done():
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, ctx.Err())
	case <-timer.C:
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}

	// The connect handler runs on its own goroutine and may not have
	// fired yet.
	c.up.Store(true)
	return c, nil
}

// connected runs on the first connect and after every reconnect.
func (c *Client) connected() {
	c.up.Store(true)
	if n := c.reconnects.Load(); n > 0 {
		c.logger.Info("MQTT reconnected", "reconnects", n)
	}
	c.resubscribe()
	c.client.Publish(c.topics.SystemStatus(), c.QoS(), true,
		statusPayload("online", c.cfg.Broker.ClientID, ""))
	if c.onState != nil {
		c.onState(true)
	}
}

func (c *Client) lost(err error) {
	c.up.Store(false)
	c.reconnects.Add(1)
	c.logger.Warn("MQTT connection lost", "error", err)
	if c.onState != nil {
		c.onState(false)
	}
}

// Close publishes a retained "offline" status and disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() {
		token := c.client.Publish(c.topics.SystemStatus(), c.QoS(), true,
			statusPayload("offline", c.cfg.Broker.ClientID, "graceful_shutdown"))
		token.WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.up.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the session is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	return c.up.Load() && c.client != nil && c.client.IsConnected()
}

// Reconnects returns how many times the session has been lost.
func (c *Client) Reconnects() int64 {
	return c.reconnects.Load()
}

// Topics returns the topic builder the client was connected with.
func (c *Client) Topics() Topics {
	return c.topics
}

// QoS returns the configured QoS level.
func (c *Client) QoS() byte {
	return byte(c.cfg.QoS)
}

// deliver adapts handler to paho, containing panics so one bad message
// cannot stop the completion feed.
func (c *Client) deliver(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.logger.Warn("MQTT handler failed", "topic", msg.Topic(), "error", err)
		}
	}
}
