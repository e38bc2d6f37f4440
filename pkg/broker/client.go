package broker

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/secureiot/gateway-go/pkg/connection"
	"github.com/secureiot/gateway-go/pkg/log"
)

// ErrPublishFailed indicates a publication that the broker did not accept
// in time.
var ErrPublishFailed = errors.New("publish failed")

// publishQoS is at-least-once. Duplicate responses are tolerable because
// the response path carries no replay protection.
const publishQoS = 1

// MessageHandler receives each inbound publication as a
// (transport identity, raw bytes) tuple, with no transformation.
type MessageHandler func(transportIdentity string, raw []byte)

// Publisher publishes raw bytes to a topic. Satisfied by Client; faked in
// tests.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Config configures the broker client.
type Config struct {
	// Host and Port locate the broker.
	Host string
	Port int

	// ClientID identifies this gateway to the broker.
	ClientID string

	// TLS is the mutual-TLS configuration. Required outside tests.
	TLS *tls.Config

	// Handler receives inbound data publications. Required.
	Handler MessageHandler

	// Backoff customizes reconnect delays. Zero values use the
	// package connection defaults (1s base, 30s cap, full jitter).
	Backoff connection.BackoffConfig

	// ConnectTimeout bounds each connection attempt (default 30s).
	ConnectTimeout time.Duration

	// PublishTimeout bounds each publication (default 10s).
	PublishTimeout time.Duration

	// Logger receives operational logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Audit receives connection state events. Defaults to NoopLogger.
	Audit log.Logger
}

// Client is the gateway's MQTT connection: ingress subscription plus
// egress publisher. It is safe for concurrent use.
type Client struct {
	config  Config
	mqtt    mqtt.Client
	manager *connection.Manager
	logger  *slog.Logger
	audit   log.Logger

	// subscribed gates the data subscription: Start only connects, and
	// reconnects restore the subscription once Subscribe has been called.
	subscribed atomic.Bool
}

// NewClient creates a broker client. Start must be called to connect.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("broker host is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("broker port is required")
	}
	if cfg.Handler == nil {
		return nil, fmt.Errorf("message handler is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "secureiot-gateway"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Audit == nil {
		cfg.Audit = log.NoopLogger{}
	}

	c := &Client{
		config: cfg,
		logger: cfg.Logger,
		audit:  cfg.Audit,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("ssl://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	if cfg.TLS != nil {
		opts.SetTLSConfig(cfg.TLS)
	}
	opts.SetCleanSession(true)
	// Reconnection is owned by the connection manager, not paho
	opts.SetAutoReconnect(false)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.logger.Warn("broker connection lost", "error", err)
		c.manager.NotifyConnectionLost()
	})
	c.mqtt = mqtt.NewClient(opts)

	c.manager = connection.NewManagerWithBackoff(c.connect,
		connection.NewBackoffWithConfig(cfg.Backoff))
	c.manager.OnStateChange(func(oldState, newState connection.State) {
		c.audit.Log(log.Event{
			Timestamp: time.Now(),
			Kind:      log.KindConnection,
			Connection: &log.ConnectionEvent{
				OldState: oldState.String(),
				NewState: newState.String(),
			},
		})
	})
	c.manager.OnReconnecting(func(attempt int, delay time.Duration) {
		c.logger.Info("broker reconnect scheduled",
			"attempt", attempt, "delay", delay)
	})
	return c, nil
}

// Start connects to the broker. The data subscription is established
// separately via Subscribe, after the rest of the gateway is up. On
// connection loss the client reconnects with backoff.
func (c *Client) Start(ctx context.Context) error {
	c.manager.StartReconnectLoop()
	if err := c.manager.Connect(ctx); err != nil {
		return fmt.Errorf("broker connect failed: %w", err)
	}
	return nil
}

// Subscribe establishes the data topic subscription and keeps it across
// reconnects (clean sessions require resubscribing every time).
func (c *Client) Subscribe() error {
	c.subscribed.Store(true)
	return c.subscribe(c.config.ConnectTimeout)
}

// connect performs one connection attempt. Called by the connection
// manager for the initial connect and every reconnect.
func (c *Client) connect(ctx context.Context) error {
	timeout := c.config.ConnectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}

	token := c.mqtt.Connect()
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("broker connect timed out after %s", timeout)
	}
	if err := token.Error(); err != nil {
		return err
	}

	if c.subscribed.Load() {
		if err := c.subscribe(timeout); err != nil {
			c.mqtt.Disconnect(0)
			return err
		}
	}

	c.logger.Info("broker connected",
		"host", c.config.Host,
		"port", c.config.Port,
		"filter", DataTopicFilter)
	return nil
}

// subscribe issues the data topic subscription on the live connection.
func (c *Client) subscribe(timeout time.Duration) error {
	sub := c.mqtt.Subscribe(DataTopicFilter, publishQoS, c.onMessage)
	if !sub.WaitTimeout(timeout) {
		return fmt.Errorf("subscribe timed out after %s", timeout)
	}
	if err := sub.Error(); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}
	return nil
}

// onMessage surfaces one publication to the handler. Publications on
// malformed topics are dropped; the subscription filter makes them
// unreachable short of broker misbehavior.
func (c *Client) onMessage(_ mqtt.Client, m mqtt.Message) {
	identity, ok := ParseDataTopic(m.Topic())
	if !ok {
		c.logger.Warn("publication on unexpected topic", "topic", m.Topic())
		return
	}
	c.config.Handler(identity, m.Payload())
}

// Publish sends payload to topic at QoS 1.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.mqtt.Publish(topic, publishQoS, false, payload)
	if !token.WaitTimeout(c.config.PublishTimeout) {
		return fmt.Errorf("%w: timed out on %s", ErrPublishFailed, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	return nil
}

// Respond publishes a backend response body to the device's response topic.
func (c *Client) Respond(deviceID string, body []byte) error {
	return c.Publish(ResponseTopic(deviceID), body)
}

// IsConnected reports whether the broker link is up.
func (c *Client) IsConnected() bool {
	return c.manager.IsConnected()
}

// Close disconnects from the broker and stops the reconnect loop.
func (c *Client) Close() {
	c.manager.SetAutoReconnect(false)
	c.manager.Close()
	if c.mqtt.IsConnected() {
		c.mqtt.Disconnect(250) // milliseconds to flush in-flight publishes
	}
}

// Compile-time interface satisfaction check.
var _ Publisher = (*Client)(nil)
