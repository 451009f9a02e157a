package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/hvpsu/internal/infrastructure/config"
)

// Logger receives handler failures and link events. *logging.Logger and
// *slog.Logger both satisfy it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Client is hvpsud's link to the MQTT broker.
//
// It keeps the retained presence on hvpsu/system/status current, remembers
// subscriptions across reconnects and recovers handler panics. All methods
// are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	// linked is the broker link state as last reported by paho.
	linked atomic.Bool

	subMu sync.RWMutex
	subs  map[string]subscription

	hookMu       sync.RWMutex
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

// Connect dials the broker described by cfg, registers the offline LWT and
// waits for the first session. paho keeps reconnecting afterwards.
//
// Returns:
//   - *Client: connected client
//   - error: ErrConnectionFailed when the first session is not up within
//     the connect timeout
func Connect(cfg config.MQTTConfig) (*Client, error) {
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	c := newClient(cfg)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	c.client = pahomqtt.NewClient(opts)
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func newClient(cfg config.MQTTConfig) *Client {
	return &Client{
		cfg:  cfg,
		subs: make(map[string]subscription),
	}
}

func (c *Client) connect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("%w: no session within %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	// paho runs the OnConnect handler asynchronously.
	c.linked.Store(true)
	return nil
}

func (c *Client) handleConnect() {
	c.linked.Store(true)
	c.resubscribe()
	c.announce(presenceOnline, "")

	c.hookMu.RLock()
	hook := c.onConnect
	c.hookMu.RUnlock()
	if hook != nil {
		hook()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.linked.Store(false)

	c.hookMu.RLock()
	hook, logger := c.onDisconnect, c.logger
	c.hookMu.RUnlock()
	if logger != nil {
		logger.Warn("MQTT connection lost", "error", err)
	}
	if hook != nil {
		hook(err)
	}
}

// announce publishes the retained presence document.
func (c *Client) announce(status, reason string) pahomqtt.Token {
	return c.client.Publish(Topics{}.SystemStatus(), presenceQoS, true,
		presencePayload(c.cfg.Broker.ClientID, status, reason))
}

// Close announces a graceful shutdown and disconnects. Closing a client
// that never connected is not an error.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() {
		c.announce(presenceOffline, "graceful_shutdown").WaitTimeout(opTimeout)
	}
	c.client.Disconnect(disconnectQuiesce)
	c.linked.Store(false)
	return nil
}

// HealthCheck returns ErrNotConnected while the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the broker link is up.
func (c *Client) IsConnected() bool {
	return c.client != nil && c.linked.Load() && c.client.IsConnected()
}

// SetOnConnect sets a hook run after the first connect and every reconnect.
func (c *Client) SetOnConnect(hook func()) {
	c.hookMu.Lock()
	c.onConnect = hook
	c.hookMu.Unlock()
}

// SetOnDisconnect sets a hook run when the broker link drops.
func (c *Client) SetOnDisconnect(hook func(err error)) {
	c.hookMu.Lock()
	c.onDisconnect = hook
	c.hookMu.Unlock()
}

// SetLogger sets the logger for link events and handler failures.
func (c *Client) SetLogger(logger Logger) {
	c.hookMu.Lock()
	c.logger = logger
	c.hookMu.Unlock()
}

// dispatch adapts handler to paho, logging its errors and panics.
func (c *Client) dispatch(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.hookMu.RLock()
		logger := c.logger
		c.hookMu.RUnlock()

		defer func() {
			if r := recover(); r != nil && logger != nil {
				logger.Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil && logger != nil {
			logger.Warn("MQTT handler returned error", "topic", msg.Topic(), "error", err)
		}
	}
}
