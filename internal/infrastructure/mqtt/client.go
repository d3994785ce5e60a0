package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/hadiscovery/internal/infrastructure/config"
)

// Client is the broker connection used to announce Home Assistant
// discovery. It owns an availability topic backed by the broker's last
// will: "online" is published on every (re)connect and "offline" on Close
// or when the broker loses the client.
//
// Subscriptions are remembered and replayed after a reconnect. All methods
// are safe for concurrent use.
type Client struct {
	paho              pahomqtt.Client
	cfg               config.MQTTConfig
	clientID          string
	availabilityTopic string

	// connected is set by Connect and the paho connect handler, cleared on
	// connection loss and Close.
	connected atomic.Bool

	mu           sync.RWMutex
	subs         map[string]subscription
	onConnect    func()
	onDisconnect func(error)
	logger       Logger
}

// Logger receives connection warnings and recovered handler panics.
// *logging.Logger and *slog.Logger both satisfy it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler receives one inbound message. paho runs handlers on its
// own goroutines, so a slow handler delays only its own delivery.
type MessageHandler = func(topic string, payload []byte)

// NewClient prepares a client without connecting it.
//
// A missing broker.client_id becomes "hadiscovery-" plus a random suffix,
// and a missing availability_topic is derived from the client ID.
func NewClient(cfg config.MQTTConfig) *Client {
	c := &Client{
		cfg:               cfg,
		clientID:          cfg.Broker.ClientID,
		availabilityTopic: cfg.AvailabilityTopic,
		subs:              make(map[string]subscription),
	}
	if c.clientID == "" {
		c.clientID = generateClientID()
	}
	if c.availabilityTopic == "" {
		c.availabilityTopic = Topics{}.Availability(c.clientID)
	}

	opts := buildClientOptions(cfg, c.clientID)
	configureLWT(opts, c.availabilityTopic)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.onConnected() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.onConnectionLost(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.warn("MQTT reconnecting", "client_id", c.clientID)
	})

	c.paho = pahomqtt.NewClient(opts)
	return c
}

// Connect dials the broker and waits until it accepts the session, ctx
// ends or the connect timeout passes. A failed attempt stops paho's
// background retry so the next Connect starts clean.
func (c *Client) Connect(ctx context.Context) error {
	if c.paho == nil {
		return fmt.Errorf("%w: client not initialised", ErrConnectionFailed)
	}

	if err := waitToken(ctx, c.paho.Connect(), defaultConnectTimeout); err != nil {
		c.paho.Disconnect(0)
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The connect handler runs asynchronously; mark the state here so
	// IsConnected is true as soon as Connect returns.
	c.connected.Store(true)
	return nil
}

func (c *Client) onConnected() {
	c.connected.Store(true)

	c.mu.RLock()
	for topic, sub := range c.subs {
		// Replay is best effort; a failure shows up as missing messages
		// and is retried on the next reconnect.
		c.paho.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))
	}
	hook := c.onConnect
	c.mu.RUnlock()

	c.publishAvailability(PayloadOnline)
	if hook != nil {
		hook()
	}
}

func (c *Client) onConnectionLost(err error) {
	c.connected.Store(false)
	c.warn("MQTT connection lost", "error", err)

	c.mu.RLock()
	hook := c.onDisconnect
	c.mu.RUnlock()
	if hook != nil {
		hook(err)
	}
}

// publishAvailability publishes payload, retained, without waiting.
func (c *Client) publishAvailability(payload string) pahomqtt.Token {
	return c.paho.Publish(c.availabilityTopic, byte(c.cfg.QoS), true, payload)
}

// AvailabilityTopic returns the topic carrying this client's online/offline state.
func (c *Client) AvailabilityTopic() string { return c.availabilityTopic }

// ClientID returns the client ID presented to the broker.
func (c *Client) ClientID() string { return c.clientID }

// Close announces "offline" (the last will only covers unexpected loss),
// lets pending publishes drain and disconnects.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	if c.IsConnected() {
		c.publishAvailability(PayloadOffline).WaitTimeout(defaultPublishTimeout)
	}
	c.paho.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the broker is unreachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the broker session is currently up.
func (c *Client) IsConnected() bool {
	return c.paho != nil && c.connected.Load() && c.paho.IsConnected()
}

// SetOnConnect installs a hook run after every connect and reconnect,
// once subscriptions have been replayed.
func (c *Client) SetOnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

// SetOnDisconnect installs a hook run when the connection is lost.
func (c *Client) SetOnDisconnect(fn func(error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

// SetLogger sets the logger. Without one, warnings and handler panics are
// swallowed.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

func (c *Client) warn(msg string, args ...any) {
	if l := c.log(); l != nil {
		l.Warn(msg, args...)
	}
}

// wrapHandler adapts handler to paho and keeps a panicking handler from
// taking down paho's delivery goroutine.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if l := c.log(); l != nil {
				l.Error("recovered panic in MQTT message handler", "topic", msg.Topic(), "panic", r)
			}
		}()
		handler(msg.Topic(), msg.Payload())
	}
}
