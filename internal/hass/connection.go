package hass

import (
	"fmt"
	"sync"

	"github.com/nerrad567/hadiscovery/internal/availability"
	"github.com/nerrad567/hadiscovery/internal/discovery"
)

// Defaults applied by NewConnection.
const (
	DefaultDiscoveryPrefix = "homeassistant"
	DefaultStatusOnline    = "online"
	DefaultStatusOffline   = "offline"
)

// Config holds Connection settings. Zero values select the defaults.
type Config struct {
	// DiscoveryPrefix is the root of discovery and status topics.
	DiscoveryPrefix string

	// Origin describes the publishing software. When nil or unnamed, the
	// first device's name is used.
	Origin *discovery.Origin

	// QoS and Encoding are defaults inherited by devices that leave them unset.
	QoS      *discovery.QoS
	Encoding *string

	// Abbreviated publishes documents with abbreviated key names.
	Abbreviated bool

	// StatusOnline and StatusOffline are the hub status payloads.
	StatusOnline  string
	StatusOffline string
}

// Connection is the aggregate root of a discovery setup: prefix, origin,
// connection-wide availability, devices and the active run.
type Connection struct {
	transport Transport
	composer  *discovery.Composer
	devices   []*discovery.Device

	statusOnline  string
	statusOffline string

	logger  Logger
	metrics Metrics

	// composeMu serialises compositions, which stamp devices and entities.
	composeMu sync.Mutex

	// mu guards current and every record's state and err.
	mu      sync.Mutex
	current *record
}

// NewConnection creates a Connection publishing through transport.
//
// The transport's availability topic, when it has one, seeds the
// connection-wide availability so every entity inherits it.
func NewConnection(transport Transport, cfg Config) (*Connection, error) {
	if transport == nil {
		return nil, ErrNilTransport
	}

	if cfg.DiscoveryPrefix == "" {
		cfg.DiscoveryPrefix = DefaultDiscoveryPrefix
	}
	if err := discovery.ValidateDiscoveryPrefix(cfg.DiscoveryPrefix); err != nil {
		return nil, err
	}
	if cfg.QoS != nil {
		if err := discovery.ValidateQoS(*cfg.QoS); err != nil {
			return nil, err
		}
	}
	if cfg.Origin == nil {
		cfg.Origin = discovery.NewOrigin("")
	}
	if cfg.StatusOnline == "" {
		cfg.StatusOnline = DefaultStatusOnline
	}
	if cfg.StatusOffline == "" {
		cfg.StatusOffline = DefaultStatusOffline
	}
	if cfg.StatusOnline == cfg.StatusOffline {
		return nil, fmt.Errorf("%w: online and offline are both %q", ErrInvalidStatusPayload, cfg.StatusOnline)
	}

	avail := availability.NewSet()
	if topic := transport.AvailabilityTopic(); topic != "" {
		if err := avail.Add(topic); err != nil {
			return nil, fmt.Errorf("seeding availability from transport: %w", err)
		}
	}

	return &Connection{
		transport: transport,
		composer: &discovery.Composer{
			Prefix:       cfg.DiscoveryPrefix,
			Origin:       cfg.Origin,
			Availability: avail,
			QoS:          cfg.QoS,
			Encoding:     cfg.Encoding,
			Abbreviated:  cfg.Abbreviated,
		},
		statusOnline:  cfg.StatusOnline,
		statusOffline: cfg.StatusOffline,
		logger:        noopLogger{},
		metrics:       noopMetrics{},
	}, nil
}

// SetLogger sets the logger. Call before Start.
func (c *Connection) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.logger = logger
	c.composer.Logger = logger
}

// SetMetrics sets the metrics sink. Call before Start.
func (c *Connection) SetMetrics(m Metrics) {
	if m == nil {
		m = noopMetrics{}
	}
	c.metrics = m
}

// Prefix returns the discovery prefix.
func (c *Connection) Prefix() string {
	return c.composer.Prefix
}

// Origin returns the origin descriptor.
func (c *Connection) Origin() *discovery.Origin {
	return c.composer.Origin
}

// Availability returns the connection-wide availability set.
func (c *Connection) Availability() *availability.Set {
	return c.composer.Availability
}

// StatusTopic returns the hub status topic, "{prefix}/status".
func (c *Connection) StatusTopic() string {
	return c.composer.Prefix + "/status"
}

// AddDevices registers devices in order. Call before Start.
func (c *Connection) AddDevices(devices ...*discovery.Device) error {
	for _, d := range devices {
		if d == nil {
			return ErrNilDevice
		}
	}
	c.devices = append(c.devices, devices...)
	return nil
}

// Devices returns the registered devices.
func (c *Connection) Devices() []*discovery.Device {
	return c.devices
}

// Compose builds the discovery messages for every registered device.
func (c *Connection) Compose() ([]discovery.Message, error) {
	c.composeMu.Lock()
	defer c.composeMu.Unlock()
	return c.composer.Compose(c.devices)
}

// DiscoveryText renders every discovery document for human inspection.
func (c *Connection) DiscoveryText() (string, error) {
	msgs, err := c.Compose()
	if err != nil {
		return "", err
	}
	return discovery.Text(msgs)
}

// Runtime returns the handle of the active run, or nil when idle.
func (c *Connection) Runtime() *Runtime {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	return c.current.handle
}

// entities returns every entity of every device, in order.
func (c *Connection) entities() []*discovery.Entity {
	var out []*discovery.Entity
	for _, d := range c.devices {
		out = append(out, d.Entities()...)
	}
	return out
}
