package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for hadiscovery.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Runtime   RuntimeConfig   `yaml:"runtime"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
	Devices   []DeviceConfig  `yaml:"devices"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// AvailabilityTopic carries this agent's last will. Empty derives
	// "hadiscovery/{client_id}/availability".
	AvailabilityTopic string `yaml:"availability_topic"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// DiscoveryConfig contains Home Assistant discovery settings.
type DiscoveryConfig struct {
	Prefix      string       `yaml:"prefix"`
	Abbreviated bool         `yaml:"abbreviated"`
	QoS         *int         `yaml:"qos,omitempty"`
	Encoding    *string      `yaml:"encoding,omitempty"`
	Origin      OriginConfig `yaml:"origin"`

	// StatusOnline and StatusOffline are the payloads the hub publishes on
	// its status topic.
	StatusOnline  string `yaml:"status_online"`
	StatusOffline string `yaml:"status_offline"`

	// HostIdentity detects this host's serial number and hardware
	// connections and applies them to devices marked host.
	HostIdentity bool `yaml:"host_identity"`

	// PreventMerge omits hardware connections from host devices so the
	// hub does not merge it with devices seen through other integrations.
	PreventMerge bool `yaml:"prevent_merge"`
}

// OriginConfig describes the publishing software.
type OriginConfig struct {
	Name       string `yaml:"name"`
	SWVersion  string `yaml:"sw_version"`
	SupportURL string `yaml:"support_url"`
}

// RuntimeConfig contains run lifecycle settings.
type RuntimeConfig struct {
	ScheduleResolution time.Duration `yaml:"schedule_resolution"`
	PublishTimeout     time.Duration `yaml:"publish_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MetricsConfig contains Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

// APIConfig contains the status API settings.
type APIConfig struct {
	Enabled   bool             `yaml:"enabled"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	TLS       TLSConfig        `yaml:"tls"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	CORS      CORSConfig       `yaml:"cors"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains event stream settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DeviceConfig declares one device and its entities.
type DeviceConfig struct {
	Name             string               `yaml:"name"`
	Identifiers      []string             `yaml:"identifiers"`
	SerialNumber     string               `yaml:"serial_number"`
	Manufacturer     string               `yaml:"manufacturer"`
	Model            string               `yaml:"model"`
	ModelID          string               `yaml:"model_id"`
	HWVersion        string               `yaml:"hw_version"`
	SWVersion        string               `yaml:"sw_version"`
	ConfigurationURL string               `yaml:"configuration_url"`
	SuggestedArea    string               `yaml:"suggested_area"`
	ViaDevice        string               `yaml:"via_device"`
	Host             bool                 `yaml:"host"`
	Connections      []ConnectionConfig   `yaml:"connections"`
	QoS              *int                 `yaml:"qos,omitempty"`
	Encoding         *string              `yaml:"encoding,omitempty"`
	Availability     []AvailabilityConfig `yaml:"availability"`
	AvailabilityMode string               `yaml:"availability_mode"`
	Entities         []EntityConfig       `yaml:"entities"`
}

// ConnectionConfig is a hardware connection such as a MAC address.
type ConnectionConfig struct {
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

// AvailabilityConfig is one availability topic.
type AvailabilityConfig struct {
	Topic               string `yaml:"topic"`
	PayloadAvailable    string `yaml:"payload_available"`
	PayloadNotAvailable string `yaml:"payload_not_available"`
	ValueTemplate       string `yaml:"value_template"`
}

// EntityConfig declares one entity of a device.
//
// Entities with a Command are probes: the command runs every Interval and
// its trimmed output is published to the state topic.
type EntityConfig struct {
	Component         string               `yaml:"component"`
	Name              string               `yaml:"name"`
	ObjectID          string               `yaml:"object_id"`
	StateTopic        string               `yaml:"state_topic"`
	CommandTopic      string               `yaml:"command_topic"`
	UnitOfMeasurement string               `yaml:"unit_of_measurement"`
	DeviceClass       string               `yaml:"device_class"`
	StateClass        string               `yaml:"state_class"`
	Icon              string               `yaml:"icon"`
	EntityCategory    string               `yaml:"entity_category"`
	ValueTemplate     string               `yaml:"value_template"`
	QoS               *int                 `yaml:"qos,omitempty"`
	Encoding          *string              `yaml:"encoding,omitempty"`
	Availability      []AvailabilityConfig `yaml:"availability"`
	AvailabilityMode  string               `yaml:"availability_mode"`
	Options           map[string]any       `yaml:"options"`

	Command  []string      `yaml:"command"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HADISCOVERY_SECTION_KEY
// For example: HADISCOVERY_MQTT_HOST, HADISCOVERY_DISCOVERY_PREFIX
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Discovery: DiscoveryConfig{
			Prefix:        "homeassistant",
			StatusOnline:  "online",
			StatusOffline: "offline",
			Origin: OriginConfig{
				Name: "hadiscovery",
			},
		},
		Runtime: RuntimeConfig{
			ScheduleResolution: time.Second,
			PublishTimeout:     10 * time.Second,
			ShutdownTimeout:    5 * time.Second,
		},
		Metrics: MetricsConfig{
			Listen: ":9108",
			Path:   "/metrics",
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8088,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			WebSocket: WebSocketConfig{
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// envOverrides maps environment variables onto the string fields they
// replace when set to a non-empty value.
var envOverrides = []struct {
	name  string
	field func(*Config) *string
}{
	{"HADISCOVERY_MQTT_HOST", func(c *Config) *string { return &c.MQTT.Broker.Host }},
	{"HADISCOVERY_MQTT_USERNAME", func(c *Config) *string { return &c.MQTT.Auth.Username }},
	{"HADISCOVERY_MQTT_PASSWORD", func(c *Config) *string { return &c.MQTT.Auth.Password }},
	{"HADISCOVERY_DISCOVERY_PREFIX", func(c *Config) *string { return &c.Discovery.Prefix }},
	{"HADISCOVERY_INFLUXDB_TOKEN", func(c *Config) *string { return &c.InfluxDB.Token }},
}

func applyEnvOverrides(cfg *Config) {
	for _, o := range envOverrides {
		if v := os.Getenv(o.name); v != "" {
			*o.field(cfg) = v
		}
	}
}

// Validate checks the configuration for errors.
//
// All problems are collected so a single run reports every one of them.
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if !validQoS(c.MQTT.QoS) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Discovery validation
	if c.Discovery.Prefix == "" {
		errs = append(errs, "discovery.prefix is required")
	}
	if c.Discovery.QoS != nil && !validQoS(*c.Discovery.QoS) {
		errs = append(errs, "discovery.qos must be 0, 1, or 2")
	}
	if c.Discovery.StatusOnline == c.Discovery.StatusOffline {
		errs = append(errs, "discovery.status_online and discovery.status_offline must differ")
	}

	// Runtime validation
	if c.Runtime.ScheduleResolution < time.Millisecond {
		errs = append(errs, "runtime.schedule_resolution must be at least 1ms")
	}
	if c.Runtime.PublishTimeout < 0 {
		errs = append(errs, "runtime.publish_timeout must not be negative")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	// Metrics validation
	if c.Metrics.Enabled {
		if c.Metrics.Listen == "" {
			errs = append(errs, "metrics.listen is required when metrics are enabled")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			errs = append(errs, "metrics.path must start with '/'")
		}
	}

	// API validation
	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}
		if c.API.TLS.Enabled && (c.API.TLS.CertFile == "" || c.API.TLS.KeyFile == "") {
			errs = append(errs, "api.tls.cert_file and api.tls.key_file are required when tls is enabled")
		}
		if c.API.WebSocket.PingInterval < 1 || c.API.WebSocket.PongTimeout < 1 {
			errs = append(errs, "api.websocket.ping_interval and pong_timeout must be positive")
		}
	}

	// Device validation
	for i, d := range c.Devices {
		errs = append(errs, d.validate(fmt.Sprintf("devices[%d]", i), c.Discovery.HostIdentity)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (d DeviceConfig) validate(path string, hostIdentity bool) []string {
	var errs []string
	if d.Name == "" {
		errs = append(errs, path+".name is required")
	}
	if d.Host && !hostIdentity {
		errs = append(errs, path+".host requires discovery.host_identity")
	}
	if len(d.Identifiers) == 0 && d.SerialNumber == "" && !d.Host {
		errs = append(errs, path+" needs identifiers, a serial_number or host")
	}
	if d.QoS != nil && !validQoS(*d.QoS) {
		errs = append(errs, path+".qos must be 0, 1, or 2")
	}
	if len(d.Entities) == 0 {
		errs = append(errs, path+".entities must not be empty")
	}
	for j, e := range d.Entities {
		errs = append(errs, e.validate(fmt.Sprintf("%s.entities[%d]", path, j))...)
	}
	return errs
}

func (e EntityConfig) validate(path string) []string {
	var errs []string
	if e.Name == "" {
		errs = append(errs, path+".name is required")
	}
	if e.Component == "" {
		errs = append(errs, path+".component is required")
	}
	if e.QoS != nil && !validQoS(*e.QoS) {
		errs = append(errs, path+".qos must be 0, 1, or 2")
	}
	if e.Interval < 0 {
		errs = append(errs, path+".interval must not be negative")
	}
	if len(e.Command) > 0 && e.Interval == 0 {
		errs = append(errs, path+".interval is required for command entities")
	}
	return errs
}

func validQoS(q int) bool {
	return q >= 0 && q <= 2
}
