package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/hadiscovery/internal/hass"
	"github.com/nerrad567/hadiscovery/internal/infrastructure/config"
)

// Client is the transport used by hass.Connection.
var _ hass.Transport = (*Client)(nil)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "hadiscovery-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// =============================================================================
// Construction Tests
// =============================================================================

func TestNewClient_GeneratesClientID(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = ""

	c := NewClient(cfg)

	if !strings.HasPrefix(c.ClientID(), clientIDPrefix) {
		t.Errorf("ClientID() = %q, want prefix %q", c.ClientID(), clientIDPrefix)
	}
	if len(c.ClientID()) != len(clientIDPrefix)+8 {
		t.Errorf("len(ClientID()) = %d, want %d", len(c.ClientID()), len(clientIDPrefix)+8)
	}
	if other := NewClient(cfg); other.ClientID() == c.ClientID() {
		t.Error("generated client IDs should differ")
	}
}

func TestNewClient_AvailabilityTopic(t *testing.T) {
	c := NewClient(testConfig())
	if got, want := c.AvailabilityTopic(), "hadiscovery/hadiscovery-test/availability"; got != want {
		t.Errorf("AvailabilityTopic() = %q, want %q", got, want)
	}

	cfg := testConfig()
	cfg.AvailabilityTopic = "custom/availability"
	c = NewClient(cfg)
	if got := c.AvailabilityTopic(); got != "custom/availability" {
		t.Errorf("AvailabilityTopic() = %q, want %q", got, "custom/availability")
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "user", Password: "pass"}

	opts := buildClientOptions(cfg, "client-1")

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want [tcp://127.0.0.1:1883]", opts.Servers)
	}
	if opts.ClientID != "client-1" {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, "client-1")
	}
	if opts.Username != "user" || opts.Password != "pass" {
		t.Errorf("credentials = %q/%q, want user/pass", opts.Username, opts.Password)
	}
	if !opts.CleanSession || !opts.AutoReconnect || !opts.ConnectRetry {
		t.Error("expected clean session with auto reconnect and connect retry")
	}
	if opts.MaxReconnectInterval != 5*time.Second {
		t.Errorf("MaxReconnectInterval = %v, want 5s", opts.MaxReconnectInterval)
	}
	if opts.TLSConfig != nil && opts.TLSConfig.MinVersion != 0 {
		t.Error("TLS should not be configured without broker.tls")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg, "client-1")

	if opts.Servers[0].String() != "ssl://127.0.0.1:8883" {
		t.Errorf("Servers[0] = %v, want ssl://127.0.0.1:8883", opts.Servers[0])
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tls.VersionTLS12 {
		t.Error("expected TLS 1.2 minimum")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig(), "client-1")
	configureLWT(opts, "hadiscovery/client-1/availability")

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false, want true")
	}
	if opts.WillTopic != "hadiscovery/client-1/availability" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}
	if string(opts.WillPayload) != PayloadOffline {
		t.Errorf("WillPayload = %q, want %q", opts.WillPayload, PayloadOffline)
	}
	if opts.WillQos != 1 || !opts.WillRetained {
		t.Errorf("Will QoS/retained = %d/%v, want 1/true", opts.WillQos, opts.WillRetained)
	}
}

// =============================================================================
// Disconnected Client Tests
// =============================================================================

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	if (&Client{}).IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
	if NewClient(testConfig()).IsConnected() {
		t.Error("IsConnected() should be false before Connect")
	}
}

func TestHealthCheck(t *testing.T) {
	client := NewClient(testConfig())

	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestPublish_Validation(t *testing.T) {
	client := NewClient(testConfig())
	ctx := context.Background()

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", nil, 1, ErrInvalidTopic},
		{"wildcard topic", "a/+/b", nil, 1, ErrInvalidTopic},
		{"invalid qos", "a/b", nil, 3, ErrInvalidQoS},
		{"oversized payload", "a/b", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "a/b", []byte("x"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(ctx, tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	client := NewClient(testConfig())
	handler := func(string, []byte) {}

	if err := client.Subscribe("", handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(\"\") error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Subscribe("a/b", nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v, want ErrSubscribeFailed", err)
	}
	if err := client.Subscribe("a/b", handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
	if client.Subscriptions() != 0 {
		t.Errorf("Subscriptions() = %d, want 0", client.Subscriptions())
	}
}

func TestUnsubscribe_Validation(t *testing.T) {
	client := NewClient(testConfig())

	if err := client.Unsubscribe(); err != nil {
		t.Errorf("Unsubscribe() with no topics error = %v, want nil", err)
	}
	if err := client.Unsubscribe("a", ""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(empty) error = %v, want ErrInvalidTopic", err)
	}

	client.subs["homeassistant/status"] = subscription{qos: 1}
	err := client.Unsubscribe("homeassistant/status")
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
	if client.Subscribed("homeassistant/status") {
		t.Error("tracking should be dropped even when disconnected")
	}
}

// =============================================================================
// Handler and Token Tests
// =============================================================================

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type mockLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func TestWrapHandler_DeliversMessage(t *testing.T) {
	client := NewClient(testConfig())

	var gotTopic, gotPayload string
	wrapped := client.wrapHandler(func(topic string, payload []byte) {
		gotTopic, gotPayload = topic, string(payload)
	})
	wrapped(nil, fakeMessage{topic: "homeassistant/status", payload: []byte("online")})

	if gotTopic != "homeassistant/status" || gotPayload != "online" {
		t.Errorf("handler got %q=%q, want homeassistant/status=online", gotTopic, gotPayload)
	}
}

func TestWrapHandler_RecoversPanic(t *testing.T) {
	client := NewClient(testConfig())
	logger := &mockLogger{}
	client.SetLogger(logger)

	wrapped := client.wrapHandler(func(string, []byte) {
		panic("boom")
	})
	wrapped(nil, fakeMessage{topic: "t"})

	if len(logger.errors) != 1 || logger.errors[0] != "recovered panic in MQTT message handler" {
		t.Errorf("logged errors = %v, want one panic entry", logger.errors)
	}
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

func TestWaitToken(t *testing.T) {
	boom := errors.New("refused")

	completed := &fakeToken{done: make(chan struct{}), err: boom}
	close(completed.done)
	if err := waitToken(context.Background(), completed, time.Second); !errors.Is(err, boom) {
		t.Errorf("waitToken(completed) = %v, want %v", err, boom)
	}

	pending := &fakeToken{done: make(chan struct{})}
	if err := waitToken(context.Background(), pending, 10*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("waitToken(timeout) = %v, want ErrTimeout", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := waitToken(ctx, pending, 0); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("waitToken(ctx) = %v, want context.DeadlineExceeded", err)
	}
}

// =============================================================================
// Topic Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Availability", topics.Availability("hadiscovery-1a2b"), "hadiscovery/hadiscovery-1a2b/availability"},
		{"State", topics.State("server_rack", "load"), "hadiscovery/server_rack/load/state"},
		{"Command", topics.Command("server_rack", "restart"), "hadiscovery/server_rack/restart/set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s() = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestValidatePublishTopic(t *testing.T) {
	valid := []string{"a", "a/b", "homeassistant/device/x/config"}
	for _, topic := range valid {
		if err := ValidatePublishTopic(topic); err != nil {
			t.Errorf("ValidatePublishTopic(%q) = %v, want nil", topic, err)
		}
	}

	invalid := []string{"", "a/#", "a/+/b", "a\x00b"}
	for _, topic := range invalid {
		if err := ValidatePublishTopic(topic); !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("ValidatePublishTopic(%q) = %v, want ErrInvalidTopic", topic, err)
		}
	}
}
