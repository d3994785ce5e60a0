package hass

import (
	"context"
	"time"

	"github.com/nerrad567/hadiscovery/internal/discovery"
)

// MessageHandler processes a message received on a subscribed topic.
// It is an alias so transports can declare the same function type.
type MessageHandler = func(topic string, payload []byte)

// Transport is the message channel a Connection publishes through.
//
// Retry and reconnect policy belong to the transport; a Connection reports
// failures without retrying.
type Transport interface {
	discovery.Publisher

	// IsConnected reports whether the transport is currently connected.
	IsConnected() bool

	// Connect establishes the connection.
	Connect(ctx context.Context) error

	// Subscribe registers handler for topic using the transport's default QoS.
	Subscribe(topic string, handler MessageHandler) error

	// Unsubscribe removes subscriptions.
	Unsubscribe(topics ...string) error

	// AvailabilityTopic returns the topic the transport announces its own
	// availability on (usually backed by a last will), or "" if none.
	AvailabilityTopic() string
}

// Logger defines the logging interface used by a Connection.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Metrics receives lifecycle observations from a Connection.
type Metrics interface {
	// RunStarted is called when a run begins.
	RunStarted()

	// RunStopped is called when a run ends; err is nil on a clean stop.
	RunStopped(err error)

	// DiscoveryPublished is called for every acknowledged discovery publish.
	DiscoveryPublished(topic string, elapsed time.Duration)

	// HubStatus is called for every recognised hub status payload.
	HubStatus(online bool)
}

type noopMetrics struct{}

func (noopMetrics) RunStarted()                              {}
func (noopMetrics) RunStopped(error)                         {}
func (noopMetrics) DiscoveryPublished(string, time.Duration) {}
func (noopMetrics) HubStatus(bool)                           {}
