package agent

import (
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/hadiscovery/internal/discovery"
	"github.com/nerrad567/hadiscovery/internal/hostid"
	"github.com/nerrad567/hadiscovery/internal/infrastructure/config"
)

// DefaultProbeTimeout bounds a probe run when the entity sets no timeout.
const DefaultProbeTimeout = 10 * time.Second

// ErrNoHostIdentity is returned when a host device has neither configured
// identifiers nor a detected serial number.
var ErrNoHostIdentity = errors.New("agent: host device has no identity")

// Logger defines the logging interface for the agent.
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

// Recorder stores numeric probe readings.
// It is satisfied by *influxdb.Client.
type Recorder interface {
	WriteReading(device, entity string, value float64)
}

type noopRecorder struct{}

func (noopRecorder) WriteReading(string, string, float64) {}

// ProbeMetrics observes probe outcomes.
// It is satisfied by *metrics.Collectors.
type ProbeMetrics interface {
	ProbeCompleted(device, entity string, err error)
}

type noopMetrics struct{}

func (noopMetrics) ProbeCompleted(string, string, error) {}

// Agent builds discovery devices from configuration and wires their probes.
//
// Setters must be called before Build; probes capture the collaborators
// in place at build time.
type Agent struct {
	logger   Logger
	recorder Recorder
	metrics  ProbeMetrics
	runner   Runner
	host     *hostid.Facts
}

// New creates an Agent running probes with CommandRunner.
func New() *Agent {
	return &Agent{
		logger:   noopLogger{},
		recorder: noopRecorder{},
		metrics:  noopMetrics{},
		runner:   CommandRunner{},
	}
}

// SetLogger sets the logger.
func (a *Agent) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	a.logger = logger
}

// SetRecorder sets where numeric readings are stored.
func (a *Agent) SetRecorder(r Recorder) {
	if r == nil {
		r = noopRecorder{}
	}
	a.recorder = r
}

// SetMetrics sets the probe metrics sink.
func (a *Agent) SetMetrics(m ProbeMetrics) {
	if m == nil {
		m = noopMetrics{}
	}
	a.metrics = m
}

// SetRunner replaces the command runner.
func (a *Agent) SetRunner(r Runner) {
	if r == nil {
		r = CommandRunner{}
	}
	a.runner = r
}

// SetHostFacts sets the facts applied to devices marked host.
func (a *Agent) SetHostFacts(facts hostid.Facts) {
	a.host = &facts
}

// Build creates a device per configuration entry, in order.
func (a *Agent) Build(devices []config.DeviceConfig) ([]*discovery.Device, error) {
	out := make([]*discovery.Device, 0, len(devices))
	for i, dc := range devices {
		dev, err := a.buildDevice(dc)
		if err != nil {
			return nil, fmt.Errorf("devices[%d] %q: %w", i, dc.Name, err)
		}
		out = append(out, dev)
	}
	return out, nil
}
