package api

import (
	"sync"
	"time"
)

// Event channels a WebSocket client can subscribe to.
const (
	ChannelRuntime   = "runtime"
	ChannelDiscovery = "discovery"
	ChannelHub       = "hub"
	ChannelProbe     = "probe"
)

// RuntimeEvent is broadcast on ChannelRuntime when a run starts or ends.
type RuntimeEvent struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// DiscoveryEvent is broadcast on ChannelDiscovery per acknowledged document.
type DiscoveryEvent struct {
	Topic     string `json:"topic"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// HubEvent is broadcast on ChannelHub per recognised hub status message.
type HubEvent struct {
	Online bool `json:"online"`
}

// ProbeEvent is broadcast on ChannelProbe after every probe run.
type ProbeEvent struct {
	Device string `json:"device"`
	Entity string `json:"entity"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// Events turns lifecycle observations into WebSocket broadcasts and keeps
// the latest of them for the runtime endpoint.
//
// It satisfies hass.Metrics and agent.ProbeMetrics.
type Events struct {
	hub *Hub

	mu          sync.Mutex
	runs        int
	stopped     bool
	lastErr     error
	lastPublish time.Time
	hubOnline   *bool
}

func newEvents(hub *Hub) *Events {
	return &Events{hub: hub}
}

// RunStarted records and broadcasts the start of a run.
func (e *Events) RunStarted() {
	e.mu.Lock()
	e.runs++
	e.stopped = false
	e.lastErr = nil
	e.mu.Unlock()

	e.hub.Broadcast(ChannelRuntime, RuntimeEvent{State: "running"})
}

// RunStopped records and broadcasts the end of a run.
func (e *Events) RunStopped(err error) {
	e.mu.Lock()
	e.stopped = true
	e.lastErr = err
	e.mu.Unlock()

	e.hub.Broadcast(ChannelRuntime, RuntimeEvent{State: "stopped", Error: errString(err)})
}

// DiscoveryPublished records and broadcasts an acknowledged discovery document.
func (e *Events) DiscoveryPublished(topic string, elapsed time.Duration) {
	e.mu.Lock()
	e.lastPublish = time.Now()
	e.mu.Unlock()

	e.hub.Broadcast(ChannelDiscovery, DiscoveryEvent{Topic: topic, ElapsedMS: elapsed.Milliseconds()})
}

// HubStatus records and broadcasts the hub's reported status.
func (e *Events) HubStatus(online bool) {
	e.mu.Lock()
	e.hubOnline = &online
	e.mu.Unlock()

	e.hub.Broadcast(ChannelHub, HubEvent{Online: online})
}

// ProbeCompleted broadcasts a probe outcome.
func (e *Events) ProbeCompleted(device, entity string, err error) {
	e.hub.Broadcast(ChannelProbe, ProbeEvent{
		Device: device,
		Entity: entity,
		OK:     err == nil,
		Error:  errString(err),
	})
}

// eventSnapshot is a copy of the recorded observations.
type eventSnapshot struct {
	runs        int
	stopped     bool
	lastErr     error
	lastPublish time.Time
	hubOnline   *bool
}

func (e *Events) snapshot() eventSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := eventSnapshot{
		runs:        e.runs,
		stopped:     e.stopped,
		lastErr:     e.lastErr,
		lastPublish: e.lastPublish,
	}
	if e.hubOnline != nil {
		online := *e.hubOnline
		snap.hubOnline = &online
	}
	return snap
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
