package main

import (
	"sync"
	"time"

	"github.com/nerrad567/hadiscovery/internal/agent"
	"github.com/nerrad567/hadiscovery/internal/hass"
)

// observer receives run and probe observations.
// *metrics.Collectors and *api.Events both satisfy it.
type observer interface {
	hass.Metrics
	agent.ProbeMetrics
}

// fanout forwards every observation to each registered observer.
// Observers may be added after it has been handed to the Connection.
type fanout struct {
	mu    sync.RWMutex
	sinks []observer
}

func newFanout(sinks ...observer) *fanout {
	return &fanout{sinks: sinks}
}

func (f *fanout) add(o observer) {
	f.mu.Lock()
	f.sinks = append(f.sinks, o)
	f.mu.Unlock()
}

func (f *fanout) each(fn func(observer)) {
	f.mu.RLock()
	sinks := f.sinks
	f.mu.RUnlock()
	for _, s := range sinks {
		fn(s)
	}
}

func (f *fanout) RunStarted() {
	f.each(func(o observer) { o.RunStarted() })
}

func (f *fanout) RunStopped(err error) {
	f.each(func(o observer) { o.RunStopped(err) })
}

func (f *fanout) DiscoveryPublished(topic string, elapsed time.Duration) {
	f.each(func(o observer) { o.DiscoveryPublished(topic, elapsed) })
}

func (f *fanout) HubStatus(online bool) {
	f.each(func(o observer) { o.HubStatus(online) })
}

func (f *fanout) ProbeCompleted(device, entity string, err error) {
	f.each(func(o observer) { o.ProbeCompleted(device, entity, err) })
}
