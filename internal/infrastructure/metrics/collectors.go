package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hadiscovery"

// Result label values.
const (
	resultOK    = "ok"
	resultError = "error"
)

// Collectors holds the agent's Prometheus collectors.
//
// All methods are safe for concurrent use.
type Collectors struct {
	runsStarted      prometheus.Counter
	runsStopped      *prometheus.CounterVec
	runActive        prometheus.Gauge
	publishDuration  prometheus.Histogram
	lastPublish      prometheus.Gauge
	hubOnline        prometheus.Gauge
	hubStatusChanges *prometheus.CounterVec
	probeRuns        *prometheus.CounterVec
}

// NewCollectors creates the collectors and registers them with reg.
// It panics if any collector is already registered, like prometheus.MustRegister.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runtime",
			Name:      "runs_started_total",
			Help:      "Total number of runtime runs started.",
		}),
		runsStopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runtime",
			Name:      "runs_stopped_total",
			Help:      "Total number of runtime runs ended, by result.",
		}, []string{"result"}),
		runActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runtime",
			Name:      "active",
			Help:      "Has value 1 while a runtime run is active; otherwise, 0.",
		}),
		publishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "publish_duration_seconds",
			Help:      "Time from discovery publish to broker acknowledgment.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		lastPublish: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "last_publish_timestamp_seconds",
			Help:      "Unix time of the last acknowledged discovery publish.",
		}),
		hubOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "online",
			Help:      "Has value 1 if the hub last reported online; otherwise, 0.",
		}),
		hubStatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "status_messages_total",
			Help:      "Total number of recognised hub status messages, by status.",
		}, []string{"status"}),
		probeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "probe_runs_total",
			Help:      "Total number of entity probe runs, by device, entity and result.",
		}, []string{"device", "entity", "result"}),
	}

	reg.MustRegister(
		c.runsStarted,
		c.runsStopped,
		c.runActive,
		c.publishDuration,
		c.lastPublish,
		c.hubOnline,
		c.hubStatusChanges,
		c.probeRuns,
	)
	return c
}

// RunStarted records the start of a run.
func (c *Collectors) RunStarted() {
	c.runsStarted.Inc()
	c.runActive.Set(1)
}

// RunStopped records the end of a run.
func (c *Collectors) RunStopped(err error) {
	c.runsStopped.WithLabelValues(result(err)).Inc()
	c.runActive.Set(0)
}

// DiscoveryPublished records an acknowledged discovery publish.
func (c *Collectors) DiscoveryPublished(_ string, elapsed time.Duration) {
	c.publishDuration.Observe(elapsed.Seconds())
	c.lastPublish.SetToCurrentTime()
}

// HubStatus records a hub status message.
func (c *Collectors) HubStatus(online bool) {
	if online {
		c.hubOnline.Set(1)
		c.hubStatusChanges.WithLabelValues("online").Inc()
		return
	}
	c.hubOnline.Set(0)
	c.hubStatusChanges.WithLabelValues("offline").Inc()
}

// ProbeCompleted records the outcome of an entity probe.
func (c *Collectors) ProbeCompleted(device, entity string, err error) {
	c.probeRuns.WithLabelValues(device, entity, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultOK
}
