package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/hadiscovery/internal/agent"
	"github.com/nerrad567/hadiscovery/internal/api"
	"github.com/nerrad567/hadiscovery/internal/discovery"
	"github.com/nerrad567/hadiscovery/internal/hass"
	"github.com/nerrad567/hadiscovery/internal/hostid"
	"github.com/nerrad567/hadiscovery/internal/infrastructure/config"
	"github.com/nerrad567/hadiscovery/internal/infrastructure/influxdb"
	"github.com/nerrad567/hadiscovery/internal/infrastructure/logging"
	"github.com/nerrad567/hadiscovery/internal/infrastructure/metrics"
	"github.com/nerrad567/hadiscovery/internal/infrastructure/mqtt"
)

// run is the application logic of the run command.
//
// Returns nil on a clean shutdown (ctx cancelled), or the error that ended
// the discovery runtime.
func run(ctx context.Context, cfg *config.Config, blocking bool) error {
	log := logging.New(cfg.Logging, version)
	log.Info("starting hadiscovery",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Metrics
	reg := prometheus.NewRegistry()
	collectors := metrics.NewCollectors(reg)
	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics, reg)
		srv.SetLogger(log.Component("metrics"))
		if err := srv.Start(); err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Runtime.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("error stopping metrics server", "error", err)
			}
		}()
		log.Info("metrics server listening", "addr", srv.Addr(), "path", cfg.Metrics.Path)
	}

	// Connect to InfluxDB (optional)
	var recorder agent.Recorder
	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
			stats := influxClient.Stats()
			log.Info("InfluxDB connection closed",
				"written", stats.Written,
				"dropped", stats.Dropped,
				"failed", stats.Failed,
			)
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		recorder = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// MQTT client; the runtime connects it.
	mqttClient := mqtt.NewClient(cfg.MQTT)
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT connected", "client_id", mqttClient.ClientID())
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	observers := newFanout(collectors)
	conn, err := newConnection(cfg, mqttClient, log, observers, recorder)
	if err != nil {
		return err
	}
	conn.SetMetrics(observers)

	// Status API (optional)
	if cfg.API.Enabled {
		apiServer, err := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log.Component("api"),
			Source:  conn,
			Version: version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		observers.add(apiServer.Events())
		if err := apiServer.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
		log.Info("API server listening", "addr", apiServer.Addr())
	}

	opts := hass.StartOptions{
		Blocking:           blocking,
		ScheduleResolution: cfg.Runtime.ScheduleResolution,
		PublishTimeout:     cfg.Runtime.PublishTimeout,
	}

	log.Info("starting discovery runtime",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"devices", len(conn.Devices()),
		"blocking", blocking,
	)

	rt, err := conn.Start(ctx, opts)
	if blocking {
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("discovery runtime: %w", err)
		}
		log.Info("hadiscovery stopped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("starting discovery runtime: %w", err)
	}

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, cleaning up")
		rt.Stop(cfg.Runtime.ShutdownTimeout)
		if rt.IsRunning() {
			log.Warn("discovery runtime did not stop in time", "timeout", cfg.Runtime.ShutdownTimeout)
		}
	case <-rt.Done():
		if err := rt.LastError(); err != nil {
			return fmt.Errorf("discovery runtime: %w", err)
		}
	}

	log.Info("hadiscovery stopped")
	return nil
}

// newConnection builds the devices and the Connection publishing them
// through transport.
func newConnection(cfg *config.Config, transport hass.Transport, log *logging.Logger, probeMetrics agent.ProbeMetrics, recorder agent.Recorder) (*hass.Connection, error) {
	ag := agent.New()
	ag.SetLogger(log.Component("agent"))
	ag.SetMetrics(probeMetrics)
	ag.SetRecorder(recorder)
	if cfg.Discovery.HostIdentity {
		facts := hostid.NewDetector().Detect(cfg.Discovery.PreventMerge)
		log.Info("host identity detected",
			"serial", facts.Serial != "",
			"connections", len(facts.Connections),
		)
		ag.SetHostFacts(facts)
	}

	devices, err := ag.Build(cfg.Devices)
	if err != nil {
		return nil, fmt.Errorf("building devices: %w", err)
	}

	hassCfg, err := connectionConfig(cfg.Discovery)
	if err != nil {
		return nil, err
	}
	conn, err := hass.NewConnection(transport, hassCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection: %w", err)
	}
	conn.SetLogger(log.Component("hass"))

	if err := conn.AddDevices(devices...); err != nil {
		return nil, fmt.Errorf("adding devices: %w", err)
	}
	return conn, nil
}

// connectionConfig maps the discovery section onto hass.Config. The origin
// software version defaults to the build version.
func connectionConfig(dc config.DiscoveryConfig) (hass.Config, error) {
	origin := discovery.NewOrigin(dc.Origin.Name)
	swVersion := dc.Origin.SWVersion
	if swVersion == "" {
		swVersion = version
	}
	if err := origin.SetSWVersion(swVersion); err != nil {
		return hass.Config{}, err
	}
	if dc.Origin.SupportURL != "" {
		if err := origin.SetSupportURL(dc.Origin.SupportURL); err != nil {
			return hass.Config{}, err
		}
	}

	cfg := hass.Config{
		DiscoveryPrefix: dc.Prefix,
		Origin:          origin,
		Encoding:        dc.Encoding,
		Abbreviated:     dc.Abbreviated,
		StatusOnline:    dc.StatusOnline,
		StatusOffline:   dc.StatusOffline,
	}
	if dc.QoS != nil {
		q := discovery.QoS(*dc.QoS)
		cfg.QoS = &q
	}
	return cfg, nil
}

// discoveryText renders the discovery documents the run command would
// publish. Nothing is sent; the MQTT client only supplies its availability
// topic.
func discoveryText(cfg *config.Config, log *logging.Logger) (string, error) {
	conn, err := newConnection(cfg, mqtt.NewClient(cfg.MQTT), log, nil, nil)
	if err != nil {
		return "", err
	}
	return conn.DiscoveryText()
}
