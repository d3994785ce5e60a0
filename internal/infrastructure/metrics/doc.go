// Package metrics exposes agent and discovery lifecycle metrics to Prometheus.
//
// Collectors implements hass.Metrics, so a Connection reports runs,
// discovery publishes and hub status transitions directly into it, and
// the agent reports probe outcomes. Server serves the registry over HTTP
// on the configured listen address and path.
//
// # Usage
//
//	reg := prometheus.NewRegistry()
//	m := metrics.NewCollectors(reg)
//	conn.SetMetrics(m)
//
//	srv := metrics.NewServer(cfg.Metrics, reg)
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Shutdown(ctx)
package metrics
