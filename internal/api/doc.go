// Package api provides the HTTP status API and WebSocket event stream for
// hadiscovery.
//
// It exposes read-only views of the discovery setup (devices, composed
// discovery documents, run state) and streams lifecycle events to
// connected WebSocket clients.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	conn.SetMetrics(server.Events())
//	server.Start(ctx)
//	defer server.Close()
//
// # Endpoints
//
//	GET /api/v1/health     liveness, version and run state
//	GET /api/v1/runtime    run state and last error
//	GET /api/v1/devices    registered devices and their entities
//	GET /api/v1/discovery  the documents a run publishes
//	GET /api/v1/ws         WebSocket event stream
//
// # Event channels
//
// WebSocket clients subscribe to channels by sending
// {"type":"subscribe","payload":{"channels":["runtime","hub"]}}.
// Channels are "runtime", "discovery", "hub" and "probe".
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
