// Package hass connects declared devices to Home Assistant over MQTT discovery.
//
// A Connection owns the discovery prefix, origin, connection-wide
// availability and the registered devices. Start drives one run:
//
//	connect → publish discovery → subscribe to hub status → run schedules
//
// as a cancellable unit of work exposed through a Runtime handle. At most
// one run is active per Connection; concurrent or repeated Start calls
// return the active run's handle.
//
// Thread Safety: Start, Runtime.Stop, Runtime.IsRunning and
// Runtime.LastError are safe for concurrent use. The lifecycle lock is never
// held across transport calls. Devices and entities must be configured
// before the first Start.
package hass
