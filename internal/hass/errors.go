package hass

import "errors"

// Domain errors for the hass package.
var (
	// ErrTransport wraps connect, publish and subscribe failures reported
	// by the transport.
	ErrTransport = errors.New("hass: transport failure")

	// ErrWorkerPanic is recorded when a run's callbacks panic.
	ErrWorkerPanic = errors.New("hass: run panicked")

	// ErrNilTransport is returned by NewConnection without a transport.
	ErrNilTransport = errors.New("hass: transport is required")

	// ErrNilDevice is returned when registering a nil device.
	ErrNilDevice = errors.New("hass: device is nil")

	// ErrInvalidStatusPayload is returned for empty or equal hub status payloads.
	ErrInvalidStatusPayload = errors.New("hass: invalid hub status payloads")
)
