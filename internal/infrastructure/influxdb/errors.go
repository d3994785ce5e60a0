package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed wraps the ping failure that aborted Connect.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected is returned by HealthCheck once the recorder is closed.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrWriteFailed wraps every batch error handed to the OnError callback.
	ErrWriteFailed = errors.New("influxdb: write failed")
)
