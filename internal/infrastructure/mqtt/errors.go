package mqtt

import "errors"

// Errors returned by Client. Operation failures wrap one of these, so
// callers match with errors.Is.
var (
	ErrNotConnected     = errors.New("mqtt: client not connected")
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrTimeout          = errors.New("mqtt: operation timed out")

	// ErrPublishFailed covers oversized payloads and rejected publishes.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed covers both subscribe and unsubscribe failures.
	ErrSubscribeFailed = errors.New("mqtt: subscription change failed")

	ErrInvalidQoS   = errors.New("mqtt: QoS must be 0, 1 or 2")
	ErrInvalidTopic = errors.New("mqtt: invalid topic")
)
