package availability

import "errors"

// Domain errors for availability sets.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidTopic is returned when a topic is empty or not publishable.
	ErrInvalidTopic = errors.New("availability: invalid topic")

	// ErrDuplicateTopic is returned when adding a topic that is already present.
	ErrDuplicateTopic = errors.New("availability: topic already exists")

	// ErrTopicNotFound is returned when removing a topic that is not present.
	ErrTopicNotFound = errors.New("availability: topic not found")

	// ErrInvalidPayload is returned when an online/offline payload is empty.
	ErrInvalidPayload = errors.New("availability: payload cannot be empty")

	// ErrInvalidMode is returned for an unknown availability mode.
	ErrInvalidMode = errors.New("availability: invalid mode")
)
