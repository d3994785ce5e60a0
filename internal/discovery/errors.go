package discovery

import (
	"errors"

	"github.com/nerrad567/hadiscovery/internal/availability"
	"github.com/nerrad567/hadiscovery/internal/identifier"
)

// Domain errors for the discovery package.
//
// All of them describe invalid configuration and are reported by the call
// that introduces the invalid state. Use errors.Is() to check for them, or
// IsConfigurationError to classify any configuration failure.
var (
	// ErrInvalidPrefix is returned for an unusable discovery prefix.
	ErrInvalidPrefix = errors.New("discovery: invalid discovery prefix")

	// ErrInvalidIdentifier is returned for identifiers outside [A-Za-z0-9_-].
	ErrInvalidIdentifier = errors.New("discovery: invalid identifier")

	// ErrInvalidIcon is returned for icons not in "mdi:name" form.
	ErrInvalidIcon = errors.New("discovery: invalid icon")

	// ErrInvalidComponent is returned for an unsupported component kind.
	ErrInvalidComponent = errors.New("discovery: invalid component")

	// ErrInvalidName is returned when a required name is empty.
	ErrInvalidName = errors.New("discovery: invalid name")

	// ErrInvalidQoS is returned for QoS levels other than 0, 1 or 2.
	ErrInvalidQoS = errors.New("discovery: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidEntityCategory is returned for unknown entity categories.
	ErrInvalidEntityCategory = errors.New("discovery: invalid entity category")

	// ErrInvalidConnection is returned for malformed hardware connections.
	ErrInvalidConnection = errors.New("discovery: invalid hardware connection")

	// ErrInvalidOption is returned for an empty origin or component option.
	ErrInvalidOption = errors.New("discovery: invalid option")

	// ErrMissingIdentifiers is returned when composing a device without identifiers.
	ErrMissingIdentifiers = errors.New("discovery: device has no identifiers")

	// ErrMissingOrigin is returned when the origin name is empty at composition.
	ErrMissingOrigin = errors.New("discovery: origin name is required")

	// ErrDuplicateEntity is returned when two entities of a device share an identifier.
	ErrDuplicateEntity = errors.New("discovery: duplicate entity identifier")
)

// configurationErrors lists every sentinel that denotes invalid configuration.
var configurationErrors = []error{
	ErrInvalidPrefix,
	ErrInvalidIdentifier,
	ErrInvalidIcon,
	ErrInvalidComponent,
	ErrInvalidName,
	ErrInvalidQoS,
	ErrInvalidEntityCategory,
	ErrInvalidConnection,
	ErrInvalidOption,
	ErrMissingIdentifiers,
	ErrMissingOrigin,
	ErrDuplicateEntity,
	availability.ErrInvalidTopic,
	availability.ErrDuplicateTopic,
	availability.ErrTopicNotFound,
	availability.ErrInvalidPayload,
	availability.ErrInvalidMode,
	identifier.ErrInvalidLength,
}

// IsConfigurationError reports whether err is caused by invalid configuration
// (as opposed to a transport failure).
func IsConfigurationError(err error) bool {
	for _, target := range configurationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
