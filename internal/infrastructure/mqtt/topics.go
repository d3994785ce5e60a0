package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the base of every topic this agent owns.
const TopicPrefix = "hadiscovery"

// Topics provides builders for the agent's own topics.
// Discovery and hub status topics belong to the discovery prefix and are
// built by the hass package.
//
//	topics := mqtt.Topics{}
//	topics.State("rack", "load")  // "hadiscovery/rack/load/state"
type Topics struct{}

// Availability returns the availability (last will) topic for a client.
//
// Example: hadiscovery/hadiscovery-1a2b3c4d/availability
func (Topics) Availability(clientID string) string {
	return fmt.Sprintf("%s/%s/availability", TopicPrefix, clientID)
}

// State returns the state topic of an entity.
//
// Example: hadiscovery/server_rack/load/state
func (Topics) State(device, entity string) string {
	return fmt.Sprintf("%s/%s/%s/state", TopicPrefix, device, entity)
}

// Command returns the command topic of an entity.
//
// Example: hadiscovery/server_rack/restart/set
func (Topics) Command(device, entity string) string {
	return fmt.Sprintf("%s/%s/%s/set", TopicPrefix, device, entity)
}

// ValidatePublishTopic checks that topic can be published to: non-empty,
// no wildcards and no null characters.
func ValidatePublishTopic(topic string) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case strings.ContainsAny(topic, "+#"):
		return fmt.Errorf("%w: %q contains a wildcard", ErrInvalidTopic, topic)
	case strings.ContainsRune(topic, 0):
		return fmt.Errorf("%w: %q contains a null character", ErrInvalidTopic, topic)
	}
	return nil
}
