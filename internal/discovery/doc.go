// Package discovery builds Home Assistant MQTT device discovery documents.
//
// This package manages:
//   - Devices and their Entities (sensors, switches, ...)
//   - Origin metadata identifying the publishing software
//   - Validation of identifiers, icons, components and topic prefixes
//   - Composition of one discovery document per device
//   - Full or abbreviated key rendering
//
// # Composition
//
// Configuration flows top-down (connection → device → entity) and the
// Composer assembles documents bottom-up. QoS and encoding are inherited
// from the level above only when unset, and the inherited value is stamped
// onto the device/entity on the first composition. Availability sets are
// merged on copies, so composing twice yields the same documents.
//
//	composer := &discovery.Composer{
//	    Prefix:       "homeassistant",
//	    Origin:       origin,
//	    Availability: rootAvailability,
//	}
//	msgs, err := composer.Compose(devices)
//	for _, msg := range msgs {
//	    payload, _ := msg.Compact()
//	    client.Publish(msg.Topic, payload, 1, true)
//	}
//
// # Wire format
//
// Documents are published to "{prefix}/device/{device_id}/config" as
// compact JSON. The same document can be rendered with the abbreviated key
// table (e.g. "identifiers" → "ids", "components" → "cmps") to reduce
// payload size; both renderings are value-equivalent.
package discovery
