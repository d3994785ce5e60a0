package discovery

import (
	"strings"

	"github.com/gosimple/slug"
)

const (
	// maxEntityIDLength is the longest entity id the hub accepts.
	maxEntityIDLength = 255

	// minDeviceSlugLength bounds how far the device part may be trimmed.
	minDeviceSlugLength = 20
)

// DefaultEntityID returns the entity id the hub derives for an entity
// without an object id, e.g. "sensor.device_a_temp".
//
// Ids longer than the hub's limit are shortened by trimming the device part
// first, then the entity part.
func DefaultEntityID(component Component, deviceName, entityName string) string {
	device := Slugify(deviceName)
	entity := Slugify(entityName)

	prefix := string(component) + "."
	overflow := len(prefix) + len(device) + 1 + len(entity) - maxEntityIDLength
	if overflow > 0 && len(device) > minDeviceSlugLength {
		keep := max(len(device)-overflow, minDeviceSlugLength)
		device = strings.TrimRight(device[:keep], "_")
	}

	var id string
	switch {
	case device == "":
		id = prefix + entity
	case entity == "":
		id = prefix + device
	default:
		id = prefix + device + "_" + entity
	}

	if len(id) > maxEntityIDLength {
		id = strings.TrimRight(id[:maxEntityIDLength], "_")
	}
	return id
}

// Slugify lowercases s and joins its words with underscores.
func Slugify(s string) string {
	return strings.ReplaceAll(slug.Make(s), "-", "_")
}
