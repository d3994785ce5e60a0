package discovery

import "fmt"

// Component is the kind of an entity. It decides how the hub renders it.
type Component string

// Supported components.
const (
	ComponentBinarySensor Component = "binary_sensor"
	ComponentButton       Component = "button"
	ComponentCover        Component = "cover"
	ComponentEvent        Component = "event"
	ComponentHumidifier   Component = "humidifier"
	ComponentMediaPlayer  Component = "media_player"
	ComponentNumber       Component = "number"
	ComponentSensor       Component = "sensor"
	ComponentSwitch       Component = "switch"
	ComponentUpdate       Component = "update"
	ComponentValve        Component = "valve"
)

// AllComponents returns every supported component.
func AllComponents() []Component {
	return []Component{
		ComponentBinarySensor,
		ComponentButton,
		ComponentCover,
		ComponentEvent,
		ComponentHumidifier,
		ComponentMediaPlayer,
		ComponentNumber,
		ComponentSensor,
		ComponentSwitch,
		ComponentUpdate,
		ComponentValve,
	}
}

// ParseComponent converts a string to a Component.
func ParseComponent(s string) (Component, error) {
	c := Component(s)
	if err := ValidateComponent(c); err != nil {
		return "", err
	}
	return c, nil
}

// EntityCategory marks configuration and diagnostic entities.
type EntityCategory string

const (
	EntityCategoryConfig     EntityCategory = "config"
	EntityCategoryDiagnostic EntityCategory = "diagnostic"
)

// QoS is an MQTT delivery guarantee level.
type QoS byte

const (
	QoSAtMostOnce  QoS = 0
	QoSAtLeastOnce QoS = 1
	QoSExactlyOnce QoS = 2
)

// Valid reports whether q is 0, 1 or 2.
func (q QoS) Valid() bool {
	return q <= QoSExactlyOnce
}

func (q QoS) String() string {
	switch q {
	case QoSAtMostOnce:
		return "at_most_once"
	case QoSAtLeastOnce:
		return "at_least_once"
	case QoSExactlyOnce:
		return "exactly_once"
	}
	return fmt.Sprintf("qos(%d)", byte(q))
}

// HardwareConnection is a (type, value) pair such as ("mac", "aa:bb:..").
type HardwareConnection struct {
	Type  string
	Value string
}

// Well-known hardware connection types.
const (
	ConnectionMAC       = "mac"
	ConnectionBluetooth = "bluetooth"
)
