package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/hadiscovery/internal/availability"
	"github.com/nerrad567/hadiscovery/internal/identifier"
	"github.com/nerrad567/hadiscovery/internal/scheduler"
)

// reservedKeys are produced by the Composer and cannot be set as options.
var reservedKeys = map[string]struct{}{
	"platform":          {},
	"unique_id":         {},
	"availability":      {},
	"availability_mode": {},
	"device":            {},
	"origin":            {},
	"components":        {},
	"qos":               {},
	"encoding":          {},
}

// Entity is one controllable or observable unit of a device.
//
// Its identifier is derived from the name, so two entities with the same
// name cannot live on the same device.
type Entity struct {
	component    Component
	name         string
	id           string
	availability *availability.Set
	schedules    []*scheduler.Schedule
	onBirth      []Callback
	onDeath      []Callback

	qos      *QoS
	encoding *string
	stamped  bool

	// options holds component options keyed by full discovery key name.
	options map[string]any
}

// NewEntity creates an entity of the given component kind.
func NewEntity(component Component, name string) (*Entity, error) {
	if err := ValidateComponent(component); err != nil {
		return nil, err
	}
	if err := validateNonEmpty(ErrInvalidName, "entity name", name); err != nil {
		return nil, err
	}

	return &Entity{
		component:    component,
		name:         name,
		id:           identifier.MustDerive(name, identifier.DefaultLength, ""),
		availability: availability.NewSet(),
		options:      make(map[string]any),
	}, nil
}

// Component returns the entity kind.
func (e *Entity) Component() Component { return e.component }

// Name returns the display name.
func (e *Entity) Name() string { return e.name }

// Identifier returns the identifier derived from the name.
func (e *Entity) Identifier() string { return e.id }

// Availability returns the entity's own availability set.
func (e *Entity) Availability() *availability.Set { return e.availability }

// AddSchedule registers cb to run every interval while a runtime is active.
// The first call happens on the first scheduler tick.
func (e *Entity) AddSchedule(interval time.Duration, cb Callback) {
	e.schedules = append(e.schedules, scheduler.NewSchedule(interval, func(ctx context.Context, _ time.Time) {
		cb(ctx, PublisherFromContext(ctx))
	}))
}

// Schedules returns the registered schedules.
func (e *Entity) Schedules() []*scheduler.Schedule {
	return e.schedules
}

// OnBirth registers a callback for when the hub reports it is online.
func (e *Entity) OnBirth(cb Callback) {
	e.onBirth = append(e.onBirth, cb)
}

// OnDeath registers a callback for when the hub reports it is offline.
func (e *Entity) OnDeath(cb Callback) {
	e.onDeath = append(e.onDeath, cb)
}

// Birth invokes the birth callbacks.
func (e *Entity) Birth(ctx context.Context, pub Publisher) {
	for _, cb := range e.onBirth {
		cb(ctx, pub)
	}
}

// Death invokes the death callbacks.
func (e *Entity) Death(ctx context.Context, pub Publisher) {
	for _, cb := range e.onDeath {
		cb(ctx, pub)
	}
}

// QoS returns the entity QoS and whether it is set.
func (e *Entity) QoS() (QoS, bool) {
	if e.qos == nil {
		return 0, false
	}
	return *e.qos, true
}

// SetQoS sets the entity QoS.
func (e *Entity) SetQoS(q QoS) error {
	if err := ValidateQoS(q); err != nil {
		return err
	}
	e.qos = &q
	return nil
}

// Encoding returns the payload encoding and whether it is set.
func (e *Entity) Encoding() (string, bool) {
	if e.encoding == nil {
		return "", false
	}
	return *e.encoding, true
}

// SetEncoding sets the payload encoding. An empty string means raw bytes.
func (e *Entity) SetEncoding(enc string) {
	e.encoding = &enc
}

// StateTopic returns the state topic, if set.
func (e *Entity) StateTopic() string {
	s, _ := e.options["state_topic"].(string)
	return s
}

// SetStateTopic sets the topic the entity publishes its state on.
func (e *Entity) SetStateTopic(topic string) error {
	return e.setTopic("state_topic", topic)
}

// CommandTopic returns the command topic, if set.
func (e *Entity) CommandTopic() string {
	s, _ := e.options["command_topic"].(string)
	return s
}

// SetCommandTopic sets the topic the hub sends commands on.
func (e *Entity) SetCommandTopic(topic string) error {
	return e.setTopic("command_topic", topic)
}

// SetUnitOfMeasurement sets the unit shown by the hub.
func (e *Entity) SetUnitOfMeasurement(unit string) error {
	return e.setString("unit_of_measurement", unit)
}

// SetDeviceClass sets the device class (e.g. "temperature").
func (e *Entity) SetDeviceClass(class string) error {
	return e.setString("device_class", class)
}

// SetStateClass sets the state class (e.g. "measurement").
func (e *Entity) SetStateClass(class string) error {
	return e.setString("state_class", class)
}

// SetValueTemplate sets the template used to extract the state.
func (e *Entity) SetValueTemplate(tpl string) error {
	return e.setString("value_template", tpl)
}

// SetIcon sets a Material Design icon such as "mdi:thermometer".
func (e *Entity) SetIcon(icon string) error {
	if err := ValidateIcon(icon); err != nil {
		return err
	}
	e.options["icon"] = icon
	return nil
}

// SetEntityCategory marks the entity as config or diagnostic.
func (e *Entity) SetEntityCategory(cat EntityCategory) error {
	if err := ValidateEntityCategory(cat); err != nil {
		return err
	}
	e.options["entity_category"] = string(cat)
	return nil
}

// SetObjectID sets the object id the hub uses to build the entity id.
func (e *Entity) SetObjectID(id string) error {
	if err := ValidateID("object_id", id); err != nil {
		return err
	}
	e.options["object_id"] = id
	return nil
}

// SetEnabledByDefault controls whether the hub enables the entity on discovery.
func (e *Entity) SetEnabledByDefault(enabled bool) {
	e.options["enabled_by_default"] = enabled
}

// SetOption sets an arbitrary component option by its full key name.
// Keys produced by the Composer are rejected.
func (e *Entity) SetOption(key string, value any) error {
	if err := validateNonEmpty(ErrInvalidOption, "option key", key); err != nil {
		return err
	}
	if _, reserved := reservedKeys[key]; reserved {
		return fmt.Errorf("%w: %q is managed by the composer", ErrInvalidOption, key)
	}
	e.options[key] = value
	return nil
}

// Option returns a component option by its full key name.
func (e *Entity) Option(key string) (any, bool) {
	v, ok := e.options[key]
	return v, ok
}

func (e *Entity) setTopic(key, topic string) error {
	if err := availability.ValidateTopic(topic); err != nil {
		return err
	}
	e.options[key] = topic
	return nil
}

func (e *Entity) setString(key, value string) error {
	if err := validateNonEmpty(ErrInvalidOption, key, value); err != nil {
		return err
	}
	e.options[key] = value
	return nil
}

// inherit stamps the device QoS/encoding onto the entity where unset.
// It only runs once per entity.
func (e *Entity) inherit(qos *QoS, encoding *string) {
	if e.stamped {
		return
	}
	e.stamped = true
	if e.qos == nil && qos != nil {
		q := *qos
		e.qos = &q
	}
	if e.encoding == nil && encoding != nil {
		enc := *encoding
		e.encoding = &enc
	}
}
