package discovery

import (
	"fmt"
	"strings"

	"github.com/nerrad567/hadiscovery/internal/availability"
	"github.com/nerrad567/hadiscovery/internal/identifier"
)

// Device is a physical or logical device exposing entities to the hub.
//
// A device must have at least one identifier before it can be composed.
// Devices are configured before a runtime starts; mutating a device after
// it has been composed is not supported.
type Device struct {
	name        string
	identifiers []string
	connections []HardwareConnection

	serialNumber     string
	manufacturer     string
	model            string
	modelID          string
	hwVersion        string
	swVersion        string
	configurationURL string
	suggestedArea    string
	viaDevice        string

	qos      *QoS
	encoding *string
	stamped  bool

	availability *availability.Set
	entities     []*Entity
}

// NewDevice creates a device with the given display name.
func NewDevice(name string) *Device {
	return &Device{
		name:         name,
		availability: availability.NewSet(),
	}
}

// Name returns the display name.
func (d *Device) Name() string { return d.name }

// Identifiers returns a copy of the device identifiers.
func (d *Device) Identifiers() []string {
	out := make([]string, len(d.identifiers))
	copy(out, d.identifiers)
	return out
}

// SetIdentifiers replaces the identifier list.
func (d *Device) SetIdentifiers(ids ...string) error {
	if err := validateIdentifiers(ids); err != nil {
		return err
	}
	d.identifiers = append([]string(nil), ids...)
	return nil
}

// AddIdentifiers appends identifiers, skipping ones already present.
func (d *Device) AddIdentifiers(ids ...string) error {
	if err := validateIdentifiers(ids); err != nil {
		return err
	}
	for _, id := range ids {
		if !d.hasIdentifier(id) {
			d.identifiers = append(d.identifiers, id)
		}
	}
	return nil
}

func (d *Device) hasIdentifier(id string) bool {
	for _, existing := range d.identifiers {
		if existing == id {
			return true
		}
	}
	return false
}

func validateIdentifiers(ids []string) error {
	for _, id := range ids {
		if err := ValidateID("device identifier", id); err != nil {
			return err
		}
	}
	return nil
}

// SerialNumber returns the serial number.
func (d *Device) SerialNumber() string { return d.serialNumber }

// SetSerialNumber sets the serial number. When the device has no
// identifiers yet, one derived from the serial is added.
func (d *Device) SetSerialNumber(serial string) error {
	if err := validateNonEmpty(ErrInvalidOption, "serial_number", serial); err != nil {
		return err
	}
	d.serialNumber = serial
	if len(d.identifiers) == 0 {
		d.identifiers = []string{identifier.MustDerive(serial, identifier.DefaultLength, "")}
	}
	return nil
}

// Connections returns a copy of the hardware connections.
func (d *Device) Connections() []HardwareConnection {
	out := make([]HardwareConnection, len(d.connections))
	copy(out, d.connections)
	return out
}

// AddConnection adds a hardware connection such as ("mac", "aa:bb:cc:dd:ee:ff").
// Duplicates are ignored.
func (d *Device) AddConnection(typ, value string) error {
	typ = strings.TrimSpace(typ)
	value = strings.TrimSpace(value)
	if typ == "" || value == "" {
		return fmt.Errorf("%w: type and value are required", ErrInvalidConnection)
	}
	for _, c := range d.connections {
		if c.Type == typ && c.Value == value {
			return nil
		}
	}
	d.connections = append(d.connections, HardwareConnection{Type: typ, Value: value})
	return nil
}

// SetManufacturer sets the manufacturer. An empty value clears it.
func (d *Device) SetManufacturer(v string) { d.manufacturer = v }

// SetModel sets the model. An empty value clears it.
func (d *Device) SetModel(v string) { d.model = v }

// SetModelID sets the model id. An empty value clears it.
func (d *Device) SetModelID(v string) { d.modelID = v }

// SetHWVersion sets the hardware version. An empty value clears it.
func (d *Device) SetHWVersion(v string) { d.hwVersion = v }

// SetSWVersion sets the software version. An empty value clears it.
func (d *Device) SetSWVersion(v string) { d.swVersion = v }

// SetConfigurationURL sets the device configuration URL. An empty value clears it.
func (d *Device) SetConfigurationURL(v string) { d.configurationURL = v }

// SetSuggestedArea sets the area the hub should place the device in.
func (d *Device) SetSuggestedArea(v string) { d.suggestedArea = v }

// SetViaDevice sets the identifier of a gateway device this one routes through.
func (d *Device) SetViaDevice(id string) error {
	if err := ValidateID("via_device", id); err != nil {
		return err
	}
	d.viaDevice = id
	return nil
}

// QoS returns the device QoS and whether it is set.
func (d *Device) QoS() (QoS, bool) {
	if d.qos == nil {
		return 0, false
	}
	return *d.qos, true
}

// SetQoS sets the default QoS for the device's entities.
func (d *Device) SetQoS(q QoS) error {
	if err := ValidateQoS(q); err != nil {
		return err
	}
	d.qos = &q
	return nil
}

// Encoding returns the payload encoding and whether it is set.
func (d *Device) Encoding() (string, bool) {
	if d.encoding == nil {
		return "", false
	}
	return *d.encoding, true
}

// SetEncoding sets the default payload encoding for the device's entities.
func (d *Device) SetEncoding(enc string) {
	d.encoding = &enc
}

// Availability returns the device's own availability set.
func (d *Device) Availability() *availability.Set { return d.availability }

// AddEntities attaches entities in order. An entity whose identifier is
// already used on this device is rejected, and nothing is added.
func (d *Device) AddEntities(entities ...*Entity) error {
	seen := make(map[string]struct{}, len(d.entities)+len(entities))
	for _, e := range d.entities {
		seen[e.Identifier()] = struct{}{}
	}
	for _, e := range entities {
		if e == nil {
			return fmt.Errorf("%w: nil entity", ErrInvalidOption)
		}
		if _, dup := seen[e.Identifier()]; dup {
			return fmt.Errorf("%w: %q on device %q", ErrDuplicateEntity, e.Name(), d.name)
		}
		seen[e.Identifier()] = struct{}{}
	}

	d.entities = append(d.entities, entities...)
	return nil
}

// Entities returns the attached entities in order.
func (d *Device) Entities() []*Entity {
	return d.entities
}

// inherit stamps the connection QoS/encoding onto the device where unset.
// It only runs once per device.
func (d *Device) inherit(qos *QoS, encoding *string) {
	if d.stamped {
		return
	}
	d.stamped = true
	if d.qos == nil && qos != nil {
		q := *qos
		d.qos = &q
	}
	if d.encoding == nil && encoding != nil {
		enc := *encoding
		d.encoding = &enc
	}
}

// fields renders the device block with full key names.
func (d *Device) fields() map[string]any {
	out := map[string]any{
		"identifiers": toAnySlice(d.identifiers),
	}
	if d.name != "" {
		out["name"] = d.name
	}
	if len(d.connections) > 0 {
		cns := make([]any, 0, len(d.connections))
		for _, c := range d.connections {
			cns = append(cns, []any{c.Type, c.Value})
		}
		out["connections"] = cns
	}

	optional := []struct {
		key   string
		value string
	}{
		{"serial_number", d.serialNumber},
		{"manufacturer", d.manufacturer},
		{"model", d.model},
		{"model_id", d.modelID},
		{"hw_version", d.hwVersion},
		{"sw_version", d.swVersion},
		{"configuration_url", d.configurationURL},
		{"suggested_area", d.suggestedArea},
		{"via_device", d.viaDevice},
	}
	for _, f := range optional {
		if f.value != "" {
			out[f.key] = f.value
		}
	}
	return out
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
