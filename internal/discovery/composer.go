package discovery

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/hadiscovery/internal/availability"
	"github.com/nerrad567/hadiscovery/internal/identifier"
)

// Logger defines the logging interface used by the Composer.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Message is one discovery document ready to publish.
type Message struct {
	// Topic is "{prefix}/device/{identifier}/config".
	Topic string

	// DeviceName is the display name of the described device.
	DeviceName string

	// Document holds the rendered document, abbreviated or not.
	Document map[string]any
}

// Compact renders the document as JSON without extraneous whitespace.
func (m Message) Compact() ([]byte, error) {
	data, err := json.Marshal(m.Document)
	if err != nil {
		return nil, fmt.Errorf("marshalling discovery document for %s: %w", m.Topic, err)
	}
	return data, nil
}

// Pretty renders the document as indented, key-sorted JSON.
func (m Message) Pretty() ([]byte, error) {
	data, err := json.MarshalIndent(m.Document, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling discovery document for %s: %w", m.Topic, err)
	}
	return data, nil
}

// Text renders messages for human inspection, each under a topic banner.
func Text(msgs []Message) (string, error) {
	var buf bytes.Buffer
	for i, m := range msgs {
		pretty, err := m.Pretty()
		if err != nil {
			return "", err
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "# %s\n", m.Topic)
		buf.Write(pretty)
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}

// Composer builds one discovery document per device.
//
// Composition stamps the resolved QoS and encoding onto devices and
// entities the first time it runs; later compositions reuse the stamped
// values. Availability sets are merged on copies so composing twice yields
// the same documents.
type Composer struct {
	// Prefix is the discovery prefix, e.g. "homeassistant".
	Prefix string

	// Origin describes the publishing software. Its name is filled from the
	// first device when empty.
	Origin *Origin

	// Availability is the connection-wide availability merged into every device.
	Availability *availability.Set

	// QoS and Encoding are the connection defaults inherited by devices.
	QoS      *QoS
	Encoding *string

	// Abbreviated selects abbreviated key names.
	Abbreviated bool

	Logger Logger
}

// Compose builds the discovery messages for devices, in order.
func (c *Composer) Compose(devices []*Device) ([]Message, error) {
	if err := ValidateDiscoveryPrefix(c.Prefix); err != nil {
		return nil, err
	}

	log := c.Logger
	if log == nil {
		log = noopLogger{}
	}

	origin, err := c.origin(devices, log)
	if err != nil {
		return nil, err
	}

	msgs := make([]Message, 0, len(devices))
	for _, dev := range devices {
		doc, err := c.document(dev, origin, log)
		if err != nil {
			return nil, err
		}

		if c.Abbreviated {
			doc = renderKeys(doc, Abbreviate)
		}

		msgs = append(msgs, Message{
			Topic:      c.Prefix + "/device/" + dev.identifiers[0] + "/config",
			DeviceName: dev.Name(),
			Document:   doc,
		})
	}
	return msgs, nil
}

// origin resolves the origin block, filling its name from the first device.
func (c *Composer) origin(devices []*Device, log Logger) (map[string]any, error) {
	if c.Origin == nil {
		c.Origin = NewOrigin("")
	}
	if c.Origin.Name() == "" && len(devices) > 0 && devices[0].Name() != "" {
		c.Origin.name = devices[0].Name()
		log.Info("origin name not set, using first device name", "origin", c.Origin.name)
	}
	return c.Origin.fields()
}

// document builds the full-key document for one device.
func (c *Composer) document(dev *Device, origin map[string]any, log Logger) (map[string]any, error) {
	if dev == nil {
		return nil, fmt.Errorf("%w: nil device", ErrMissingIdentifiers)
	}
	if len(dev.identifiers) == 0 {
		return nil, fmt.Errorf("%w: device %q", ErrMissingIdentifiers, dev.Name())
	}

	dev.inherit(c.QoS, c.Encoding)

	devAvail := dev.Availability().Clone()
	warnSkipped(log, dev.Name(), "", devAvail.Merge(c.Availability))

	namespace := dev.identifiers[0]
	components := make(map[string]any, len(dev.entities))
	needRoot := false

	for _, ent := range dev.entities {
		uid, err := identifier.Derive(ent.Identifier(), identifier.DefaultLength, namespace)
		if err != nil {
			return nil, fmt.Errorf("deriving unique id for %q: %w", ent.Name(), err)
		}
		if _, dup := components[uid]; dup {
			return nil, fmt.Errorf("%w: %q on device %q", ErrDuplicateEntity, ent.Name(), dev.Name())
		}

		ent.inherit(dev.qos, dev.encoding)

		cmp := make(map[string]any, len(ent.options)+5)
		for k, v := range ent.options {
			cmp[k] = v
		}
		cmp["platform"] = string(ent.Component())
		cmp["unique_id"] = uid
		cmp["name"] = ent.Name()

		if ent.Availability().Active() {
			entAvail := ent.Availability().Clone()
			warnSkipped(log, dev.Name(), ent.Name(), entAvail.Merge(devAvail))
			for k, v := range entAvail.Fields() {
				cmp[k] = v
			}
		} else {
			needRoot = true
		}

		if ent.qos != nil && !sameQoS(ent.qos, dev.qos) {
			cmp["qos"] = int(*ent.qos)
		}
		if ent.encoding != nil && !sameString(ent.encoding, dev.encoding) {
			cmp["encoding"] = *ent.encoding
		}

		components[uid] = cmp
	}

	doc := map[string]any{
		"device":     dev.fields(),
		"origin":     cloneMap(origin),
		"components": components,
	}
	if needRoot {
		for k, v := range devAvail.Fields() {
			doc[k] = v
		}
	}
	if dev.qos != nil {
		doc["qos"] = int(*dev.qos)
	}
	if dev.encoding != nil {
		doc["encoding"] = *dev.encoding
	}
	return doc, nil
}

func warnSkipped(log Logger, device, entity string, skipped []availability.Item) {
	for _, item := range skipped {
		log.Warn("availability topic already present, keeping existing item",
			"device", device,
			"entity", entity,
			"topic", item.Topic,
		)
	}
}

func sameQoS(a, b *QoS) bool {
	return b != nil && *a == *b
}

func sameString(a, b *string) bool {
	return b != nil && *a == *b
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
