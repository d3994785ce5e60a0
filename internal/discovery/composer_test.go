package discovery

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/hadiscovery/internal/availability"
	"github.com/nerrad567/hadiscovery/internal/identifier"
	"github.com/nerrad567/hadiscovery/internal/scheduler"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ []byte, _ byte, _ bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

type logEntry struct {
	level string
	msg   string
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level, msg})
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.add("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.add("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.add("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.add("error", msg) }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

func runSchedules(ctx context.Context, entities ...*Entity) {
	s := scheduler.New()
	for _, e := range entities {
		s.Add(e.Schedules()...)
	}
	s.Tick(ctx, time.Now())
}

// newTestDevice returns "Device A" with serial "S1" and a "Temp" sensor.
func newTestDevice(t *testing.T) (*Device, *Entity) {
	t.Helper()
	dev := NewDevice("Device A")
	require.NoError(t, dev.SetSerialNumber("S1"))
	dev.SetManufacturer("Acme")

	temp := mustEntity(t, ComponentSensor, "Temp")
	require.NoError(t, temp.SetStateTopic("hadiscovery/device_a/temp"))
	require.NoError(t, temp.SetUnitOfMeasurement("°C"))
	require.NoError(t, dev.AddEntities(temp))
	return dev, temp
}

func uniqueID(dev *Device, e *Entity) string {
	return identifier.MustDerive(e.Identifier(), identifier.DefaultLength, dev.Identifiers()[0])
}

func TestCompose_SingleDevice(t *testing.T) {
	dev, temp := newTestDevice(t)
	c := &Composer{Prefix: "homeassistant", Origin: NewOrigin("hadiscovery")}

	msgs, err := c.Compose([]*Device{dev})
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	devID := identifier.MustDerive("S1", identifier.DefaultLength, "")
	uid := uniqueID(dev, temp)

	assert.Equal(t, "homeassistant/device/"+devID+"/config", msgs[0].Topic)
	assert.Equal(t, "Device A", msgs[0].DeviceName)

	want := map[string]any{
		"device": map[string]any{
			"identifiers":   []any{devID},
			"name":          "Device A",
			"serial_number": "S1",
			"manufacturer":  "Acme",
		},
		"origin": map[string]any{"name": "hadiscovery"},
		"components": map[string]any{
			uid: map[string]any{
				"platform":            "sensor",
				"unique_id":           uid,
				"name":                "Temp",
				"state_topic":         "hadiscovery/device_a/temp",
				"unit_of_measurement": "°C",
			},
		},
	}
	if diff := cmp.Diff(want, msgs[0].Document); diff != "" {
		t.Errorf("Compose() document mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_MissingIdentifiers(t *testing.T) {
	c := &Composer{Prefix: "homeassistant", Origin: NewOrigin("hadiscovery")}
	_, err := c.Compose([]*Device{NewDevice("No IDs")})
	assert.ErrorIs(t, err, ErrMissingIdentifiers)
	assert.True(t, IsConfigurationError(err))
}

func TestCompose_InvalidPrefix(t *testing.T) {
	dev, _ := newTestDevice(t)
	c := &Composer{Prefix: "home/+", Origin: NewOrigin("hadiscovery")}
	_, err := c.Compose([]*Device{dev})
	assert.ErrorIs(t, err, ErrInvalidPrefix)
}

func TestCompose_DuplicateUniqueID(t *testing.T) {
	dev, _ := newTestDevice(t)
	// Bypass AddEntities to simulate two entities that collide.
	dev.entities = append(dev.entities, mustEntity(t, ComponentBinarySensor, "Temp"))

	c := &Composer{Prefix: "homeassistant", Origin: NewOrigin("hadiscovery")}
	_, err := c.Compose([]*Device{dev})
	assert.ErrorIs(t, err, ErrDuplicateEntity)
}

func TestCompose_OriginFilledFromFirstDevice(t *testing.T) {
	dev, _ := newTestDevice(t)
	log := &recordingLogger{}
	c := &Composer{Prefix: "homeassistant", Logger: log}

	msgs, err := c.Compose([]*Device{dev})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Device A"}, msgs[0].Document["origin"])
	assert.Equal(t, "Device A", c.Origin.Name())

	_, err = c.Compose([]*Device{dev})
	require.NoError(t, err)
	assert.Equal(t, 1, log.count("info"), "origin fill is reported once")
}

func TestCompose_MissingOrigin(t *testing.T) {
	dev := NewDevice("")
	require.NoError(t, dev.SetIdentifiers("anon"))

	c := &Composer{Prefix: "homeassistant", Origin: NewOrigin("")}
	_, err := c.Compose([]*Device{dev})
	assert.ErrorIs(t, err, ErrMissingOrigin)
}

func TestCompose_Availability(t *testing.T) {
	root := availability.NewSet()
	require.NoError(t, root.Add("hadiscovery/status"))

	t.Run("root block when an entity has none", func(t *testing.T) {
		dev, _ := newTestDevice(t)
		c := &Composer{Prefix: "homeassistant", Origin: NewOrigin("x"), Availability: root}

		msgs, err := c.Compose([]*Device{dev})
		require.NoError(t, err)
		assert.Equal(t, []any{map[string]any{"topic": "hadiscovery/status"}}, msgs[0].Document["availability"])
	})

	t.Run("entity availability merges device and root", func(t *testing.T) {
		dev, temp := newTestDevice(t)
		require.NoError(t, temp.Availability().Add("device_a/temp/avail", availability.WithPayloads("1", "0")))
		require.NoError(t, dev.Availability().Add("device_a/avail"))
		require.NoError(t, dev.Availability().SetMode(availability.ModeAll))

		c := &Composer{Prefix: "homeassistant", Origin: NewOrigin("x"), Availability: root}
		msgs, err := c.Compose([]*Device{dev})
		require.NoError(t, err)

		doc := msgs[0].Document
		_, hasRoot := doc["availability"]
		assert.False(t, hasRoot, "every entity has its own availability")

		cmpBlock := doc["components"].(map[string]any)[uniqueID(dev, temp)].(map[string]any)
		want := []any{
			map[string]any{"topic": "device_a/temp/avail", "payload_available": "1", "payload_not_available": "0"},
			map[string]any{"topic": "device_a/avail"},
			map[string]any{"topic": "hadiscovery/status"},
		}
		if diff := cmp.Diff(want, cmpBlock["availability"]); diff != "" {
			t.Errorf("entity availability mismatch (-want +got):\n%s", diff)
		}
		_, hasMode := cmpBlock["availability_mode"]
		assert.False(t, hasMode, "entity mode is unset")

		// The entity's own set is not mutated by composition.
		assert.Equal(t, 1, temp.Availability().Len())
		assert.Equal(t, 1, dev.Availability().Len())
	})

	t.Run("duplicate topics are warned and kept", func(t *testing.T) {
		dev, temp := newTestDevice(t)
		require.NoError(t, temp.Availability().Add("hadiscovery/status", availability.WithPayloads("up", "down")))

		log := &recordingLogger{}
		c := &Composer{Prefix: "homeassistant", Origin: NewOrigin("x"), Availability: root, Logger: log}
		msgs, err := c.Compose([]*Device{dev})
		require.NoError(t, err)

		cmpBlock := msgs[0].Document["components"].(map[string]any)[uniqueID(dev, temp)].(map[string]any)
		assert.Equal(t, []any{
			map[string]any{"topic": "hadiscovery/status", "payload_available": "up", "payload_not_available": "down"},
		}, cmpBlock["availability"])
		assert.Equal(t, 1, log.count("warn"))
	})
}

func TestCompose_QoSEncodingStampedOnce(t *testing.T) {
	dev, temp := newTestDevice(t)
	loud := mustEntity(t, ComponentSensor, "Loud")
	require.NoError(t, loud.SetQoS(2))
	loud.SetEncoding("")
	require.NoError(t, dev.AddEntities(loud))

	q := QoS(1)
	enc := "utf-8"
	c := &Composer{Prefix: "homeassistant", Origin: NewOrigin("x"), QoS: &q, Encoding: &enc}

	first, err := c.Compose([]*Device{dev})
	require.NoError(t, err)

	doc := first[0].Document
	assert.Equal(t, 1, doc["qos"])
	assert.Equal(t, "utf-8", doc["encoding"])

	cmps := doc["components"].(map[string]any)
	tempBlock := cmps[uniqueID(dev, temp)].(map[string]any)
	loudBlock := cmps[uniqueID(dev, loud)].(map[string]any)
	assert.NotContains(t, tempBlock, "qos")
	assert.NotContains(t, tempBlock, "encoding")
	assert.Equal(t, 2, loudBlock["qos"])
	assert.Equal(t, "", loudBlock["encoding"])

	got, ok := temp.QoS()
	assert.True(t, ok)
	assert.Equal(t, QoS(1), got, "entity inherits the device QoS")

	// Connection defaults changing later do not re-stamp.
	q2 := QoS(0)
	c.QoS = &q2
	second, err := c.Compose([]*Device{dev})
	require.NoError(t, err)
	if diff := cmp.Diff(first[0].Document, second[0].Document); diff != "" {
		t.Errorf("second Compose() differs (-first +second):\n%s", diff)
	}
}

func TestCompose_Abbreviated(t *testing.T) {
	dev, temp := newTestDevice(t)
	root := availability.NewSet()
	require.NoError(t, root.Add("hadiscovery/status"))

	full := &Composer{Prefix: "homeassistant", Origin: NewOrigin("x"), Availability: root}
	short := &Composer{Prefix: "homeassistant", Origin: NewOrigin("x"), Availability: root, Abbreviated: true}

	fullMsgs, err := full.Compose([]*Device{dev})
	require.NoError(t, err)
	shortMsgs, err := short.Compose([]*Device{dev})
	require.NoError(t, err)

	doc := shortMsgs[0].Document
	for _, key := range []string{"dev", "o", "cmps", "avty"} {
		assert.Contains(t, doc, key)
	}
	assert.Contains(t, doc["dev"], "ids")
	assert.Contains(t, doc["dev"], "sn")

	uid := uniqueID(dev, temp)
	block := doc["cmps"].(map[string]any)[uid].(map[string]any)
	assert.Equal(t, "sensor", block["p"])
	assert.Equal(t, uid, block["uniq_id"])
	assert.Equal(t, "hadiscovery/device_a/temp", block["stat_t"])

	// Expanding the abbreviated form yields the full document.
	if diff := cmp.Diff(fullMsgs[0].Document, renderKeys(doc, Expand)); diff != "" {
		t.Errorf("expanded document mismatch (-full +expanded):\n%s", diff)
	}
}

func TestMessage_Rendering(t *testing.T) {
	dev, _ := newTestDevice(t)
	c := &Composer{Prefix: "homeassistant", Origin: NewOrigin("hadiscovery")}
	msgs, err := c.Compose([]*Device{dev})
	require.NoError(t, err)

	compact, err := msgs[0].Compact()
	require.NoError(t, err)
	assert.NotContains(t, string(compact), "\n")
	assert.NotContains(t, string(compact), ": ")
	assert.Contains(t, string(compact), `"platform":"sensor"`)

	pretty, err := msgs[0].Pretty()
	require.NoError(t, err)
	assert.Contains(t, string(pretty), "\n  \"components\": {")

	text, err := Text(msgs)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "# "+msgs[0].Topic+"\n{"))
}
