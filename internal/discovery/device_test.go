package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/hadiscovery/internal/identifier"
)

func mustEntity(t *testing.T, c Component, name string) *Entity {
	t.Helper()
	e, err := NewEntity(c, name)
	require.NoError(t, err)
	return e
}

func TestNewEntity(t *testing.T) {
	e := mustEntity(t, ComponentSensor, "Temp")

	assert.Equal(t, ComponentSensor, e.Component())
	assert.Equal(t, "Temp", e.Name())
	assert.Equal(t, identifier.MustDerive("Temp", identifier.DefaultLength, ""), e.Identifier())
	assert.False(t, e.Availability().Active())

	_, err := NewEntity(ComponentSensor, "")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = NewEntity("lamp", "Temp")
	assert.ErrorIs(t, err, ErrInvalidComponent)
}

func TestEntity_Options(t *testing.T) {
	e := mustEntity(t, ComponentSensor, "Temp")

	require.NoError(t, e.SetStateTopic("hadiscovery/device_a/temp"))
	assert.Equal(t, "hadiscovery/device_a/temp", e.StateTopic())
	assert.Error(t, e.SetStateTopic("bad/+/topic"))
	assert.Error(t, e.SetCommandTopic(""))

	assert.ErrorIs(t, e.SetIcon("thermometer"), ErrInvalidIcon)
	require.NoError(t, e.SetIcon("mdi:thermometer"))

	assert.ErrorIs(t, e.SetObjectID("bad id"), ErrInvalidIdentifier)
	assert.ErrorIs(t, e.SetEntityCategory("system"), ErrInvalidEntityCategory)
	assert.ErrorIs(t, e.SetUnitOfMeasurement(""), ErrInvalidOption)

	assert.ErrorIs(t, e.SetOption("unique_id", "x"), ErrInvalidOption)
	assert.ErrorIs(t, e.SetOption("availability", nil), ErrInvalidOption)
	require.NoError(t, e.SetOption("expire_after", 120))

	v, ok := e.Option("expire_after")
	assert.True(t, ok)
	assert.Equal(t, 120, v)
}

func TestEntity_ScheduleUsesContextPublisher(t *testing.T) {
	e := mustEntity(t, ComponentSensor, "Temp")

	var got Publisher
	e.AddSchedule(time.Second, func(_ context.Context, pub Publisher) {
		got = pub
	})
	require.Len(t, e.Schedules(), 1)

	pub := &recordingPublisher{}
	ctx := ContextWithPublisher(context.Background(), pub)
	sch := e.Schedules()[0]
	require.True(t, sch.Due(time.Now()))

	// Drive the schedule through a one-off scheduler tick.
	runSchedules(ctx, e)
	assert.Same(t, pub, got)
}

func TestEntity_UnboundPublisher(t *testing.T) {
	pub := PublisherFromContext(context.Background())
	err := pub.Publish(context.Background(), "t", nil, 0, false)
	assert.ErrorIs(t, err, ErrNoPublisher)
}

func TestEntity_BirthDeath(t *testing.T) {
	e := mustEntity(t, ComponentBinarySensor, "Door")

	var births, deaths int
	e.OnBirth(func(context.Context, Publisher) { births++ })
	e.OnBirth(func(context.Context, Publisher) { births++ })
	e.OnDeath(func(context.Context, Publisher) { deaths++ })

	e.Birth(context.Background(), &recordingPublisher{})
	e.Death(context.Background(), &recordingPublisher{})

	assert.Equal(t, 2, births)
	assert.Equal(t, 1, deaths)
}

func TestDevice_Identifiers(t *testing.T) {
	d := NewDevice("Device A")
	assert.Empty(t, d.Identifiers())

	assert.ErrorIs(t, d.SetIdentifiers("ok", "not ok"), ErrInvalidIdentifier)
	assert.Empty(t, d.Identifiers())

	require.NoError(t, d.SetIdentifiers("a1"))
	require.NoError(t, d.AddIdentifiers("a2", "a1"))
	assert.Equal(t, []string{"a1", "a2"}, d.Identifiers())
}

func TestDevice_SerialSeedsIdentifier(t *testing.T) {
	d := NewDevice("Device A")
	require.NoError(t, d.SetSerialNumber("S1"))

	assert.Equal(t, "S1", d.SerialNumber())
	assert.Equal(t, []string{identifier.MustDerive("S1", identifier.DefaultLength, "")}, d.Identifiers())

	// Existing identifiers are kept.
	d2 := NewDevice("Device B")
	require.NoError(t, d2.SetIdentifiers("fixed"))
	require.NoError(t, d2.SetSerialNumber("S2"))
	assert.Equal(t, []string{"fixed"}, d2.Identifiers())

	assert.ErrorIs(t, d.SetSerialNumber(""), ErrInvalidOption)
}

func TestDevice_Connections(t *testing.T) {
	d := NewDevice("Device A")
	require.NoError(t, d.AddConnection(ConnectionMAC, "aa:bb:cc:dd:ee:ff"))
	require.NoError(t, d.AddConnection(ConnectionMAC, "aa:bb:cc:dd:ee:ff"))
	assert.ErrorIs(t, d.AddConnection("", "x"), ErrInvalidConnection)

	assert.Equal(t, []HardwareConnection{{Type: ConnectionMAC, Value: "aa:bb:cc:dd:ee:ff"}}, d.Connections())
}

func TestDevice_AddEntitiesRejectsDuplicates(t *testing.T) {
	d := NewDevice("Device A")
	require.NoError(t, d.AddEntities(mustEntity(t, ComponentSensor, "Temp")))

	err := d.AddEntities(
		mustEntity(t, ComponentSensor, "Humidity"),
		mustEntity(t, ComponentBinarySensor, "Temp"),
	)
	assert.ErrorIs(t, err, ErrDuplicateEntity)
	assert.Len(t, d.Entities(), 1, "a failed add must not attach anything")

	err = d.AddEntities(mustEntity(t, ComponentSensor, "A"), mustEntity(t, ComponentSensor, "A"))
	assert.ErrorIs(t, err, ErrDuplicateEntity)
}

func TestDevice_QoS(t *testing.T) {
	d := NewDevice("Device A")
	_, ok := d.QoS()
	assert.False(t, ok)

	assert.ErrorIs(t, d.SetQoS(5), ErrInvalidQoS)
	require.NoError(t, d.SetQoS(2))
	q, ok := d.QoS()
	assert.True(t, ok)
	assert.Equal(t, QoS(2), q)
}
