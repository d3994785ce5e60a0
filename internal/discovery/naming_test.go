package discovery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultEntityID(t *testing.T) {
	tests := []struct {
		component Component
		device    string
		entity    string
		want      string
	}{
		{ComponentSensor, "Device A", "Temp", "sensor.device_a_temp"},
		{ComponentBinarySensor, "Front Door", "Contact", "binary_sensor.front_door_contact"},
		{ComponentSensor, "", "Temp", "sensor.temp"},
		{ComponentButton, "Host", "", "button.host"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := DefaultEntityID(tt.component, tt.device, tt.entity); got != tt.want {
				t.Errorf("DefaultEntityID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultEntityID_TrimsDeviceFirst(t *testing.T) {
	id := DefaultEntityID(ComponentSensor, strings.Repeat("a", 300), "temp")

	assert.Len(t, id, maxEntityIDLength)
	assert.True(t, strings.HasSuffix(id, "_temp"))
	assert.True(t, strings.HasPrefix(id, "sensor.aaaa"))
}

func TestDefaultEntityID_NeverExceedsLimit(t *testing.T) {
	id := DefaultEntityID(ComponentSensor, strings.Repeat("d", 300), strings.Repeat("e", 300))
	assert.LessOrEqual(t, len(id), maxEntityIDLength)
	assert.True(t, strings.HasPrefix(id, "sensor."+strings.Repeat("d", minDeviceSlugLength)+"_"))
}
