package hostid

import (
	"errors"
	"net"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/hadiscovery/internal/discovery"
)

func mustMAC(t *testing.T, s string) net.HardwareAddr {
	t.Helper()
	hw, err := net.ParseMAC(s)
	require.NoError(t, err)
	return hw
}

func testDetector(files fstest.MapFS, ifaces []net.Interface, err error) *Detector {
	return &Detector{
		root:       files,
		interfaces: func() ([]net.Interface, error) { return ifaces, err },
	}
}

func TestNormalizeMAC(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"AA:BB:CC:DD:EE:FF", "aa:bb:cc:dd:ee:ff", true},
		{"aa-bb-cc-dd-ee-ff", "aa:bb:cc:dd:ee:ff", true},
		{"aabb.ccdd.eeff", "aa:bb:cc:dd:ee:ff", true},
		{"00:00:00:00:00:00", "", false},
		{"ff:ff:ff:ff:ff:ff", "", false},
		{"aa:bb:cc", "", false},
		{"zz:bb:cc:dd:ee:ff", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeMAC(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsGlobalMAC(t *testing.T) {
	assert.True(t, isGlobalMAC("00:1a:2b:3c:4d:5e"))
	assert.False(t, isGlobalMAC("02:42:ac:11:00:02"), "locally administered")
	assert.False(t, isGlobalMAC("01:00:5e:00:00:01"), "multicast")
}

func TestDetect_SerialPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		files fstest.MapFS
		want  string
	}{
		{
			name: "dmi serial",
			files: fstest.MapFS{
				"sys/class/dmi/id/product_serial": {Data: []byte("DMI-123\n")},
				"etc/machine-id":                  {Data: []byte("abc\n")},
			},
			want: "DMI-123",
		},
		{
			name: "device tree with nul",
			files: fstest.MapFS{
				"proc/device-tree/serial-number": {Data: []byte("00000000deadbeef\x00")},
			},
			want: "00000000deadbeef",
		},
		{
			name: "cpuinfo",
			files: fstest.MapFS{
				"proc/cpuinfo": {Data: []byte("processor\t: 0\nSerial\t\t: 10000000abcdef01\n")},
			},
			want: "10000000abcdef01",
		},
		{
			name: "machine id fallback",
			files: fstest.MapFS{
				"sys/class/dmi/id/product_serial": {Data: []byte("  \n")},
				"etc/machine-id":                  {Data: []byte("5f2b0a9e\n")},
			},
			want: "5f2b0a9e",
		},
		{
			name:  "nothing readable",
			files: fstest.MapFS{},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := testDetector(tt.files, nil, nil).Detect(true)
			assert.Equal(t, tt.want, facts.Serial)
		})
	}
}

func TestDetect_Connections(t *testing.T) {
	files := fstest.MapFS{
		"sys/class/bluetooth/hci0/address": {Data: []byte("02:11:22:33:44:55\n")},
	}
	ifaces := []net.Interface{
		{Name: "lo"},
		{Name: "eth0", HardwareAddr: mustMAC(t, "00:1A:2B:3C:4D:5E")},
		{Name: "docker0", HardwareAddr: mustMAC(t, "02:42:ac:11:00:02")},
		{Name: "eth1", HardwareAddr: mustMAC(t, "00:1a:2b:3c:4d:5e")},
	}

	facts := testDetector(files, ifaces, nil).Detect(false)

	assert.Equal(t, []discovery.HardwareConnection{
		{Type: discovery.ConnectionBluetooth, Value: "02:11:22:33:44:55"},
		{Type: discovery.ConnectionMAC, Value: "00:1a:2b:3c:4d:5e"},
	}, facts.Connections)
}

func TestDetect_PreventMerge(t *testing.T) {
	ifaces := []net.Interface{{Name: "eth0", HardwareAddr: mustMAC(t, "00:1a:2b:3c:4d:5e")}}

	facts := testDetector(fstest.MapFS{}, ifaces, nil).Detect(true)
	assert.Empty(t, facts.Connections)
}

func TestDetect_InterfaceError(t *testing.T) {
	facts := testDetector(fstest.MapFS{}, nil, errors.New("no netlink")).Detect(false)
	assert.Empty(t, facts.Connections)
}

func TestApply(t *testing.T) {
	dev := discovery.NewDevice("Host")
	facts := Facts{
		Serial: "SN-1",
		Connections: []discovery.HardwareConnection{
			{Type: discovery.ConnectionMAC, Value: "00:1a:2b:3c:4d:5e"},
		},
	}

	require.NoError(t, Apply(dev, facts))

	assert.Equal(t, "SN-1", dev.SerialNumber())
	assert.Len(t, dev.Identifiers(), 1)
	assert.Equal(t, facts.Connections, dev.Connections())
}

func TestApply_Empty(t *testing.T) {
	dev := discovery.NewDevice("Host")
	require.NoError(t, Apply(dev, Facts{}))
	assert.Empty(t, dev.Identifiers())
	assert.Empty(t, dev.Connections())
}
