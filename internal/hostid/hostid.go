package hostid

import (
	"bufio"
	"io/fs"
	"net"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/nerrad567/hadiscovery/internal/discovery"
)

// serialFiles are read in order; the first non-empty value wins.
var serialFiles = []string{
	"sys/class/dmi/id/product_serial",
	"sys/firmware/devicetree/base/serial-number",
	"proc/device-tree/serial-number",
}

const (
	cpuinfoFile   = "proc/cpuinfo"
	machineIDFile = "etc/machine-id"
	bluetoothDir  = "sys/class/bluetooth"
)

// Facts is the detected identity of a host.
type Facts struct {
	Serial      string
	Connections []discovery.HardwareConnection
}

// Detector reads host facts. The zero value is not usable; use NewDetector.
type Detector struct {
	root       fs.FS
	interfaces func() ([]net.Interface, error)
}

// NewDetector returns a Detector reading the real host.
func NewDetector() *Detector {
	return &Detector{
		root:       os.DirFS("/"),
		interfaces: net.Interfaces,
	}
}

// Detect returns the host facts. With preventMerge set no connections are
// collected.
func (d *Detector) Detect(preventMerge bool) Facts {
	facts := Facts{Serial: d.serial()}
	if !preventMerge {
		facts.Connections = d.connections()
	}
	return facts
}

// Apply stamps facts onto dev. Setting the serial seeds an identifier when
// the device has none.
func Apply(dev *discovery.Device, facts Facts) error {
	if facts.Serial != "" {
		if err := dev.SetSerialNumber(facts.Serial); err != nil {
			return err
		}
	}
	for _, c := range facts.Connections {
		if err := dev.AddConnection(c.Type, c.Value); err != nil {
			return err
		}
	}
	return nil
}

func (d *Detector) serial() string {
	for _, name := range serialFiles {
		if s := d.readTrimmed(name); s != "" {
			return s
		}
	}
	if s := d.cpuinfoSerial(); s != "" {
		return s
	}
	return d.readTrimmed(machineIDFile)
}

func (d *Detector) readTrimmed(name string) string {
	data, err := fs.ReadFile(d.root, name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.Trim(string(data), "\x00"))
}

func (d *Detector) cpuinfoSerial() string {
	f, err := d.root.Open(cpuinfoFile)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(strings.ToLower(line), "serial") {
			continue
		}
		if _, value, ok := strings.Cut(line, ":"); ok {
			if s := strings.TrimSpace(value); s != "" {
				return s
			}
		}
	}
	return ""
}

func (d *Detector) connections() []discovery.HardwareConnection {
	seen := make(map[discovery.HardwareConnection]struct{})

	if ifaces, err := d.interfaces(); err == nil {
		for _, iface := range ifaces {
			mac, ok := NormalizeMAC(iface.HardwareAddr.String())
			if ok && isGlobalMAC(mac) {
				seen[discovery.HardwareConnection{Type: discovery.ConnectionMAC, Value: mac}] = struct{}{}
			}
		}
	}

	if entries, err := fs.ReadDir(d.root, bluetoothDir); err == nil {
		for _, e := range entries {
			// Bluetooth controllers are accepted even when locally administered.
			if mac, ok := NormalizeMAC(d.readTrimmed(path.Join(bluetoothDir, e.Name(), "address"))); ok {
				seen[discovery.HardwareConnection{Type: discovery.ConnectionBluetooth, Value: mac}] = struct{}{}
			}
		}
	}

	out := make([]discovery.HardwareConnection, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// NormalizeMAC returns s as lower-case colon separated hex, or false when it
// is not a usable 48-bit address. All-zero and broadcast addresses are
// rejected.
func NormalizeMAC(s string) (string, bool) {
	var raw strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f':
			raw.WriteRune(r)
		case r == ':' || r == '-' || r == '.':
		default:
			return "", false
		}
	}
	hex := raw.String()
	if len(hex) != 12 {
		return "", false
	}

	parts := make([]string, 0, 6)
	for i := 0; i < 12; i += 2 {
		parts = append(parts, hex[i:i+2])
	}
	mac := strings.Join(parts, ":")
	if mac == "00:00:00:00:00:00" || mac == "ff:ff:ff:ff:ff:ff" {
		return "", false
	}
	return mac, true
}

// isGlobalMAC reports whether mac is a universally administered unicast
// address. Virtual interfaces use locally administered ones.
func isGlobalMAC(mac string) bool {
	first, err := strconv.ParseUint(mac[:2], 16, 8)
	if err != nil {
		return false
	}
	return first&0x01 == 0 && first&0x02 == 0
}
