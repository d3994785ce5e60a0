// Package hostid detects a best-effort hardware identity for the host.
//
// The serial number comes from firmware (DMI, device tree, /proc/cpuinfo)
// and falls back to the systemd machine id. Connections are the globally
// administered MAC addresses of network interfaces plus Bluetooth
// controller addresses. Home Assistant merges devices that share a
// connection, so callers that publish several devices from one host pass
// preventMerge to leave connections out.
//
// Detection never fails: facts that cannot be read are left empty.
package hostid
