// Package agent turns configured devices into discovery devices and runs
// their command probes.
//
// Every configured entity becomes a discovery.Entity. Entities with a
// command are probes: the command runs on the entity's interval while a
// runtime is active, and again whenever the hub comes back online. The
// trimmed output is published to the entity's state topic; output that
// parses as a number is also handed to the Recorder (InfluxDB when
// enabled).
//
// Probes run synchronously on the runtime's scheduler, so a slow command
// delays the schedules behind it. Every run is bounded by the entity
// timeout, and the command's whole process group is killed when it expires.
package agent
