// Package logging builds the slog logger shared by every hadiscovery
// component.
//
//	logging:
//	  level: info      # debug, info, warn, error
//	  format: json     # json or text
//	  output: stdout   # stdout or stderr
//
// Entries always carry service and version; Component adds a component
// attribute naming the subsystem. Keep the MQTT password and the InfluxDB
// token out of log arguments.
package logging
