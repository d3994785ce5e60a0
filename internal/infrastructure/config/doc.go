// Package config loads the hadiscovery YAML configuration.
//
// Load reads the file, fills in defaults, applies environment overrides
// and validates the result. The overrides exist so secrets need not live
// in the file:
//
//	HADISCOVERY_MQTT_HOST         mqtt.broker.host
//	HADISCOVERY_MQTT_USERNAME     mqtt.auth.username
//	HADISCOVERY_MQTT_PASSWORD     mqtt.auth.password
//	HADISCOVERY_DISCOVERY_PREFIX  discovery.prefix
//	HADISCOVERY_INFLUXDB_TOKEN    influxdb.token
//
// Devices are declared under devices:, each with its entities and the
// command probes that feed them; see configs/config.yaml.
package config
