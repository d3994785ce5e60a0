// Package mqtt provides MQTT client connectivity for the discovery agent.
//
// The client reconnects on its own, replays subscriptions afterwards and
// owns an availability topic backed by the last will.
//
// # Architecture
//
// *Client satisfies hass.Transport. The hass package publishes discovery
// documents through it and subscribes to the hub status topic; the agent
// publishes entity states through it.
//
//	hass.Connection → mqtt.Client ↔ MQTT Broker ↔ Home Assistant
//
// # Availability
//
// On every (re)connect the client publishes "online", retained, to its
// availability topic. The broker publishes the last will "offline" when the
// client vanishes, and Close publishes "offline" itself before
// disconnecting. The hass package seeds the root availability of every
// discovery document with this topic.
//
// Set broker.tls for brokers reached over untrusted networks; payloads
// have no protection beyond the transport.
//
// # Usage
//
//	client := mqtt.NewClient(cfg.MQTT)
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err := client.Publish(ctx, mqtt.Topics{}.State("rack", "load"), []byte("0.42"), 1, false)
package mqtt
