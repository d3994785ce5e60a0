package hass

import "context"

// statusHandler returns the handler for hub status messages. Birth and
// death callbacks run on the transport's delivery goroutine with ctx.
func (c *Connection) statusHandler(ctx context.Context) MessageHandler {
	return func(topic string, payload []byte) {
		pub := c.transport

		switch string(payload) {
		case c.statusOnline:
			c.logger.Info("hub online, running birth callbacks", "topic", topic)
			c.metrics.HubStatus(true)
			for _, e := range c.entities() {
				e.Birth(ctx, pub)
			}
		case c.statusOffline:
			c.logger.Info("hub offline, running death callbacks", "topic", topic)
			c.metrics.HubStatus(false)
			for _, e := range c.entities() {
				e.Death(ctx, pub)
			}
		default:
			c.logger.Warn("ignoring unknown hub status payload",
				"topic", topic,
				"payload", string(payload),
			)
		}
	}
}
