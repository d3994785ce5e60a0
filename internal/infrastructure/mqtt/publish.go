package mqtt

import (
	"context"
	"fmt"
)

// maxPayloadSize caps a single publish at 1 MiB, below common broker limits.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker to acknowledge
// it (for QoS 0, for it to leave the client). Only ctx bounds the wait.
//
// Discovery documents and availability are published retained so Home
// Assistant sees them after its own restart; entity states usually are not.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, qos byte, retained bool) error {
	switch err := ValidatePublishTopic(topic); {
	case err != nil:
		return err
	case qos > maxQoS:
		return ErrInvalidQoS
	case len(payload) > maxPayloadSize:
		return fmt.Errorf("%w: %d byte payload exceeds %d", ErrPublishFailed, len(payload), maxPayloadSize)
	case !c.IsConnected():
		return ErrNotConnected
	}

	if err := waitToken(ctx, c.paho.Publish(topic, qos, retained, payload), 0); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}
