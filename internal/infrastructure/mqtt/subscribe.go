package mqtt

import (
	"context"
	"fmt"
)

// Subscribe routes messages on topic to handler at the configured QoS.
// The subscription is remembered and replayed after every reconnect.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	qos := byte(c.cfg.QoS)
	switch {
	case topic == "":
		return ErrInvalidTopic
	case handler == nil:
		return fmt.Errorf("%w: nil handler for %s", ErrSubscribeFailed, topic)
	case qos > maxQoS:
		return ErrInvalidQoS
	case !c.IsConnected():
		return ErrNotConnected
	}

	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()

	if err := waitToken(context.Background(), c.paho.Subscribe(topic, qos, c.wrapHandler(handler)), defaultPublishTimeout); err != nil {
		c.forget(topic)
		return fmt.Errorf("%w: subscribe %s: %w", ErrSubscribeFailed, topic, err)
	}
	return nil
}

// Unsubscribe drops topics. They are forgotten even when the broker
// cannot be told, so a reconnect does not bring them back.
func (c *Client) Unsubscribe(topics ...string) error {
	if len(topics) == 0 {
		return nil
	}
	for _, topic := range topics {
		if topic == "" {
			return ErrInvalidTopic
		}
	}

	c.forget(topics...)
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := waitToken(context.Background(), c.paho.Unsubscribe(topics...), defaultPublishTimeout); err != nil {
		return fmt.Errorf("%w: unsubscribe: %w", ErrSubscribeFailed, err)
	}
	return nil
}

func (c *Client) forget(topics ...string) {
	c.mu.Lock()
	for _, topic := range topics {
		delete(c.subs, topic)
	}
	c.mu.Unlock()
}

// Subscriptions returns the number of remembered subscriptions.
func (c *Client) Subscriptions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// Subscribed reports whether exactly topic is remembered. Wildcard
// subscriptions are not matched against it.
func (c *Client) Subscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subs[topic]
	return ok
}
