package discovery

import (
	"context"
	"errors"
)

// ErrNoPublisher is returned by the publisher handed to callbacks that run
// outside an active runtime.
var ErrNoPublisher = errors.New("discovery: no publisher bound to context")

// Publisher sends a message on the hub's message channel.
// It is satisfied by the runtime's transport.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte, qos byte, retained bool) error
}

// Callback is invoked by the runtime for entity schedules and hub
// birth/death notifications.
type Callback func(ctx context.Context, pub Publisher)

type publisherKey struct{}

// ContextWithPublisher returns a context carrying pub. The runtime binds its
// transport this way before driving entity schedules.
func ContextWithPublisher(ctx context.Context, pub Publisher) context.Context {
	return context.WithValue(ctx, publisherKey{}, pub)
}

// PublisherFromContext returns the publisher bound to ctx. When none is
// bound, the returned publisher fails every call with ErrNoPublisher.
func PublisherFromContext(ctx context.Context) Publisher {
	if pub, ok := ctx.Value(publisherKey{}).(Publisher); ok && pub != nil {
		return pub
	}
	return unboundPublisher{}
}

type unboundPublisher struct{}

func (unboundPublisher) Publish(context.Context, string, []byte, byte, bool) error {
	return ErrNoPublisher
}
