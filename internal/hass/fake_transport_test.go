package hass

import (
	"context"
	"sync"
)

type publishCall struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// fakeTransport records every call and lets tests inject failures.
type fakeTransport struct {
	mu sync.Mutex

	connected    bool
	connects     int
	publishes    []publishCall
	subscribes   []string
	unsubscribes []string
	handlers     map[string]MessageHandler

	availabilityTopic string

	connectErr   error
	publishErr   error
	subscribeErr error

	// publishGate, when set, blocks every publish until closed or ctx ends.
	publishGate chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string]MessageHandler)}
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeTransport) Publish(ctx context.Context, topic string, payload []byte, qos byte, retained bool) error {
	f.mu.Lock()
	gate := f.publishGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishes = append(f.publishes, publishCall{topic, payload, qos, retained})
	return f.publishErr
}

func (f *fakeTransport) Subscribe(topic string, handler MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes = append(f.subscribes, topic)
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeTransport) Unsubscribe(topics ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribes = append(f.unsubscribes, topics...)
	for _, t := range topics {
		delete(f.handlers, t)
	}
	return nil
}

func (f *fakeTransport) AvailabilityTopic() string {
	return f.availabilityTopic
}

// deliver simulates an incoming message.
func (f *fakeTransport) deliver(topic, payload string) bool {
	f.mu.Lock()
	h, ok := f.handlers[topic]
	f.mu.Unlock()
	if ok {
		h(topic, []byte(payload))
	}
	return ok
}

func (f *fakeTransport) counts() (connects, publishes, subscribes, unsubscribes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects, len(f.publishes), len(f.subscribes), len(f.unsubscribes)
}

func (f *fakeTransport) publishedTopics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.publishes))
	for i, p := range f.publishes {
		out[i] = p.topic
	}
	return out
}

type logEntry struct {
	level string
	msg   string
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level, msg})
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.add("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.add("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.add("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.add("error", msg) }

func (l *recordingLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}
