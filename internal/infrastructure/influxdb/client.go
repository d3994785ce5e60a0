package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/hadiscovery/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	fallbackBatchSize     = 100
	fallbackFlushInterval = 10 * time.Second
)

// Client records entity readings into an InfluxDB v2 bucket.
//
// Writes go through the library's non-blocking write API, so WriteReading
// never waits on the network. Batch failures surface asynchronously via
// the callback set with SetOnError. A Client is safe for concurrent use.
type Client struct {
	client influxdb2.Client
	writes api.WriteAPI

	closed atomic.Bool

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64

	errMu   sync.RWMutex
	onError func(error)
}

// Stats counts what the recorder has done with the readings it was given.
type Stats struct {
	// Written is the number of points handed to the batching writer.
	Written uint64
	// Dropped is the number of points discarded because the client was closed.
	Dropped uint64
	// Failed is the number of batch errors reported by the server.
	Failed uint64
}

// clientOptions maps the recorder configuration onto library options.
// Non-positive batch sizes and flush intervals fall back to the defaults.
func clientOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(fallbackBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize) // #nosec G115 -- checked positive
	}
	flush := fallbackFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}
	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds())) // #nosec G115 -- positive duration
}

// Connect creates a recorder for cfg and pings the server before returning.
//
// Returns ErrDisabled when cfg.Enabled is false, and an error wrapping
// ErrConnectionFailed when the server cannot be reached within ctx or the
// connect timeout.
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	raw := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, clientOptions(cfg))
	if err := ping(ctx, raw, connectTimeout); err != nil {
		raw.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		client: raw,
		writes: raw.WriteAPI(cfg.Org, cfg.Bucket),
	}
	go c.drainErrors(c.writes.Errors())
	return c, nil
}

// ping reports an error unless the server answers healthy within timeout.
func ping(ctx context.Context, raw influxdb2.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	healthy, err := raw.Ping(ctx)
	switch {
	case err != nil:
		return fmt.Errorf("ping: %w", err)
	case !healthy:
		return fmt.Errorf("ping: server not healthy")
	}
	return nil
}

func (c *Client) drainErrors(errs <-chan error) {
	for err := range errs {
		c.failed.Add(1)

		c.errMu.RLock()
		fn := c.onError
		c.errMu.RUnlock()
		if fn != nil {
			fn(fmt.Errorf("%w: %w", ErrWriteFailed, err))
		}
	}
}

// SetOnError installs the callback that receives batch write failures.
// Every error passed to it wraps ErrWriteFailed.
func (c *Client) SetOnError(fn func(error)) {
	c.errMu.Lock()
	c.onError = fn
	c.errMu.Unlock()
}

// IsConnected reports whether the client was connected and not yet closed.
// It does not contact the server; use HealthCheck for that.
func (c *Client) IsConnected() bool {
	return c != nil && c.client != nil && !c.closed.Load()
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := ping(ctx, c.client, pingTimeout); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// Flush blocks until every buffered point has been sent.
// It does nothing once the client is closed.
func (c *Client) Flush() {
	if c.IsConnected() {
		c.writes.Flush()
	}
}

// Stats returns the recorder counters.
func (c *Client) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Written: c.written.Load(),
		Dropped: c.dropped.Load(),
		Failed:  c.failed.Load(),
	}
}

// Close flushes pending points and releases the underlying client. Later
// writes are dropped. It is safe to call on a nil Client and more than once.
func (c *Client) Close() error {
	if !c.IsConnected() || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.writes.Flush()
	c.client.Close()
	return nil
}
