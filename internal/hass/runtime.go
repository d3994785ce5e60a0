package hass

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/hadiscovery/internal/discovery"
	"github.com/nerrad567/hadiscovery/internal/scheduler"
)

// DefaultScheduleResolution is the scheduler tick used when StartOptions
// leaves it unset.
const DefaultScheduleResolution = time.Second

// discoveryQoS is the delivery guarantee for discovery documents.
const discoveryQoS byte = 1

// State is the lifecycle state of a run.
type State int

// Run states. Transitions only move forward:
// Idle → Running → Stopping → Stopped.
const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StartOptions controls a run.
type StartOptions struct {
	// Blocking runs on the caller's goroutine and returns the run's error.
	Blocking bool

	// ScheduleResolution is the scheduler tick. Zero selects
	// DefaultScheduleResolution.
	ScheduleResolution time.Duration

	// PublishTimeout bounds the wait for each discovery acknowledgment.
	// Zero waits indefinitely.
	PublishTimeout time.Duration
}

// record is the bookkeeping of one run. state and err are guarded by the
// owning Connection's mu.
type record struct {
	state  State
	err    error
	cancel context.CancelFunc
	done   chan struct{}
	handle *Runtime
}

func (r *record) active() bool {
	return r.state == StateRunning || r.state == StateStopping
}

// runKey marks a context as belonging to a run.
type runKey struct{}

// Start begins a run, or returns the handle of the run already active.
//
// A non-blocking Start runs in a new goroutine that is not cancelled by ctx;
// stop it through the returned Runtime. A blocking Start runs on the
// caller's goroutine until the run is stopped or ctx ends, and returns the
// run's error. A blocking Start while another run is active waits for that
// run to finish and returns nil; called from within the active run itself it
// logs a warning and returns immediately.
func (c *Connection) Start(ctx context.Context, opts StartOptions) (*Runtime, error) {
	if opts.ScheduleResolution <= 0 {
		opts.ScheduleResolution = DefaultScheduleResolution
	}

	c.mu.Lock()
	if existing := c.current; existing != nil && existing.active() {
		c.mu.Unlock()
		return c.attach(ctx, existing, opts.Blocking)
	}

	base := ctx
	if !opts.Blocking {
		base = context.WithoutCancel(ctx)
	}
	runCtx, cancel := context.WithCancel(base)

	rec := &record{
		state:  StateRunning,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	rec.handle = &Runtime{conn: c, rec: rec}
	c.current = rec
	c.mu.Unlock()

	runCtx = context.WithValue(runCtx, runKey{}, rec)

	if !opts.Blocking {
		go func() {
			_ = c.run(runCtx, rec, opts)
		}()
		return rec.handle, nil
	}

	return rec.handle, c.run(runCtx, rec, opts)
}

// attach handles a Start that found an active run.
func (c *Connection) attach(ctx context.Context, rec *record, blocking bool) (*Runtime, error) {
	if !blocking {
		return rec.handle, nil
	}

	if owner, _ := ctx.Value(runKey{}).(*record); owner == rec {
		c.logger.Warn("blocking start from within the active run ignored")
		return rec.handle, nil
	}

	select {
	case <-rec.done:
		return rec.handle, nil
	case <-ctx.Done():
		return rec.handle, ctx.Err()
	}
}

// Stop stops the active run, if any. See Runtime.Stop.
func (c *Connection) Stop(timeout time.Duration) {
	if rt := c.Runtime(); rt != nil {
		rt.Stop(timeout)
	}
}

// run is the body of one run. Its error is recorded on rec.
func (c *Connection) run(ctx context.Context, rec *record, opts StartOptions) (err error) {
	c.metrics.RunStarted()
	c.logger.Info("discovery run started",
		"prefix", c.Prefix(),
		"devices", len(c.devices),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
		}
		if unsubErr := c.transport.Unsubscribe(c.StatusTopic()); unsubErr != nil {
			c.logger.Warn("unsubscribing from hub status failed",
				"topic", c.StatusTopic(),
				"error", unsubErr,
			)
		}
		c.finish(rec, err)
	}()

	if !c.transport.IsConnected() {
		if err := c.transport.Connect(ctx); err != nil {
			return fmt.Errorf("%w: connect: %w", ErrTransport, err)
		}
	}

	if err := c.publishDiscovery(ctx, opts.PublishTimeout); err != nil {
		return err
	}

	ctx = discovery.ContextWithPublisher(ctx, c.transport)

	if err := c.transport.Subscribe(c.StatusTopic(), c.statusHandler(ctx)); err != nil {
		return fmt.Errorf("%w: subscribe %s: %w", ErrTransport, c.StatusTopic(), err)
	}

	sched := scheduler.New()
	for _, e := range c.entities() {
		sched.Add(e.Schedules()...)
	}
	sched.Run(ctx, opts.ScheduleResolution)
	return nil
}

// publishDiscovery composes and publishes every discovery document, retained.
func (c *Connection) publishDiscovery(ctx context.Context, timeout time.Duration) error {
	msgs, err := c.Compose()
	if err != nil {
		return err
	}

	for _, msg := range msgs {
		payload, err := msg.Compact()
		if err != nil {
			return err
		}

		start := time.Now()
		if err := c.publishWithTimeout(ctx, msg.Topic, payload, timeout); err != nil {
			return fmt.Errorf("%w: publish %s: %w", ErrTransport, msg.Topic, err)
		}
		c.metrics.DiscoveryPublished(msg.Topic, time.Since(start))
		c.logger.Debug("discovery published",
			"device", msg.DeviceName,
			"topic", msg.Topic,
			"bytes", len(payload),
		)
	}
	return nil
}

func (c *Connection) publishWithTimeout(ctx context.Context, topic string, payload []byte, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.transport.Publish(ctx, topic, payload, discoveryQoS, true)
}

// finish marks rec stopped, clears it if still current and signals completion.
func (c *Connection) finish(rec *record, err error) {
	c.mu.Lock()
	rec.err = err
	rec.state = StateStopped
	if c.current == rec {
		c.current = nil
	}
	c.mu.Unlock()

	rec.cancel()
	close(rec.done)

	c.metrics.RunStopped(err)
	if err != nil {
		c.logger.Error("discovery run failed", "error", err)
	} else {
		c.logger.Info("discovery run stopped")
	}
}

// Runtime is the caller's handle on one run.
//
// The handle stays valid after the run ends so its final state and error
// can be read; it does not keep the run registered on the Connection.
type Runtime struct {
	conn *Connection
	rec  *record
}

// Stop signals the run to stop. A timeout > 0 then waits up to timeout for
// the run to finish. Stopping a finished run is a no-op.
func (r *Runtime) Stop(timeout time.Duration) {
	r.conn.mu.Lock()
	switch r.rec.state {
	case StateIdle, StateStopped:
		r.conn.mu.Unlock()
		return
	case StateRunning:
		r.rec.state = StateStopping
	}
	cancel := r.rec.cancel
	r.conn.mu.Unlock()

	cancel()

	if timeout > 0 {
		r.Join(timeout)
	}
}

// Join waits for the run to finish and reports whether it did.
// A timeout <= 0 waits without bound.
func (r *Runtime) Join(timeout time.Duration) bool {
	if timeout <= 0 {
		<-r.rec.done
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-r.rec.done:
		return true
	case <-timer.C:
		return false
	}
}

// Done returns a channel closed when the run has finished.
func (r *Runtime) Done() <-chan struct{} {
	return r.rec.done
}

// IsRunning reports whether the run is running or stopping.
func (r *Runtime) IsRunning() bool {
	r.conn.mu.Lock()
	active := r.rec.active()
	r.conn.mu.Unlock()

	if !active {
		return false
	}
	select {
	case <-r.rec.done:
		return false
	default:
		return true
	}
}

// LastError returns the error that ended the run, or nil.
func (r *Runtime) LastError() error {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()
	return r.rec.err
}

// State returns the run state.
func (r *Runtime) State() State {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()
	return r.rec.state
}
