// Package scheduler runs periodic callbacks on a single goroutine.
//
// A Scheduler holds Schedules (interval + callback). Each tick it invokes
// every Schedule that is due, one after another, then waits for the tick
// resolution or for its context to be cancelled. Callbacks never run
// concurrently with each other; a slow callback delays the ones after it in
// the same tick.
//
// Cancellation is cooperative: Run observes ctx between ticks, so the worst
// case stop latency is one tick resolution plus the duration of the callbacks
// running at that moment.
package scheduler
