package watch

import (
	"maps"
	"slices"
	"time"
)

// Debouncer gathers paths until no new path has arrived for the interval.
// It is driven from a single goroutine: Add records a path and restarts the
// quiet period, C fires once the period elapses and Flush drains the set.
type Debouncer struct {
	interval time.Duration
	timer    *time.Timer
	armed    bool
	pending  map[string]struct{}
}

// NewDebouncer creates an idle debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval, pending: make(map[string]struct{})}
}

// Add records path and restarts the quiet period.
func (d *Debouncer) Add(path string) {
	d.pending[path] = struct{}{}
	if d.timer == nil {
		d.timer = time.NewTimer(d.interval)
	} else {
		d.timer.Reset(d.interval)
	}
	d.armed = true
}

// C returns the channel that fires when the quiet period ends, or nil while
// nothing is pending.
func (d *Debouncer) C() <-chan time.Time {
	if !d.armed {
		return nil
	}
	return d.timer.C
}

// Flush returns the pending paths in sorted order and resets the debouncer.
func (d *Debouncer) Flush() []string {
	out := slices.Sorted(maps.Keys(d.pending))
	clear(d.pending)
	d.armed = false
	return out
}

// Stop cancels any pending quiet period.
func (d *Debouncer) Stop() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.armed = false
	clear(d.pending)
}
