// Package debounce collapses bursts of input events into a single delayed
// recomputation on the bubbletea event loop.
package debounce

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultInterval is the quiet period used when none is configured.
const DefaultInterval = 200 * time.Millisecond

var lastID atomic.Int64

// Msg is delivered when a scheduled quiet period ends. Only the message
// carrying the debouncer's latest generation resolves to a value.
type Msg struct {
	id  int64
	gen uint64
}

// Debouncer keeps one pending value. Each Trigger replaces it and starts a new
// generation, which makes the ticks of earlier generations stale.
//
// A Debouncer is not safe for concurrent use; it belongs to the model that
// owns it and is touched only from Update.
type Debouncer[T any] struct {
	id       int64
	interval time.Duration
	gen      uint64
	pending  T
	armed    bool
}

func New[T any](interval time.Duration) *Debouncer[T] {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Debouncer[T]{id: lastID.Add(1), interval: interval}
}

func (d *Debouncer[T]) Interval() time.Duration {
	return d.interval
}

// Trigger records v as the pending value and returns the command that ends
// its quiet period.
func (d *Debouncer[T]) Trigger(v T) tea.Cmd {
	d.gen++
	d.pending = v
	d.armed = true
	id, gen := d.id, d.gen
	return tea.Tick(d.interval, func(time.Time) tea.Msg {
		return Msg{id: id, gen: gen}
	})
}

// Resolve reports the pending value when msg ends the latest quiet period of
// this debouncer. Stale, foreign or cancelled ticks return ok == false.
func (d *Debouncer[T]) Resolve(msg Msg) (v T, ok bool) {
	if msg.id != d.id || msg.gen != d.gen || !d.armed {
		return v, false
	}
	v = d.pending
	d.armed = false
	var zero T
	d.pending = zero
	return v, true
}

// Owns reports whether msg was produced by this debouncer.
func (d *Debouncer[T]) Owns(msg Msg) bool {
	return msg.id == d.id
}

// Pending reports whether a value is waiting for its quiet period to end.
func (d *Debouncer[T]) Pending() bool {
	return d.armed
}

// Cancel discards the pending value. Ticks already in flight resolve to
// nothing, so a torn-down view is never recomputed.
func (d *Debouncer[T]) Cancel() {
	d.gen++
	d.armed = false
	var zero T
	d.pending = zero
}
