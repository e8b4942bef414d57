package observe

import (
	"sync"
	"time"
)

// Timer is a pending scheduled call
type Timer interface {
	Stop() bool
}

// Scheduler runs fn once after d
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// RealScheduler schedules on the runtime timer heap
type RealScheduler struct{}

// AfterFunc implements Scheduler
func (RealScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Debouncer holds at most one pending call. Every Trigger cancels the
// pending call and schedules a new one, so a burst of triggers collapses
// into a single call one window after the last trigger.
type Debouncer struct {
	window time.Duration
	sched  Scheduler

	mu    sync.Mutex
	timer Timer
	seq   uint64
}

// NewDebouncer creates a debouncer. A nil scheduler uses RealScheduler.
func NewDebouncer(window time.Duration, sched Scheduler) *Debouncer {
	if sched == nil {
		sched = RealScheduler{}
	}
	return &Debouncer{window: window, sched: sched}
}

// Trigger schedules fn, replacing any pending call
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = d.sched.AfterFunc(d.window, func() {
		d.mu.Lock()
		// a timer that fired while being replaced must not run
		stale := seq != d.seq
		if !stale {
			d.timer = nil
		}
		d.mu.Unlock()

		if !stale {
			fn()
		}
	})
}

// Pending reports whether a call is scheduled
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Cancel drops the pending call, if any
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}
