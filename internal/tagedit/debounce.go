package tagedit

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet window used when none is configured.
const DefaultDebounce = 200 * time.Millisecond

// Debouncer collapses bursts of triggers into one call of fn. Each trigger
// records its argument and restarts the window; once the window passes with no
// newer trigger, fn runs once with the latest argument.
type Debouncer[T any] struct {
	wait time.Duration
	fn   func(T)

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	latest  T
	stopped bool
}

// NewDebouncer creates a Debouncer. A non-positive wait selects DefaultDebounce.
func NewDebouncer[T any](wait time.Duration, fn func(T)) *Debouncer[T] {
	if wait <= 0 {
		wait = DefaultDebounce
	}
	return &Debouncer[T]{wait: wait, fn: fn}
}

// Wait returns the configured window.
func (d *Debouncer[T]) Wait() time.Duration {
	return d.wait
}

// Trigger records arg and (re)starts the window.
func (d *Debouncer[T]) Trigger(arg T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending = true
	d.latest = arg
	if d.timer == nil {
		d.timer = time.AfterFunc(d.wait, d.fire)
		return
	}
	d.timer.Reset(d.wait)
}

// Flush runs a pending trigger immediately. It reports whether one ran.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.pending || d.stopped {
		d.mu.Unlock()
		return false
	}
	d.pending = false
	arg := d.latest
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()

	d.fn(arg)
	return true
}

// Stop drops any pending trigger and ignores later ones.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer[T]) fire() {
	d.mu.Lock()
	if !d.pending || d.stopped {
		d.mu.Unlock()
		return
	}
	d.pending = false
	arg := d.latest
	d.mu.Unlock()

	d.fn(arg)
}
