package sequence

import "time"

// Timer is a restartable one-shot timer on a Runner. Stopping or restarting
// the timer revokes the previously posted task.
type Timer struct {
	runner  Runner
	gen     uint64
	running bool
}

// NewTimer creates a stopped timer
func NewTimer(runner Runner) *Timer {
	return &Timer{runner: runner}
}

// Start arms the timer to run fn after d, replacing any pending run
func (t *Timer) Start(d time.Duration, fn func()) {
	t.Stop()
	t.running = true
	gen := t.gen
	t.runner.PostDelayed(d, func() {
		if gen != t.gen || !t.running {
			return
		}
		t.running = false
		fn()
	})
}

// Stop revokes the pending run, if any
func (t *Timer) Stop() {
	t.gen++
	t.running = false
}

// IsRunning reports whether a run is pending
func (t *Timer) IsRunning() bool {
	return t.running
}

// Cancelable hands out callbacks that become no-ops once Cancel is called.
// It replaces weak back-references: a task posted with a wrapped callback
// can outlive its owner safely.
type Cancelable struct {
	gen uint64
}

// Wrap returns fn guarded by the current generation
func (c *Cancelable) Wrap(fn func()) func() {
	gen := c.gen
	return func() {
		if gen != c.gen {
			return
		}
		fn()
	}
}

// Cancel revokes every callback wrapped so far
func (c *Cancelable) Cancel() {
	c.gen++
}
