package sequence

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Runner driven explicitly by the caller. Time only moves when
// Advance or SetNow is called, which makes timer behaviour deterministic in
// tests.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	ready   []func()
	delayed []delayedTask
}

type delayedTask struct {
	at  time.Time
	seq uint64
	fn  func()
}

// NewManual creates a manual runner whose clock starts at start
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the fake clock time
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Post queues fn for the next RunUntilIdle
func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	m.ready = append(m.ready, fn)
	m.mu.Unlock()
}

// PostDelayed queues fn to run once the clock reaches now+d
func (m *Manual) PostDelayed(d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	m.delayed = append(m.delayed, delayedTask{at: m.now.Add(d), seq: m.seq, fn: fn})
	sort.Slice(m.delayed, func(i, j int) bool {
		if m.delayed[i].at.Equal(m.delayed[j].at) {
			return m.delayed[i].seq < m.delayed[j].seq
		}
		return m.delayed[i].at.Before(m.delayed[j].at)
	})
}

// RunUntilIdle runs ready tasks, and delayed tasks already due, until none
// remain. Tasks posted while running are run as well.
func (m *Manual) RunUntilIdle() {
	for {
		fn, ok := m.pop()
		if !ok {
			return
		}
		fn()
	}
}

// Advance moves the clock forward by d, stopping at every due delayed task
// so each one observes its own scheduled time.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.RunUntilIdle()

		m.mu.Lock()
		if len(m.delayed) == 0 || m.delayed[0].at.After(target) {
			m.now = target
			m.mu.Unlock()
			m.RunUntilIdle()
			return
		}
		if m.delayed[0].at.After(m.now) {
			m.now = m.delayed[0].at
		}
		m.mu.Unlock()
	}
}

// SetNow moves the clock to t without running anything
func (m *Manual) SetNow(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Pending returns the number of queued tasks, ready and delayed
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ready) + len(m.delayed)
}

func (m *Manual) pop() (func(), bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.ready) > 0 {
		fn := m.ready[0]
		m.ready[0] = nil
		m.ready = m.ready[1:]
		return fn, true
	}

	if len(m.delayed) > 0 && !m.delayed[0].at.After(m.now) {
		fn := m.delayed[0].fn
		m.delayed = m.delayed[1:]
		return fn, true
	}

	return nil, false
}
