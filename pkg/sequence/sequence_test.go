package sequence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualPostOrder(t *testing.T) {
	m := NewManual(epoch)

	var got []int
	m.Post(func() { got = append(got, 1) })
	m.Post(func() {
		got = append(got, 2)
		m.Post(func() { got = append(got, 4) })
	})
	m.Post(func() { got = append(got, 3) })

	assert.Equal(t, 3, m.Pending())
	m.RunUntilIdle()
	assert.Equal(t, []int{1, 2, 3, 4}, got)
	assert.Equal(t, 0, m.Pending())
}

func TestManualAdvance(t *testing.T) {
	m := NewManual(epoch)

	var fired []time.Time
	m.PostDelayed(2*time.Second, func() { fired = append(fired, m.Now()) })
	m.PostDelayed(time.Second, func() { fired = append(fired, m.Now()) })
	m.PostDelayed(5*time.Second, func() { fired = append(fired, m.Now()) })

	m.RunUntilIdle()
	assert.Empty(t, fired)

	m.Advance(3 * time.Second)
	require.Len(t, fired, 2)
	assert.Equal(t, epoch.Add(time.Second), fired[0])
	assert.Equal(t, epoch.Add(2*time.Second), fired[1])
	assert.Equal(t, epoch.Add(3*time.Second), m.Now())

	m.Advance(2 * time.Second)
	require.Len(t, fired, 3)
	assert.Equal(t, epoch.Add(5*time.Second), fired[2])
}

func TestManualSameDeadlineKeepsPostOrder(t *testing.T) {
	m := NewManual(epoch)

	var got []string
	m.PostDelayed(time.Second, func() { got = append(got, "a") })
	m.PostDelayed(time.Second, func() { got = append(got, "b") })

	m.Advance(time.Second)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestTimer(t *testing.T) {
	tests := []struct {
		name    string
		actions func(m *Manual, timer *Timer, count *int)
		want    int
	}{
		{
			name: "fires once",
			actions: func(m *Manual, timer *Timer, count *int) {
				timer.Start(time.Second, func() { *count++ })
				m.Advance(10 * time.Second)
			},
			want: 1,
		},
		{
			name: "stop revokes",
			actions: func(m *Manual, timer *Timer, count *int) {
				timer.Start(time.Second, func() { *count++ })
				timer.Stop()
				m.Advance(10 * time.Second)
			},
			want: 0,
		},
		{
			name: "restart replaces pending run",
			actions: func(m *Manual, timer *Timer, count *int) {
				timer.Start(time.Second, func() { *count++ })
				timer.Start(5*time.Second, func() { *count += 10 })
				m.Advance(2 * time.Second)
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManual(epoch)
			timer := NewTimer(m)
			count := 0
			tt.actions(m, timer, &count)
			assert.Equal(t, tt.want, count)
		})
	}
}

func TestTimerIsRunning(t *testing.T) {
	m := NewManual(epoch)
	timer := NewTimer(m)

	assert.False(t, timer.IsRunning())
	timer.Start(time.Second, func() {})
	assert.True(t, timer.IsRunning())
	m.Advance(time.Second)
	assert.False(t, timer.IsRunning())
}

func TestCancelable(t *testing.T) {
	var c Cancelable
	count := 0

	first := c.Wrap(func() { count++ })
	first()
	assert.Equal(t, 1, count)

	c.Cancel()
	first()
	assert.Equal(t, 1, count)

	second := c.Wrap(func() { count++ })
	second()
	assert.Equal(t, 2, count)
}

func TestLoopRunsPostedTasks(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	got := make(chan int, 3)
	l.Post(func() { got <- 1 })
	l.PostDelayed(10*time.Millisecond, func() { got <- 2 })

	assert.Equal(t, 1, <-got)
	assert.Equal(t, 2, <-got)

	var inside bool
	require.NoError(t, l.Call(ctx, func() { inside = true }))
	assert.True(t, inside)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}
