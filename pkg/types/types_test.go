package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObservedRecordKey(t *testing.T) {
	a := &ObservedRecord{Name: "Printer.local.", Type: "A", Data: "10.0.0.1"}
	b := &ObservedRecord{Name: "printer.local.", Type: "A", Data: "10.0.0.1", TTL: 4500}
	c := &ObservedRecord{Name: "printer.local.", Type: "A", Data: "10.0.0.2"}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestObservedRecordMerge(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := &ObservedRecord{TTL: 120, State: RecordStateActive, FirstSeen: t0, LastSeen: t0}

	removed := &ObservedRecord{State: RecordStateRemoved, FirstSeen: t0.Add(time.Minute), LastSeen: t0.Add(time.Minute), RemovedAt: t0.Add(time.Minute)}
	rec.Merge(removed)
	assert.Equal(t, RecordStateRemoved, rec.State)
	assert.Equal(t, t0, rec.FirstSeen)
	assert.Equal(t, uint32(120), rec.TTL)
	assert.Equal(t, t0.Add(time.Minute), rec.RemovedAt)

	back := &ObservedRecord{TTL: 60, State: RecordStateActive, FirstSeen: t0.Add(2 * time.Minute), LastSeen: t0.Add(2 * time.Minute)}
	rec.Merge(back)
	assert.Equal(t, RecordStateActive, rec.State)
	assert.True(t, rec.RemovedAt.IsZero())
	assert.Equal(t, uint32(60), rec.TTL)
	assert.Equal(t, t0.Add(3*time.Minute), rec.Expires())
}

func TestRecordFilterMatch(t *testing.T) {
	rec := &ObservedRecord{Name: "printer.local.", Type: "A", State: RecordStateRemoved}

	tests := []struct {
		name   string
		filter RecordFilter
		want   bool
	}{
		{name: "empty filter", filter: RecordFilter{}, want: true},
		{name: "name without dot", filter: RecordFilter{Name: "PRINTER.local"}, want: true},
		{name: "other name", filter: RecordFilter{Name: "scanner.local"}, want: false},
		{name: "type", filter: RecordFilter{Type: "a"}, want: true},
		{name: "other type", filter: RecordFilter{Type: "AAAA"}, want: false},
		{name: "active only", filter: RecordFilter{ActiveOnly: true}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(rec))
		})
	}
}
