package types

import (
	"strings"
	"time"
)

// RecordState is the last known state of an observed record
type RecordState string

const (
	RecordStateActive  RecordState = "active"
	RecordStateRemoved RecordState = "removed"
)

// ObservedRecord is a resource record seen on the network, as kept in the
// journal and carried by events
type ObservedRecord struct {
	Name      string
	Type      string
	Data      string
	TTL       uint32
	State     RecordState
	FirstSeen time.Time
	LastSeen  time.Time
	RemovedAt time.Time
}

// Key identifies the record independently of its TTL and state
func (r *ObservedRecord) Key() string {
	return strings.ToLower(r.Name) + "|" + r.Type + "|" + r.Data
}

// Expires returns when the record lapses unless refreshed
func (r *ObservedRecord) Expires() time.Time {
	return r.LastSeen.Add(time.Duration(r.TTL) * time.Second)
}

// Merge folds a newer observation of the same record into r
func (r *ObservedRecord) Merge(newer *ObservedRecord) {
	if r.FirstSeen.IsZero() || (!newer.FirstSeen.IsZero() && newer.FirstSeen.Before(r.FirstSeen)) {
		r.FirstSeen = newer.FirstSeen
	}
	r.LastSeen = newer.LastSeen
	r.State = newer.State
	r.RemovedAt = newer.RemovedAt
	if newer.State == RecordStateActive {
		r.TTL = newer.TTL
		r.RemovedAt = time.Time{}
	}
}

// RecordFilter narrows a listing. Empty fields match everything.
type RecordFilter struct {
	Name       string
	Type       string
	ActiveOnly bool
}

// Match reports whether r passes the filter
func (f RecordFilter) Match(r *ObservedRecord) bool {
	if f.Name != "" && !strings.EqualFold(strings.TrimSuffix(f.Name, "."), strings.TrimSuffix(r.Name, ".")) {
		return false
	}
	if f.Type != "" && !strings.EqualFold(f.Type, r.Type) {
		return false
	}
	if f.ActiveOnly && r.State != RecordStateActive {
		return false
	}
	return true
}
