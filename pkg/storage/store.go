package storage

import (
	"errors"
	"time"

	"github.com/cuemby/burrow/pkg/types"
)

// ErrNotFound is returned when a record is not in the journal
var ErrNotFound = errors.New("record not found")

// RecordStore is the journal of observed records
type RecordStore interface {
	// PutRecord inserts rec or merges it into the stored record with the
	// same key
	PutRecord(rec *types.ObservedRecord) error
	GetRecord(key string) (*types.ObservedRecord, error)
	ListRecords(filter types.RecordFilter) ([]*types.ObservedRecord, error)
	MarkRemoved(key string, at time.Time) error
	DeleteRecord(key string) error
	// Prune deletes records removed before cutoff and returns how many
	Prune(cutoff time.Time) (int, error)

	// Utility
	Close() error
}
