package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cuemby/burrow/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketRecords = []byte("records")
)

// BoltStore implements RecordStore using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates <dataDir>/burrow.db
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "burrow.db")

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRecords); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketRecords, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) PutRecord(rec *types.ObservedRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		key := []byte(rec.Key())

		stored := *rec
		if data := b.Get(key); data != nil {
			var existing types.ObservedRecord
			if err := json.Unmarshal(data, &existing); err != nil {
				return fmt.Errorf("failed to decode record %s: %w", key, err)
			}
			existing.Merge(rec)
			stored = existing
		}

		data, err := json.Marshal(&stored)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

func (s *BoltStore) GetRecord(key string) (*types.ObservedRecord, error) {
	var rec types.ObservedRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRecords).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecords returns matching records ordered by name, type and data
func (s *BoltStore) ListRecords(filter types.RecordFilter) ([]*types.ObservedRecord, error) {
	var records []*types.ObservedRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			var rec types.ObservedRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if filter.Match(&rec) {
				records = append(records, &rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name); an != bn {
			return an < bn
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Data < b.Data
	})
	return records, nil
}

func (s *BoltStore) MarkRemoved(key string, at time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		data := b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}

		var rec types.ObservedRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		rec.State = types.RecordStateRemoved
		rec.RemovedAt = at

		data, err := json.Marshal(&rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
}

func (s *BoltStore) DeleteRecord(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecords).Delete([]byte(key))
	})
}

func (s *BoltStore) Prune(cutoff time.Time) (int, error) {
	pruned := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)

		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var rec types.ObservedRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.State == types.RecordStateRemoved && rec.RemovedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		pruned = len(stale)
		return nil
	})
	return pruned, err
}
