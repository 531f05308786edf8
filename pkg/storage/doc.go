/*
Package storage provides a BoltDB-backed journal of the records burrow has
observed.

The journal outlives a single run: `burrow listen --data-dir` records what
it sees and `burrow records` lists it later. Each record is stored as JSON
under its key (name, type and data), so a TTL refresh or a removal updates
the existing entry instead of adding a new one.

# Architecture

	┌───────────────┐  events   ┌──────────────┐  PutRecord  ┌────────────────┐
	│ events.Broker │──────────▶│   Recorder   │────────────▶│   BoltStore    │
	└───────────────┘           └──────────────┘             │ <dataDir>/     │
	                                                         │   burrow.db    │
	                                                         │ bucket:records │
	                                                         └────────────────┘

The Recorder consumes record.added, record.changed and record.removed
events. A removal keeps the entry, marking it removed with the event time;
Prune deletes entries removed before a cutoff.

# Transactions

Reads use db.View and writes db.Update, as bbolt serializes writers and
lets readers run concurrently. PutRecord reads, merges and writes in one
update transaction, so concurrent observations of one record cannot lose
each other's timestamps.

# Usage

	store, err := storage.NewBoltStore(dataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	recorder := storage.NewRecorder(store, broker)
	go recorder.Run(ctx)

	records, err := store.ListRecords(types.RecordFilter{Type: "PTR", ActiveOnly: true})

The database is opened with a one second lock timeout, so a second burrow
process pointing at the same directory fails fast instead of hanging.
*/
package storage
