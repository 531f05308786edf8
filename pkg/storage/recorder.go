package storage

import (
	"context"

	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/rs/zerolog"
)

// Recorder writes record events from a broker subscription into a store
type Recorder struct {
	store  RecordStore
	sub    events.Subscriber
	logger zerolog.Logger
}

// NewRecorder subscribes to broker. Run must be called to consume events.
func NewRecorder(store RecordStore, broker *events.Broker) *Recorder {
	return &Recorder{
		store:  store,
		sub:    broker.Subscribe(),
		logger: log.WithComponent("storage.recorder"),
	}
}

// Run records events until the subscription closes or ctx is done
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case ev, ok := <-r.sub:
			if !ok {
				return nil
			}
			r.record(ev)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Recorder) record(ev *events.Event) {
	if ev.Record == nil {
		return
	}

	rec := *ev.Record
	switch ev.Type {
	case events.EventRecordAdded, events.EventRecordChanged:
		rec.State = types.RecordStateActive
	case events.EventRecordRemoved:
		rec.State = types.RecordStateRemoved
		rec.RemovedAt = ev.Timestamp
	default:
		return
	}

	if err := r.store.PutRecord(&rec); err != nil {
		r.logger.Error().Err(err).Str("record", rec.Key()).Msg("Failed to record observation")
	}
}
