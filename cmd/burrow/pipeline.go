package main

import (
	"context"
	"os"
	"sync"

	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/storage"
)

// pipeline fans mDNS events out to the console and, when a data
// directory is configured, to the record journal
type pipeline struct {
	broker    *events.Broker
	store     storage.RecordStore
	consumers sync.WaitGroup
}

func startPipeline() (*pipeline, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		broker: events.NewBroker(),
		store:  store,
	}

	printSub := p.broker.Subscribe()
	p.consumers.Add(1)
	go func() {
		defer p.consumers.Done()
		printEvents(os.Stdout, printSub)
	}()

	if store != nil {
		recorder := storage.NewRecorder(store, p.broker)
		p.consumers.Add(1)
		go func() {
			defer p.consumers.Done()
			_ = recorder.Run(context.Background())
		}()
	}

	p.broker.Start()
	return p, nil
}

// close delivers pending events, waits for the consumers and closes the
// journal
func (p *pipeline) close() {
	logger := log.WithComponent("cli")
	logger.Debug().
		Int("subscribers", p.broker.SubscriberCount()).
		Msg("Draining event pipeline")
	p.broker.Stop()
	p.consumers.Wait()
	if p.store != nil {
		_ = p.store.Close()
	}
}
