package events

import (
	"testing"
	"time"

	"github.com/cuemby/burrow/pkg/mdns"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub Subscriber) *Event {
	t.Helper()
	select {
	case ev, ok := <-sub:
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func newRecord(t *testing.T, s string) *mdns.Record {
	t.Helper()
	rr, err := dns.NewRR(s)
	require.NoError(t, err)
	return &mdns.Record{RR: rr, Created: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestBrokerPublishSubscribe(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	first := broker.Subscribe()
	second := broker.Subscribe()
	assert.Equal(t, 2, broker.SubscriberCount())

	broker.Publish(&Event{Type: EventCachePurged, Message: "cleared"})

	for _, sub := range []Subscriber{first, second} {
		ev := receive(t, sub)
		assert.Equal(t, EventCachePurged, ev.Type)
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.Timestamp.IsZero())
	}

	broker.Unsubscribe(first)
	broker.Unsubscribe(first)
	assert.Equal(t, 1, broker.SubscriberCount())
}

func TestBrokerStopClosesSubscribers(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	sub := broker.Subscribe()

	broker.Publish(&Event{Type: EventRecordAdded})
	broker.Stop()
	broker.Stop()

	var got []EventType
	for ev := range sub {
		got = append(got, ev.Type)
	}
	assert.Equal(t, []EventType{EventRecordAdded}, got)
	assert.Equal(t, 0, broker.SubscriberCount())
}

func TestBrokerStopWithoutStart(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe()
	broker.Stop()

	_, ok := <-sub
	assert.False(t, ok)
}

func TestObserveRecord(t *testing.T) {
	rec := newRecord(t, "printer._ipp._tcp.local. 120 IN SRV 0 0 631 printer.local.")

	observed := ObserveRecord(rec, mdns.RecordAdded)
	assert.Equal(t, "printer._ipp._tcp.local.", observed.Name)
	assert.Equal(t, "SRV", observed.Type)
	assert.Equal(t, "0 0 631 printer.local.", observed.Data)
	assert.Equal(t, uint32(120), observed.TTL)
	assert.Equal(t, types.RecordStateActive, observed.State)
	assert.Equal(t, rec.Created, observed.FirstSeen)

	removed := ObserveRecord(rec, mdns.RecordRemoved)
	assert.Equal(t, types.RecordStateRemoved, removed.State)
	assert.Equal(t, observed.Key(), removed.Key())
}

func TestListenerPublisher(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()

	p := NewListenerPublisher(broker)
	rec := newRecord(t, "printer.local. 120 IN A 10.0.0.1")

	tests := []struct {
		name    string
		publish func()
		want    EventType
	}{
		{name: "added", publish: func() { p.OnRecordUpdate(mdns.RecordAdded, rec) }, want: EventRecordAdded},
		{name: "changed", publish: func() { p.OnRecordUpdate(mdns.RecordChanged, rec) }, want: EventRecordChanged},
		{name: "removed", publish: func() { p.OnRecordUpdate(mdns.RecordRemoved, rec) }, want: EventRecordRemoved},
		{name: "nsec", publish: func() { p.OnNsecRecord("printer.local", dns.TypeAAAA) }, want: EventRecordNonexistent},
		{name: "purged", publish: func() { p.OnCachePurged() }, want: EventCachePurged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.publish()
			ev := receive(t, sub)
			assert.Equal(t, tt.want, ev.Type)
		})
	}

	p.OnRecordUpdate(mdns.RecordNoChange, rec)
	p.OnCachePurged()
	assert.Equal(t, EventCachePurged, receive(t, sub).Type, "no change is not published")
}

func TestTransactionPublisher(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()

	rec := newRecord(t, "printer.local. 120 IN A 10.0.0.1")

	multi := TransactionPublisher(broker, "printer.local", dns.TypeA, mdns.QueryNetwork)
	multi(mdns.ResultRecord, rec)
	multi(mdns.ResultDone, nil)

	ev := receive(t, sub)
	assert.Equal(t, EventRecordAdded, ev.Type)
	require.NotNil(t, ev.Record)
	assert.Equal(t, "10.0.0.1", ev.Record.Data)
	ev = receive(t, sub)
	assert.Equal(t, EventTransactionDone, ev.Type)
	assert.Equal(t, "done", ev.Metadata["result"])

	single := TransactionPublisher(broker, "printer.local", dns.TypeA, mdns.QueryNetwork|mdns.SingleResult)
	single(mdns.ResultNsec, nil)
	assert.Equal(t, EventRecordNonexistent, receive(t, sub).Type)
	ev = receive(t, sub)
	assert.Equal(t, EventTransactionDone, ev.Type)
	assert.Equal(t, "nsec", ev.Metadata["result"])

	single(mdns.ResultRecord, rec)
	assert.Equal(t, EventRecordAdded, receive(t, sub).Type)
	assert.Equal(t, "record", receive(t, sub).Metadata["result"])
}
