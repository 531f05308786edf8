package events

import (
	"fmt"
	"strings"

	"github.com/cuemby/burrow/pkg/mdns"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/miekg/dns"
)

// ObserveRecord converts a cached record into its journal form
func ObserveRecord(rec *mdns.Record, update mdns.UpdateType) *types.ObservedRecord {
	hdr := rec.RR.Header()
	observed := &types.ObservedRecord{
		Name:      hdr.Name,
		Type:      dns.TypeToString[hdr.Rrtype],
		Data:      strings.TrimPrefix(rec.RR.String(), hdr.String()),
		TTL:       hdr.Ttl,
		State:     types.RecordStateActive,
		FirstSeen: rec.Created,
		LastSeen:  rec.Created,
	}
	if observed.Type == "" {
		observed.Type = fmt.Sprintf("TYPE%d", hdr.Rrtype)
	}
	if update == mdns.RecordRemoved {
		observed.State = types.RecordStateRemoved
	}
	return observed
}

// ListenerPublisher is an mdns.ListenerDelegate that publishes every
// listener callback on a broker
type ListenerPublisher struct {
	broker *Broker
}

// NewListenerPublisher creates a delegate publishing to broker
func NewListenerPublisher(broker *Broker) *ListenerPublisher {
	return &ListenerPublisher{broker: broker}
}

func (p *ListenerPublisher) OnRecordUpdate(update mdns.UpdateType, rec *mdns.Record) {
	var eventType EventType
	switch update {
	case mdns.RecordAdded:
		eventType = EventRecordAdded
	case mdns.RecordChanged:
		eventType = EventRecordChanged
	case mdns.RecordRemoved:
		eventType = EventRecordRemoved
	default:
		return
	}

	p.broker.Publish(&Event{
		Type:    eventType,
		Message: rec.String(),
		Record:  ObserveRecord(rec, update),
	})
}

func (p *ListenerPublisher) OnNsecRecord(name string, rrtype uint16) {
	p.broker.Publish(&Event{
		Type:    EventRecordNonexistent,
		Message: fmt.Sprintf("%s has no %s record", name, dns.TypeToString[rrtype]),
		Metadata: map[string]string{
			"name": name,
			"type": dns.TypeToString[rrtype],
		},
	})
}

func (p *ListenerPublisher) OnCachePurged() {
	p.broker.Publish(&Event{
		Type:    EventCachePurged,
		Message: "mDNS cache cleared",
	})
}

// TransactionPublisher returns a transaction callback that publishes
// records as they arrive and the terminal result as EventTransactionDone
func TransactionPublisher(broker *Broker, name string, rrtype uint16, flags mdns.TransactionFlags) mdns.TransactionCallback {
	return func(result mdns.TransactionResult, rec *mdns.Record) {
		switch result {
		case mdns.ResultRecord:
			broker.Publish(&Event{
				Type:    EventRecordAdded,
				Message: rec.String(),
				Record:  ObserveRecord(rec, mdns.RecordAdded),
			})
		case mdns.ResultNsec:
			broker.Publish(&Event{
				Type:    EventRecordNonexistent,
				Message: fmt.Sprintf("%s has no %s record", name, dns.TypeToString[rrtype]),
				Metadata: map[string]string{
					"name": name,
					"type": dns.TypeToString[rrtype],
				},
			})
		}

		if result != mdns.ResultRecord || flags&mdns.SingleResult != 0 {
			broker.Publish(&Event{
				Type:     EventTransactionDone,
				Message:  result.String(),
				Metadata: map[string]string{"result": result.String()},
			})
		}
	}
}
