/*
Package events provides an in-memory event broker that fans out what the
mDNS client observes to burrow's printers and journal.

# Architecture

	┌───────────────────┐      ┌──────────────────────────────┐
	│ ListenerPublisher │      │ TransactionPublisher         │
	│ (mdns delegate)   │      │ (mdns transaction callback)  │
	└─────────┬─────────┘      └──────────────┬───────────────┘
	          │ Publish                        │
	          ▼                                ▼
	┌──────────────────────────────────────────────────────────┐
	│ Broker                                                   │
	│   event channel (buffer 100) → broadcast loop            │
	└──────────┬──────────────────────────────┬────────────────┘
	           ▼                              ▼
	   Subscriber (buffer 50)         Subscriber (buffer 50)
	   console printer                storage.Recorder

Publish blocks only while the broker's own buffer is full. Broadcast never
blocks: a subscriber whose buffer is full misses the event.

# Event Types

	record.added         a record appeared in the cache
	record.changed       a cached record got new data
	record.removed       a record expired, was withdrawn or was purged
	record.nonexistent   an NSEC record denied the type being followed
	cache.purged         the cache overflowed and was cleared
	transaction.done     a transaction ended; Metadata["result"] says how
	connection.error     the mDNS sockets failed

Record events carry a types.ObservedRecord built by ObserveRecord.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	go func() {
		for ev := range sub {
			fmt.Println(ev.Type, ev.Message)
		}
	}()

	listener := client.CreateListener(dns.TypePTR, "_ipp._tcp.local",
		events.NewListenerPublisher(broker))

Stop delivers what was already published and then closes every subscriber
channel, so range loops over a subscription end on their own.
*/
package events
