/*
Package mdns implements a multicast DNS client: a connection over one
multicast socket per interface and family, a TTL-driven record cache,
listeners that follow a name and type, and one-shot transactions.

# Architecture

	┌──────────────────────────────────────────────────────────────┐
	│                           Client                             │
	│  • StartListening(factory) / StopListening()                 │
	│  • CreateListener(type, name, delegate)                      │
	│  • CreateTransaction(type, name, flags, callback)            │
	└────────────────────────────┬─────────────────────────────────┘
	                             │ while listening
	┌────────────────────────────▼─────────────────────────────────┐
	│                            core                              │
	│  ┌────────────┐   ┌──────────────┐   ┌─────────────────────┐ │
	│  │ Connection │──▶│ parse + Cache│──▶│ listeners by        │ │
	│  │ per-socket │   │ Update       │   │ (name, type)        │ │
	│  │ DoLoop     │   │ cleanup timer│   │                     │ │
	│  └─────▲──────┘   └──────────────┘   └──────────┬──────────┘ │
	│        │ queries                                │            │
	└────────┼────────────────────────────────────────┼────────────┘
	         │                                        ▼
	   refresh, transactions                Listener / Transaction

# Threading

Everything runs on one sequence.Runner. Sockets deliver completions by
posting onto it, timers are posted tasks, and the public API must be used
from tasks running on it. Nothing in this package takes a lock.

	loop := sequence.NewLoop()
	go loop.Run(ctx)

	loop.Call(ctx, func() {
		client := mdns.NewClient(loop)
		err = client.StartListening(mdns.NewSocketFactory(loop, cfg, src))
	})

# Packets

A received datagram is used only when it is a response. Unreadable
questions drop the packet. A record with bad rdata is skipped; a record that
runs past the end of the packet ends parsing but keeps the records read so
far. Authority records, OPT records and non-IN classes are ignored.

Every record of a packet is applied to the cache before any listener is
told. Listeners then hear once per touched key, with the combined update:

	first       later       reported
	added       changed     added
	changed     nochange    changed
	any         removed     removed
	removed     added       changed

A record with TTL 0 is a goodbye and removes the cached record at once.

# Cache

One record is kept per (name, type) and, for PTR records, per target.
Expired records stay in the cache until the cleanup timer fires at the
earliest expiration; lookups skip them. When an insert pushes the cache past
its entry limit the cache is cleared, listeners hear a removal for each
record, then OnCachePurged.

An NSEC record removes the cached records of every type its bitmap does not
list, and listeners waiting on those types get OnNsecRecord.

# Listeners

A listener reports added, changed and removed records for its name and
type. With SetActiveRefresh(true) it queries the network at 85% and 95% of
the TTL of the last record it saw.

# Transactions

	QueryCache     serve matching cached records on Start
	QueryNetwork   send a query, report answers until the timeout
	SingleResult   stop after the first result

Results are ResultRecord, ResultNsec and the terminal ResultNoResults
(single) or ResultDone (multiple). A transaction with only QueryCache set
works without a listening client.
*/
package mdns
