/*
Package log provides structured logging for burrow using zerolog.

The log package wraps the zerolog library to provide JSON or console logging
with component-specific child loggers and log sources. Every socket pool,
allocator, mDNS connection and mDNS client in burrow logs through a child of
the global Logger so lines from one originator can be correlated.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Zero value discards everything           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Component Loggers                 │          │
	│  │  - WithComponent("mdns.client")             │          │
	│  │  - Source.Logger("dns.pool")                │          │
	│  │    adds source_id / source_type             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │  JSON:    {"level":"debug",                 │          │
	│  │            "component":"dns.pool",          │          │
	│  │            "source_id":"8f0c...",           │          │
	│  │            "message":"failed to connect"}   │          │
	│  │  Console: 10:30AM DBG failed to connect     │          │
	│  │           component=dns.pool                │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Sources

A Source stands in for the "log context" handed to socket factories and
pools. It carries a random UUID and a kind:

	src := log.NewSource("dns.pool")
	pool.Initialize(nameservers, src)

	logger := src.Logger("dns.pool")
	logger.Debug().Int("server_index", 0).Msg("allocating socket")

# Usage

	log.Init(log.Config{
		Level:      log.ParseLevel("debug"),
		JSONOutput: false,
		Output:     os.Stderr,
	})

	mdnsLog := log.WithComponent("mdns")
	mdnsLog.Info().Int("sockets", 2).Msg("mDNS connection ready")

Tests never call Init; the zero Logger drops all output, so packages may log
freely from code paths exercised by unit tests.
*/
package log
