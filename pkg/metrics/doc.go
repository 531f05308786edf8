/*
Package metrics provides Prometheus metrics and component health for burrow.

Collectors are package-level variables registered with the default registry
at init. The DNS and mDNS packages increment them directly; the CLI exposes
them over HTTP when a metrics address is configured.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  dns pool:  allocations, failures, empty    │          │
	│  │  dns:       exchanges, exchange duration    │          │
	│  │  mdns:      packets, malformed records,     │          │
	│  │             cache size and purges, queries, │          │
	│  │             transactions, socket errors     │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │             HTTP endpoints                  │          │
	│  │  /metrics  Handler()                        │          │
	│  │  /health   HealthHandler()                  │          │
	│  │  /ready    ReadyHandler()                   │          │
	│  │  /live     LivenessHandler()                │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Usage

Counting and timing:

	timer := metrics.NewTimer()
	resp, err := exchange(...)
	timer.ObserveDurationVec(metrics.DNSExchangeDuration, "udp")
	metrics.DNSExchangesTotal.WithLabelValues("udp", "success").Inc()

Component health:

	metrics.SetCriticalComponents("mdns")
	metrics.RegisterComponent("mdns", true, "listening")
	metrics.SetComponentDetail("mdns", "sockets", "2")
	...
	metrics.UpdateComponent("mdns", false, "connection failed")
	metrics.SetComponentDetail("mdns", "last_error", err.Error())

A component registered unhealthy turns /health into 503. /ready only
considers the components named in SetCriticalComponents. Details are
served under each component in both bodies; RegisterComponent clears
them, UpdateComponent keeps them.
*/
package metrics
