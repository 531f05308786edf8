/*
Package api serves burrow's HTTP endpoints.

The server is started by the CLI when --metrics-addr (or metrics.addr in
the config file) is set:

	┌────────────────── HealthServer ──────────────────┐
	│                                                   │
	│  /health    component health from pkg/metrics     │
	│  /ready     readiness of the critical components  │
	│  /live      process liveness                      │
	│  /metrics   prometheus exposition                 │
	│  /records   record journal as JSON                │
	│             ?name=&type=&active=true              │
	└───────────────────────────────────────────────────┘

/records reads through storage.RecordStore and answers 404 when the
journal is disabled. Every endpoint accepts GET only.

# Usage

	srv := api.NewHealthServer(store)
	g.Go(func() error { return srv.Run(ctx, "127.0.0.1:9353") })
*/
package api
