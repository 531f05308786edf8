/*
Package health checks unicast nameservers and tracks their health.

A Checker performs one check and returns a Result. A Monitor runs every
registered checker at a fixed interval, folds the results into a Status
and publishes it to the component health registry in pkg/metrics, where
/health and /ready pick it up.

	┌──────────────────────── Monitor ─────────────────────────┐
	│                                                           │
	│   dns.8.8.8.8:53        dns.1.1.1.1:53        ...         │
	│   ┌───────────────┐     ┌───────────────┐                 │
	│   │ Nameserver    │     │ Nameserver    │                 │
	│   │ Checker       │     │ Checker       │                 │
	│   └──────┬────────┘     └──────┬────────┘                 │
	│          │ every Interval      │                          │
	│          ▼                     ▼                          │
	│   Status.Update         Status.Update                     │
	│          │                     │                          │
	│          └──────────┬──────────┘                          │
	│                     ▼                                     │
	│         metrics.UpdateComponent(name, healthy, msg)       │
	└───────────────────────────────────────────────────────────┘

# Health Check Flow

 1. The first check runs as soon as Run is called
 2. Every Interval: run the check with Timeout
 3. A failed check increments the consecutive failure count
 4. When failures reach Retries the target is marked unhealthy
 5. A single success marks it healthy again

# Nameserver Checks

NameserverChecker sends ". NS" (or the question set with WithQuestion)
through the unicast client's Exchange. SERVFAIL, REFUSED and transport
errors count as failures. Any other reply, NXDOMAIN included, shows the
server is up.

	client := dns.NewClient(pool, source)
	monitor := health.NewMonitor(health.DefaultConfig())
	for i, ns := range nameservers {
		monitor.Add("dns."+ns.String(), health.NewNameserverChecker(client, i))
	}
	_ = monitor.Run(ctx)
*/
package health
