package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DNS socket pool metrics
	DNSPoolSocketsAllocated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_dns_pool_sockets_allocated_total",
			Help: "Total number of UDP sockets handed out by the DNS socket pool",
		},
		[]string{"policy"},
	)

	DNSPoolSocketFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_dns_pool_socket_failures_total",
			Help: "Total number of socket creation failures by stage (create, connect)",
		},
		[]string{"stage"},
	)

	DNSPoolExhausted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_dns_pool_exhausted_total",
			Help: "Total number of allocations that found no socket after refill",
		},
	)

	// Unicast DNS exchange metrics
	DNSExchangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_dns_exchanges_total",
			Help: "Total number of unicast DNS exchanges by transport and result",
		},
		[]string{"transport", "result"},
	)

	DNSExchangeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "burrow_dns_exchange_duration_seconds",
			Help:    "Unicast DNS exchange duration in seconds by final transport",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transport"},
	)

	// mDNS metrics
	MDNSPacketsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_mdns_packets_received_total",
			Help: "Total number of mDNS packets received",
		},
	)

	MDNSPacketsIgnored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_mdns_packets_ignored_total",
			Help: "Total number of mDNS packets ignored (queries or unreadable headers)",
		},
	)

	MDNSRecordsMalformed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_mdns_records_malformed_total",
			Help: "Total number of malformed resource records skipped",
		},
	)

	MDNSCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "burrow_mdns_cache_entries",
			Help: "Current number of records in the mDNS cache",
		},
	)

	MDNSCachePurges = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_mdns_cache_purges_total",
			Help: "Total number of times an overfilled mDNS cache was cleared",
		},
	)

	MDNSQueriesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_mdns_queries_sent_total",
			Help: "Total number of mDNS queries sent",
		},
	)

	MDNSTransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_mdns_transactions_total",
			Help: "Total number of mDNS transaction results by kind",
		},
		[]string{"result"},
	)

	MDNSConnectionErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_mdns_connection_errors_total",
			Help: "Total number of fatal mDNS connection errors",
		},
	)

	MDNSSocketsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "burrow_mdns_sockets_active",
			Help: "Number of mDNS sockets currently receiving",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(DNSPoolSocketsAllocated)
	prometheus.MustRegister(DNSPoolSocketFailures)
	prometheus.MustRegister(DNSPoolExhausted)
	prometheus.MustRegister(DNSExchangesTotal)
	prometheus.MustRegister(DNSExchangeDuration)
	prometheus.MustRegister(MDNSPacketsReceived)
	prometheus.MustRegister(MDNSPacketsIgnored)
	prometheus.MustRegister(MDNSRecordsMalformed)
	prometheus.MustRegister(MDNSCacheEntries)
	prometheus.MustRegister(MDNSCachePurges)
	prometheus.MustRegister(MDNSQueriesSent)
	prometheus.MustRegister(MDNSTransactionsTotal)
	prometheus.MustRegister(MDNSConnectionErrors)
	prometheus.MustRegister(MDNSSocketsActive)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
