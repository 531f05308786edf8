package main

import (
	"context"
	"fmt"
	"time"

	burrowdns "github.com/cuemby/burrow/pkg/dns"
	"github.com/cuemby/burrow/pkg/health"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor the health of the configured nameservers",
	Long: `Query every configured nameserver at a fixed interval and report
its health. With --metrics-addr the results are also served on /health.

Examples:
  # Check the configured nameservers every 10 seconds
  burrow monitor --interval 10s

  # Watch two servers for one minute
  burrow monitor --server 1.1.1.1 --server 9.9.9.9 --duration 1m`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().StringSlice("server", nil, "Nameserver to check (repeatable, overrides config)")
	monitorCmd.Flags().Duration("interval", 30*time.Second, "Time between checks")
	monitorCmd.Flags().Int("retries", 3, "Consecutive failures before a server is unhealthy")
	monitorCmd.Flags().Duration("duration", 0, "Stop after this long (0 runs until interrupted)")

	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if servers, _ := cmd.Flags().GetStringSlice("server"); len(servers) > 0 {
		cfg.DNS.Nameservers = servers
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	nameservers, err := cfg.Nameservers()
	if err != nil {
		return err
	}

	interval, _ := cmd.Flags().GetDuration("interval")
	retries, _ := cmd.Flags().GetInt("retries")
	duration, _ := cmd.Flags().GetDuration("duration")

	source := log.NewSource("cli")
	sockets, closeSockets, err := newSockets(nameservers, false, source)
	if err != nil {
		return err
	}
	defer closeSockets()

	client := burrowdns.NewClient(sockets, source,
		burrowdns.WithTimeout(cfg.DNS.Timeout),
		burrowdns.WithTCPFallback(cfg.DNS.TCPFallback),
	)

	monitor := health.NewMonitor(health.Config{
		Interval: interval,
		Timeout:  cfg.DNS.Timeout,
		Retries:  retries,
	})
	names := make([]string, 0, len(nameservers))
	for i, ns := range nameservers {
		name := "dns." + ns.String()
		names = append(names, name)
		monitor.Add(name, health.NewNameserverChecker(client, i))
	}
	metrics.SetCriticalComponents(names...)

	monitor.OnResult(func(name string, status health.Status) {
		state := "healthy"
		if !status.Healthy {
			state = "unhealthy"
		}
		fmt.Printf("%s  %-28s %-9s %s (%s)\n",
			status.LastCheck.Format(time.TimeOnly), name, state,
			status.LastResult.Message, status.LastResult.Duration.Round(time.Millisecond))
	})

	ctx, stopSignals := signalContext(cmd.Context())
	defer stopSignals()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	return runServices(ctx, nil, monitor.Run)
}
