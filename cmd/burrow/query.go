package main

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"text/tabwriter"

	"github.com/cuemby/burrow/pkg/config"
	burrowdns "github.com/cuemby/burrow/pkg/dns"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/socket"
	"github.com/miekg/dns"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query NAME",
	Short: "Resolve a name over unicast DNS",
	Long: `Send a recursive query to the configured nameservers, trying each in
order until one answers. Truncated UDP replies are retried over TCP.

Examples:
  # Look up an address with the configured nameservers
  burrow query example.com

  # Ask a specific server for MX records over TCP
  burrow query example.com --type MX --server 1.1.1.1 --tcp`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringP("type", "t", "A", "Record type to query")
	queryCmd.Flags().StringSlice("server", nil, "Nameserver to ask (repeatable, overrides config)")
	queryCmd.Flags().String("pooling", "", "Socket pooling policy: default or null (default from config)")
	queryCmd.Flags().Bool("allocator", false, "Create a fresh socket per exchange instead of using a pool")
	queryCmd.Flags().Bool("tcp", false, "Query over TCP only")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	name := args[0]
	typeName, _ := cmd.Flags().GetString("type")
	qtype, err := parseType(typeName)
	if err != nil {
		return err
	}

	servers, _ := cmd.Flags().GetStringSlice("server")
	if len(servers) > 0 {
		cfg.DNS.Nameservers = servers
	}
	if pooling, _ := cmd.Flags().GetString("pooling"); pooling != "" {
		cfg.DNS.Pooling = pooling
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	nameservers, err := cfg.Nameservers()
	if err != nil {
		return err
	}

	useAllocator, _ := cmd.Flags().GetBool("allocator")
	forceTCP, _ := cmd.Flags().GetBool("tcp")

	source := log.NewSource("cli")
	sockets, closeSockets, err := newSockets(nameservers, useAllocator, source)
	if err != nil {
		return err
	}
	defer closeSockets()

	client := burrowdns.NewClient(sockets, source,
		burrowdns.WithTimeout(cfg.DNS.Timeout),
		burrowdns.WithTCPFallback(cfg.DNS.TCPFallback),
		burrowdns.WithForceTCP(forceTCP),
	)
	metrics.SetCriticalComponents("dns")

	ctx, stopSignals := signalContext(cmd.Context())
	defer stopSignals()

	var resp *dns.Msg
	err = runServices(ctx, nil, func(ctx context.Context) error {
		var err error
		resp, err = client.Resolve(ctx, name, qtype)
		if err != nil {
			metrics.UpdateComponent("dns", false, err.Error())
			return err
		}
		metrics.UpdateComponent("dns", true, "answered")
		return nil
	})
	if err != nil {
		return err
	}
	if resp == nil {
		return fmt.Errorf("query for %s interrupted", name)
	}

	printResponse(resp)
	return nil
}

// newSockets builds the socket source of a unicast client
func newSockets(nameservers []netip.AddrPort, useAllocator bool, source log.Source) (burrowdns.Sockets, func(), error) {
	factory := socket.NewFactory(socket.DefaultRandInt)

	if useAllocator {
		return burrowdns.NewSocketAllocator(factory, nameservers, source), func() {}, nil
	}

	policy := burrowdns.PoolingDefault
	if cfg.DNS.Pooling == config.PoolingNull {
		policy = burrowdns.PoolingNull
	}
	pool := burrowdns.NewSocketPool(policy, factory, socket.DefaultRandInt)
	if err := pool.Initialize(nameservers, source); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize socket pool: %w", err)
	}
	return pool, func() { _ = pool.Close() }, nil
}

func printResponse(resp *dns.Msg) {
	fmt.Printf("status: %s, answers: %d, authority: %d, additional: %d\n",
		dns.RcodeToString[resp.Rcode], len(resp.Answer), len(resp.Ns), len(resp.Extra))

	if len(resp.Answer) == 0 {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTTL\tTYPE\tDATA")
	for _, rr := range resp.Answer {
		hdr := rr.Header()
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			hdr.Name, hdr.Ttl, dns.TypeToString[hdr.Rrtype], recordData(rr))
	}
	_ = w.Flush()
}

// recordData is the presentation form of rr without its header
func recordData(rr dns.RR) string {
	s := rr.String()
	h := rr.Header().String()
	if len(s) >= len(h) && s[:len(h)] == h {
		return s[len(h):]
	}
	return s
}
