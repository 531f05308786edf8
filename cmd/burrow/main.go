package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cuemby/burrow/pkg/api"
	"github.com/cuemby/burrow/pkg/config"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/storage"
	"github.com/miekg/dns"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// cfg is loaded once per invocation by the root command
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "burrow",
	Short: "Burrow - mDNS and unicast DNS toolkit",
	Long: `Burrow watches multicast DNS traffic on the local network, resolves
names over mDNS and unicast DNS, and keeps a journal of the records it
has observed.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Burrow version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve /metrics, /health and /records on this address")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory of the observed record journal")
}

// loadConfig reads the configuration file, applies flag overrides and
// initializes logging
func loadConfig(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")

	loaded := config.Default()
	if path != "" {
		var err error
		if loaded, err = config.Load(path); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		loaded.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-json") {
		loaded.Log.JSON, _ = flags.GetBool("log-json")
	}
	if flags.Changed("metrics-addr") {
		loaded.Metrics.Addr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("data-dir") {
		loaded.Storage.DataDir, _ = flags.GetString("data-dir")
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	log.Init(log.Config{
		Level:      log.ParseLevel(loaded.Log.Level),
		JSONOutput: loaded.Log.JSON,
	})
	metrics.SetVersion(Version)

	cfg = loaded
	return nil
}

// signalContext is canceled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// runServices runs fn alongside the HTTP server when one is configured.
// The server stops once fn returns.
func runServices(ctx context.Context, store storage.RecordStore, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if addr := cfg.Metrics.Addr; addr != "" {
		srv := api.NewHealthServer(store)
		g.Go(func() error {
			if err := srv.Run(gctx, addr); err != nil {
				log.Errorf("HTTP server failed", err)
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer cancel()
		return ignoreCanceled(fn(gctx))
	})
	return g.Wait()
}

// openStore opens the record journal when a data directory is configured
func openStore() (storage.RecordStore, error) {
	if cfg.Storage.DataDir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := storage.NewBoltStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open record journal: %w", err)
	}
	return store, nil
}

// parseType maps a record type mnemonic such as "AAAA" or "ptr" onto its
// numeric value
func parseType(s string) (uint16, error) {
	if t, ok := dns.StringToType[strings.ToUpper(s)]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown record type: %s", s)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
