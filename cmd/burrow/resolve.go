package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/mdns"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve TYPE NAME",
	Short: "Resolve a name over mDNS",
	Long: `Run a one-shot mDNS transaction and print the records it finds.

By default the cache and the network are both consulted and every
answer received before the transaction timeout is printed.

Examples:
  # Find the address of a host
  burrow resolve A printer.local --single

  # List every IPP service instance
  burrow resolve PTR _ipp._tcp.local`,
	Args: cobra.ExactArgs(2),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().Bool("cache", true, "Answer from the mDNS cache")
	resolveCmd.Flags().Bool("network", true, "Send a query and wait for answers")
	resolveCmd.Flags().Bool("single", false, "Stop after the first answer")
	resolveCmd.Flags().Duration("timeout", 0, "Transaction timeout (default from config)")

	rootCmd.AddCommand(resolveCmd)
}

// transactionFlags builds the flag set of a resolve invocation
func transactionFlags(useCache, useNetwork, single bool) (mdns.TransactionFlags, error) {
	var flags mdns.TransactionFlags
	if useCache {
		flags |= mdns.QueryCache
	}
	if useNetwork {
		flags |= mdns.QueryNetwork
	}
	if flags == 0 {
		return 0, errors.New("at least one of --cache and --network must be set")
	}
	if single {
		flags |= mdns.SingleResult
	}
	return flags, nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	rrtype, err := parseType(args[0])
	if err != nil {
		return err
	}
	name := args[1]

	useCache, _ := cmd.Flags().GetBool("cache")
	useNetwork, _ := cmd.Flags().GetBool("network")
	single, _ := cmd.Flags().GetBool("single")
	flags, err := transactionFlags(useCache, useNetwork, single)
	if err != nil {
		return err
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		cfg.MDNS.TransactionTimeout = timeout
	}

	ctx, stopSignals := signalContext(cmd.Context())
	defer stopSignals()

	pipe, err := startPipeline()
	if err != nil {
		return err
	}
	defer pipe.close()

	session, err := startMDNS()
	if err != nil {
		return err
	}

	done := make(chan mdns.TransactionResult, 1)
	publish := events.TransactionPublisher(pipe.broker, name, rrtype, flags)
	callback := func(result mdns.TransactionResult, rec *mdns.Record) {
		publish(result, rec)
		if result != mdns.ResultRecord || flags&mdns.SingleResult != 0 {
			done <- result
		}
	}

	var transaction *mdns.Transaction
	var startErr error
	session.do(func() {
		transaction = session.client.CreateTransaction(rrtype, name, flags, callback)
		startErr = transaction.Start()
	})
	if startErr != nil {
		session.stop(nil)
		return fmt.Errorf("failed to start transaction: %w", startErr)
	}

	var result mdns.TransactionResult
	err = runServices(ctx, pipe.store, func(ctx context.Context) error {
		timer := time.NewTimer(cfg.MDNS.TransactionTimeout + time.Second)
		defer timer.Stop()

		select {
		case result = <-done:
			return nil
		case err := <-session.connErrors:
			return fmt.Errorf("mDNS connection failed: %w", err)
		case <-timer.C:
			return errors.New("transaction did not complete")
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	session.stop(transaction.Close)
	if err != nil {
		return err
	}
	if result == mdns.ResultNoResults {
		return fmt.Errorf("no %s record found for %s", args[0], name)
	}
	return nil
}
