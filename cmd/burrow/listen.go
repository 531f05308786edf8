package main

import (
	"context"
	"fmt"

	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/mdns"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/sequence"
	"github.com/spf13/cobra"
)

var listenCmd = &cobra.Command{
	Use:   "listen TYPE NAME",
	Short: "Watch mDNS records for a name",
	Long: `Listen on the mDNS multicast groups and print every change to the
records of the given type and name.

Examples:
  # Watch printers advertised on the local network
  burrow listen PTR _ipp._tcp.local

  # Keep the records fresh by re-querying before they expire
  burrow listen A printer.local --active-refresh

  # Watch for a minute and keep a journal of what was seen
  burrow listen PTR _services._dns-sd._udp.local --duration 1m --data-dir /var/lib/burrow`,
	Args: cobra.ExactArgs(2),
	RunE: runListen,
}

func init() {
	listenCmd.Flags().Bool("active-refresh", false, "Query again before records expire")
	listenCmd.Flags().Duration("duration", 0, "Stop after this long (0 runs until interrupted)")

	rootCmd.AddCommand(listenCmd)
}

// mdnsSession is an mDNS client running on its own loop goroutine
type mdnsSession struct {
	loop       *sequence.Loop
	client     *mdns.Client
	stopLoop   context.CancelFunc
	loopDone   chan struct{}
	connErrors chan error
}

// startMDNS starts a loop and an mDNS client listening on the configured
// interfaces
func startMDNS() (*mdnsSession, error) {
	loopCtx, stopLoop := context.WithCancel(context.Background())
	s := &mdnsSession{
		loop:       sequence.NewLoop(),
		stopLoop:   stopLoop,
		loopDone:   make(chan struct{}),
		connErrors: make(chan error, 1),
	}
	go func() {
		defer close(s.loopDone)
		_ = s.loop.Run(loopCtx)
	}()

	source := log.NewSource("cli")
	s.client = mdns.NewClient(s.loop,
		mdns.WithEntryLimit(cfg.MDNS.EntryLimit),
		mdns.WithTransactionTimeout(cfg.MDNS.TransactionTimeout),
		mdns.WithSource(source),
		mdns.WithConnectionErrorHandler(func(err error) {
			select {
			case s.connErrors <- err:
			default:
			}
		}),
	)
	factory := mdns.NewSocketFactory(s.loop, mdns.SocketFactoryConfig{
		IPv4:       cfg.MDNS.IPv4,
		IPv6:       cfg.MDNS.IPv6,
		Interfaces: cfg.MDNS.Interfaces,
	}, source)

	var startErr error
	if err := s.loop.Call(loopCtx, func() {
		startErr = s.client.StartListening(factory)
	}); err != nil {
		startErr = err
	}
	if startErr != nil {
		s.stop(nil)
		return nil, startErr
	}

	metrics.SetCriticalComponents("mdns")
	return s, nil
}

// do runs fn on the loop and waits for it
func (s *mdnsSession) do(fn func()) {
	_ = s.loop.Call(context.Background(), fn)
}

// stop runs cleanup on the loop, stops listening and ends the loop
func (s *mdnsSession) stop(cleanup func()) {
	log.Info("Stopping mDNS client")
	s.do(func() {
		if cleanup != nil {
			cleanup()
		}
		s.client.StopListening()
	})
	s.stopLoop()
	<-s.loopDone
}

func runListen(cmd *cobra.Command, args []string) error {
	rrtype, err := parseType(args[0])
	if err != nil {
		return err
	}
	name := args[1]
	activeRefresh, _ := cmd.Flags().GetBool("active-refresh")
	duration, _ := cmd.Flags().GetDuration("duration")

	ctx, stopSignals := signalContext(cmd.Context())
	defer stopSignals()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	pipe, err := startPipeline()
	if err != nil {
		return err
	}
	defer pipe.close()

	session, err := startMDNS()
	if err != nil {
		return err
	}

	var listener *mdns.Listener
	var startErr error
	session.do(func() {
		listener = session.client.CreateListener(rrtype, name, events.NewListenerPublisher(pipe.broker))
		listener.SetActiveRefresh(activeRefresh)
		startErr = listener.Start()
	})
	if startErr != nil {
		session.stop(nil)
		return fmt.Errorf("failed to start listener: %w", startErr)
	}

	logger := log.WithComponent("cli")
	logger.Info().
		Str("name", name).
		Str("type", args[0]).
		Bool("active_refresh", activeRefresh).
		Msg("Listening for mDNS records")

	err = runServices(ctx, pipe.store, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-session.connErrors:
			pipe.broker.Publish(&events.Event{Type: events.EventConnectionError, Message: err.Error()})
			return fmt.Errorf("mDNS connection failed: %w", err)
		}
	})

	session.stop(listener.Close)
	return err
}
