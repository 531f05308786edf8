package mdns

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/sequence"
	"github.com/rs/zerolog"
)

var (
	// ErrAlreadyListening is returned by StartListening on a listening client
	ErrAlreadyListening = errors.New("mdns client already listening")

	// ErrNotListening is returned when a network operation needs a
	// listening client
	ErrNotListening = errors.New("mdns client not listening")

	// ErrAlreadyStarted is returned when a listener or transaction is
	// started twice
	ErrAlreadyStarted = errors.New("already started")

	// ErrInvalidFlags is returned by a transaction with neither QueryCache
	// nor QueryNetwork set
	ErrInvalidFlags = errors.New("transaction needs QueryCache or QueryNetwork")
)

// Client is the entry point for mDNS resolution. Listeners and transactions
// are created from it. All methods must be called on the client's runner.
type Client struct {
	runner             sequence.Runner
	source             log.Source
	entryLimit         int
	transactionTimeout time.Duration
	onConnectionError  func(error)
	logger             zerolog.Logger

	core *core
}

// Option configures a Client
type Option func(*Client)

// WithEntryLimit sets the cache size above which the cache is cleared
func WithEntryLimit(limit int) Option {
	return func(c *Client) {
		c.entryLimit = limit
	}
}

// WithTransactionTimeout sets how long network transactions wait for
// answers
func WithTransactionTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.transactionTimeout = d
	}
}

// WithConnectionErrorHandler registers fn to be told about the fatal error
// of the underlying connection
func WithConnectionErrorHandler(fn func(error)) Option {
	return func(c *Client) {
		c.onConnectionError = fn
	}
}

// WithSource tags the client's logs and sockets with source
func WithSource(source log.Source) Option {
	return func(c *Client) {
		c.source = source
	}
}

// NewClient creates a client that is not yet listening
func NewClient(runner sequence.Runner, opts ...Option) *Client {
	c := &Client{
		runner:             runner,
		entryLimit:         DefaultEntryLimit,
		transactionTimeout: DefaultTransactionTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.source.IsZero() {
		c.source = log.NewSource("mdns.client")
	}
	c.logger = c.source.Logger("mdns.client")
	return c
}

// StartListening opens the sockets created by factory and starts filling
// the cache
func (c *Client) StartListening(factory SocketFactory) error {
	if c.core != nil {
		return ErrAlreadyListening
	}

	core := newCore(c)
	if err := core.init(factory); err != nil {
		core.close()
		metrics.RegisterComponent(componentName, false, err.Error())
		return fmt.Errorf("failed to start mDNS listening: %w", err)
	}

	c.core = core
	metrics.RegisterComponent(componentName, true, "listening")
	metrics.SetComponentDetail(componentName, "sockets", strconv.Itoa(core.connection.NumSockets()))
	metrics.SetComponentDetail(componentName, "entry_limit", strconv.Itoa(c.entryLimit))
	c.logger.Info().Int("sockets", core.connection.NumSockets()).Msg("mDNS client listening")
	return nil
}

// StopListening closes the sockets and drops the cache. Listeners stay
// registered with nothing to notify them.
func (c *Client) StopListening() {
	if c.core == nil {
		return
	}
	c.core.close()
	c.core = nil
	metrics.UpdateComponent(componentName, false, "stopped")
	c.logger.Info().Msg("mDNS client stopped")
}

// IsListening reports whether StartListening succeeded and StopListening
// has not been called since
func (c *Client) IsListening() bool {
	return c.core != nil
}

// CreateListener returns an unstarted listener for name and rrtype
func (c *Client) CreateListener(rrtype uint16, name string, delegate ListenerDelegate) *Listener {
	return newListener(c, rrtype, name, delegate)
}

// CreateTransaction returns an unstarted transaction for name and rrtype
func (c *Client) CreateTransaction(rrtype uint16, name string, flags TransactionFlags, callback TransactionCallback) *Transaction {
	return newTransaction(c, rrtype, name, flags, callback)
}
