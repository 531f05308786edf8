package dns

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/socket"
	"github.com/rs/zerolog"
)

var (
	// ErrAlreadyInitialized is returned by a second Initialize call
	ErrAlreadyInitialized = errors.New("socket pool already initialized")

	// ErrNotInitialized is returned when the pool is used before Initialize
	ErrNotInitialized = errors.New("socket pool not initialized")

	// ErrInvalidServerIndex is returned for an index outside the nameserver list
	ErrInvalidServerIndex = errors.New("invalid server index")

	// ErrNoSocket is returned when no socket could be obtained for a server
	ErrNoSocket = errors.New("no socket available")

	// ErrIDMismatch is returned when only replies with a foreign ID arrived
	ErrIDMismatch = errors.New("response id mismatch")
)

// PoolingPolicy selects whether UDP sockets are pre-created
type PoolingPolicy int

const (
	// PoolingDefault keeps a reserve of connected sockets per server
	PoolingDefault PoolingPolicy = iota
	// PoolingNull creates and connects a socket on every allocation
	PoolingNull
)

func (p PoolingPolicy) String() string {
	if p == PoolingNull {
		return "null"
	}
	return "default"
}

// PoolOption customizes a SocketPool
type PoolOption func(*SocketPool)

// WithBindType overrides the platform bind strategy
func WithBindType(bindType socket.BindType) PoolOption {
	return func(p *SocketPool) {
		p.bindType = bindType
	}
}

// WithPoolSizes overrides the platform reserve sizes. initial sockets are
// created per server by Initialize; min is the reserve refilled before each
// allocation.
func WithPoolSizes(initial, min int) PoolOption {
	return func(p *SocketPool) {
		p.initialSize = initial
		p.minSize = min
	}
}

// SocketPool hands out UDP sockets connected to DNS servers. Sockets are
// chosen at random from the reserve so the source port of a query cannot
// be predicted from the previous one. Freed sockets are closed, never
// reused.
type SocketPool struct {
	mu sync.Mutex

	policy      PoolingPolicy
	factory     socket.ClientSocketFactory
	randInt     socket.RandIntFunc
	bindType    socket.BindType
	initialSize int
	minSize     int

	initialized bool
	nameservers []netip.AddrPort
	source      log.Source
	pools       [][]socket.DatagramClientSocket
	logger      zerolog.Logger
}

// NewSocketPool creates an uninitialized pool
func NewSocketPool(policy PoolingPolicy, factory socket.ClientSocketFactory, randInt socket.RandIntFunc, opts ...PoolOption) *SocketPool {
	if randInt == nil {
		randInt = socket.DefaultRandInt
	}

	p := &SocketPool{
		policy:      policy,
		factory:     factory,
		randInt:     randInt,
		bindType:    defaultBindType,
		initialSize: defaultInitialPoolSize,
		minSize:     defaultMinPoolSize,
		logger:      log.WithComponent("dns.pool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize records the nameservers and, for the default policy, fills
// each reserve to its initial size. It may only be called once.
func (p *SocketPool) Initialize(nameservers []netip.AddrPort, source log.Source) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return ErrAlreadyInitialized
	}

	p.initialized = true
	p.nameservers = append([]netip.AddrPort(nil), nameservers...)
	p.source = source
	p.logger = source.Logger("dns.pool").With().Str("policy", p.policy.String()).Logger()

	if p.policy == PoolingDefault {
		p.pools = make([][]socket.DatagramClientSocket, len(nameservers))
		for i := range nameservers {
			p.fillPool(i, p.initialSize)
		}
	}

	p.logger.Debug().
		Int("servers", len(nameservers)).
		Int("initial_size", p.initialSize).
		Msg("socket pool initialized")
	return nil
}

// AllocateSocket returns a connected UDP socket for the server, or nil if
// none could be created
func (p *SocketPool) AllocateSocket(serverIndex int) socket.DatagramClientSocket {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkIndex(serverIndex); err != nil {
		p.logger.Warn().Err(err).Int("server_index", serverIndex).Msg("cannot allocate socket")
		return nil
	}

	if p.policy == PoolingNull {
		s := p.createConnectedSocket(serverIndex)
		if s == nil {
			metrics.DNSPoolExhausted.Inc()
			return nil
		}
		metrics.DNSPoolSocketsAllocated.WithLabelValues(p.policy.String()).Inc()
		return s
	}

	p.fillPool(serverIndex, p.minSize)

	pool := p.pools[serverIndex]
	if len(pool) == 0 {
		metrics.DNSPoolExhausted.Inc()
		p.logger.Warn().Int("server_index", serverIndex).Msg("no sockets available in pool")
		return nil
	}

	i := p.randInt(0, len(pool)-1)
	s := pool[i]
	last := len(pool) - 1
	pool[i] = pool[last]
	pool[last] = nil
	p.pools[serverIndex] = pool[:last]

	metrics.DNSPoolSocketsAllocated.WithLabelValues(p.policy.String()).Inc()
	return s
}

// FreeSocket discards a socket obtained from AllocateSocket
func (p *SocketPool) FreeSocket(serverIndex int, s socket.DatagramClientSocket) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		p.logger.Debug().Err(err).Int("server_index", serverIndex).Msg("failed to close socket")
	}
}

// CreateTCPSocket returns a fresh, unconnected TCP socket for the server
func (p *SocketPool) CreateTCPSocket(serverIndex int, source log.Source) socket.StreamSocket {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkIndex(serverIndex); err != nil {
		p.logger.Warn().Err(err).Int("server_index", serverIndex).Msg("cannot create tcp socket")
		return nil
	}
	return p.factory.CreateTransportClientSocket([]netip.AddrPort{p.nameservers[serverIndex]}, source)
}

// Available returns the number of sockets waiting in a server's reserve
func (p *SocketPool) Available(serverIndex int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if serverIndex < 0 || serverIndex >= len(p.pools) {
		return 0
	}
	return len(p.pools[serverIndex])
}

// NumServers returns the number of nameservers given to Initialize
func (p *SocketPool) NumServers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.nameservers)
}

// Nameserver returns the address of a server
func (p *SocketPool) Nameserver(serverIndex int) (netip.AddrPort, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkIndex(serverIndex); err != nil {
		return netip.AddrPort{}, err
	}
	return p.nameservers[serverIndex], nil
}

// Close closes every pooled socket
func (p *SocketPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for i, pool := range p.pools {
		for _, s := range pool {
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		p.pools[i] = nil
	}
	return errors.Join(errs...)
}

// UDPSocket implements Sockets
func (p *SocketPool) UDPSocket(serverIndex int) (socket.DatagramClientSocket, error) {
	s := p.AllocateSocket(serverIndex)
	if s == nil {
		return nil, fmt.Errorf("failed to allocate socket for server %d: %w", serverIndex, ErrNoSocket)
	}
	return s, nil
}

// ReleaseUDPSocket implements Sockets
func (p *SocketPool) ReleaseUDPSocket(serverIndex int, s socket.DatagramClientSocket) {
	p.FreeSocket(serverIndex, s)
}

func (p *SocketPool) checkIndex(serverIndex int) error {
	if !p.initialized {
		return ErrNotInitialized
	}
	if serverIndex < 0 || serverIndex >= len(p.nameservers) {
		return fmt.Errorf("%w: %d", ErrInvalidServerIndex, serverIndex)
	}
	return nil
}

// fillPool tops the reserve up to size. Each creation is tried once;
// failures are skipped so the reserve may end up smaller.
func (p *SocketPool) fillPool(serverIndex, size int) {
	attempts := size - len(p.pools[serverIndex])
	for i := 0; i < attempts; i++ {
		s := p.createConnectedSocket(serverIndex)
		if s == nil {
			continue
		}
		p.pools[serverIndex] = append(p.pools[serverIndex], s)
	}
}

func (p *SocketPool) createConnectedSocket(serverIndex int) socket.DatagramClientSocket {
	addr := p.nameservers[serverIndex]

	s, err := p.factory.CreateDatagramClientSocket(p.bindType, p.source)
	if err != nil {
		metrics.DNSPoolSocketFailures.WithLabelValues("create").Inc()
		p.logger.Debug().Err(err).Str("server", addr.String()).Msg("failed to create socket")
		return nil
	}

	if err := s.Connect(addr); err != nil {
		s.Close()
		metrics.DNSPoolSocketFailures.WithLabelValues("connect").Inc()
		p.logger.Debug().Err(err).Str("server", addr.String()).Msg("failed to connect socket")
		return nil
	}

	return s
}
