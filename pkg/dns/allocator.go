package dns

import (
	"fmt"
	"net/netip"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/socket"
	"github.com/rs/zerolog"
)

// SocketAllocator creates a fresh socket for every request, without any
// reserve
type SocketAllocator struct {
	factory     socket.ClientSocketFactory
	nameservers []netip.AddrPort
	bindType    socket.BindType
	source      log.Source
	logger      zerolog.Logger
}

// NewSocketAllocator creates an allocator for the given nameservers
func NewSocketAllocator(factory socket.ClientSocketFactory, nameservers []netip.AddrPort, source log.Source) *SocketAllocator {
	return &SocketAllocator{
		factory:     factory,
		nameservers: append([]netip.AddrPort(nil), nameservers...),
		bindType:    defaultBindType,
		source:      source,
		logger:      source.Logger("dns.allocator"),
	}
}

// CreateConnectedUDPSocket creates a UDP socket and connects it to the
// server. The connect error is returned as is.
func (a *SocketAllocator) CreateConnectedUDPSocket(serverIndex int) (socket.DatagramClientSocket, error) {
	if serverIndex < 0 || serverIndex >= len(a.nameservers) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidServerIndex, serverIndex)
	}
	addr := a.nameservers[serverIndex]

	s, err := a.factory.CreateDatagramClientSocket(a.bindType, a.source)
	if err != nil {
		return nil, fmt.Errorf("failed to create socket: %w", err)
	}

	if err := s.Connect(addr); err != nil {
		s.Close()
		a.logger.Debug().Err(err).Str("server", addr.String()).Msg("failed to connect socket")
		return nil, err
	}
	return s, nil
}

// CreateTCPSocket returns an unconnected TCP socket for the server
func (a *SocketAllocator) CreateTCPSocket(serverIndex int, source log.Source) socket.StreamSocket {
	if serverIndex < 0 || serverIndex >= len(a.nameservers) {
		return nil
	}
	return a.factory.CreateTransportClientSocket([]netip.AddrPort{a.nameservers[serverIndex]}, source)
}

// NumServers implements Sockets
func (a *SocketAllocator) NumServers() int {
	return len(a.nameservers)
}

// UDPSocket implements Sockets
func (a *SocketAllocator) UDPSocket(serverIndex int) (socket.DatagramClientSocket, error) {
	return a.CreateConnectedUDPSocket(serverIndex)
}

// ReleaseUDPSocket implements Sockets
func (a *SocketAllocator) ReleaseUDPSocket(serverIndex int, s socket.DatagramClientSocket) {
	if s != nil {
		s.Close()
	}
}
