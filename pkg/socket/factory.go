package socket

import (
	"net/netip"

	"github.com/cuemby/burrow/pkg/log"
)

// Factory is the ClientSocketFactory used outside of tests
type Factory struct {
	RandInt RandIntFunc
}

// NewFactory creates a factory drawing random ports from randInt
func NewFactory(randInt RandIntFunc) *Factory {
	if randInt == nil {
		randInt = DefaultRandInt
	}
	return &Factory{RandInt: randInt}
}

// CreateDatagramClientSocket returns an unconnected UDP client socket
func (f *Factory) CreateDatagramClientSocket(bindType BindType, source log.Source) (DatagramClientSocket, error) {
	return NewUDPClientSocket(bindType, f.RandInt, source), nil
}

// CreateTransportClientSocket returns an unconnected TCP socket
func (f *Factory) CreateTransportClientSocket(addrs []netip.AddrPort, source log.Source) StreamSocket {
	return NewTCPClientSocket(addrs, source)
}
