package socket

import (
	"context"
	"math/rand/v2"
	"net"
	"net/netip"
	"time"

	"github.com/cuemby/burrow/pkg/log"
)

// AddressFamily selects IPv4 or IPv6
type AddressFamily int

const (
	FamilyIPv4 AddressFamily = iota
	FamilyIPv6
)

func (f AddressFamily) String() string {
	if f == FamilyIPv6 {
		return "ipv6"
	}
	return "ipv4"
}

// FamilyOf returns the family of addr
func FamilyOf(addr netip.Addr) AddressFamily {
	if addr.Is4() || addr.Is4In6() {
		return FamilyIPv4
	}
	return FamilyIPv6
}

// BindType selects how a datagram client socket picks its local port
type BindType int

const (
	// RandomBind binds to a random port chosen through RandIntFunc
	RandomBind BindType = iota
	// DefaultBind lets the operating system pick the port
	DefaultBind
)

func (b BindType) String() string {
	if b == DefaultBind {
		return "default"
	}
	return "random"
}

// RandIntFunc returns a uniformly distributed integer in [min, max]
type RandIntFunc func(min, max int) int

// DefaultRandInt draws from math/rand/v2
func DefaultRandInt(min, max int) int {
	if max <= min {
		return min
	}
	return min + rand.IntN(max-min+1)
}

// DatagramServerSocket is an unconnected UDP socket with asynchronous
// completion semantics. RecvFrom and SendTo either complete synchronously or
// return ErrIOPending and report the result through done later.
type DatagramServerSocket interface {
	RecvFrom(buf []byte, addr *netip.AddrPort, done func(n int, err error)) (int, error)
	SendTo(buf []byte, to netip.AddrPort, done func(err error)) error
	LocalAddr() (netip.AddrPort, error)
	Close() error
}

// DatagramClientSocket is a UDP socket connected to a single peer
type DatagramClientSocket interface {
	Connect(addr netip.AddrPort) error
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	SetDeadline(t time.Time) error
	LocalAddr() (netip.AddrPort, error)
	Close() error
}

// StreamSocket is a TCP socket that is connected explicitly by the caller
type StreamSocket interface {
	Connect(ctx context.Context) error
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	Close() error
	// Conn exposes the underlying connection once connected
	Conn() net.Conn
}

// ClientSocketFactory creates client sockets for DNS transports
type ClientSocketFactory interface {
	CreateDatagramClientSocket(bindType BindType, source log.Source) (DatagramClientSocket, error)
	CreateTransportClientSocket(addrs []netip.AddrPort, source log.Source) StreamSocket
}
