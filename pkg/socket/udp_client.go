package socket

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"syscall"
	"time"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/rs/zerolog"
)

const (
	// Port range used for random binds
	minRandomPort = 1024
	maxRandomPort = 65535

	// Number of random ports tried before giving up
	maxBindAttempts = 10
)

// UDPClientSocket is a DatagramClientSocket backed by a connected *net.UDPConn
type UDPClientSocket struct {
	bindType BindType
	randInt  RandIntFunc
	conn     *net.UDPConn
	logger   zerolog.Logger
}

// NewUDPClientSocket creates an unconnected UDP client socket
func NewUDPClientSocket(bindType BindType, randInt RandIntFunc, source log.Source) *UDPClientSocket {
	if randInt == nil {
		randInt = DefaultRandInt
	}
	return &UDPClientSocket{
		bindType: bindType,
		randInt:  randInt,
		logger:   source.Logger("socket.udp"),
	}
}

// Connect binds the socket and connects it to addr
func (s *UDPClientSocket) Connect(addr netip.AddrPort) error {
	if s.conn != nil {
		return &Error{Op: "connect", Err: ErrFailed, Details: "already connected"}
	}
	if !addr.IsValid() {
		return &Error{Op: "connect", Err: ErrAddressInvalid, Details: addr.String()}
	}

	network := "udp4"
	if FamilyOf(addr.Addr()) == FamilyIPv6 {
		network = "udp6"
	}
	raddr := net.UDPAddrFromAddrPort(addr)

	if s.bindType == DefaultBind {
		conn, err := net.DialUDP(network, nil, raddr)
		if err != nil {
			return &Error{Op: "connect", Err: err, Details: addr.String()}
		}
		s.conn = conn
		return nil
	}

	var lastErr error
	for i := 0; i < maxBindAttempts; i++ {
		port := s.randInt(minRandomPort, maxRandomPort)
		conn, err := net.DialUDP(network, &net.UDPAddr{Port: port}, raddr)
		if err == nil {
			s.conn = conn
			return nil
		}
		lastErr = err
		if !errors.Is(err, syscall.EADDRINUSE) {
			break
		}
		s.logger.Debug().Int("port", port).Msg("random port in use, retrying")
	}

	return &Error{
		Op:      "connect",
		Err:     lastErr,
		Details: fmt.Sprintf("failed to bind random port for %s", addr),
	}
}

func (s *UDPClientSocket) Read(b []byte) (int, error) {
	if s.conn == nil {
		return 0, ErrSocketNotConnected
	}
	return s.conn.Read(b)
}

func (s *UDPClientSocket) Write(b []byte) (int, error) {
	if s.conn == nil {
		return 0, ErrSocketNotConnected
	}
	return s.conn.Write(b)
}

// SetDeadline sets the read and write deadline
func (s *UDPClientSocket) SetDeadline(t time.Time) error {
	if s.conn == nil {
		return ErrSocketNotConnected
	}
	return s.conn.SetDeadline(t)
}

// LocalAddr returns the bound local address
func (s *UDPClientSocket) LocalAddr() (netip.AddrPort, error) {
	if s.conn == nil {
		return netip.AddrPort{}, ErrSocketNotConnected
	}
	return localAddrPort(s.conn.LocalAddr())
}

// Close closes the socket. Closing an unconnected socket is a no-op.
func (s *UDPClientSocket) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func localAddrPort(addr net.Addr) (netip.AddrPort, error) {
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return netip.AddrPort{}, &Error{Op: "local address", Err: ErrAddressInvalid, Details: addr.String()}
	}
	ap := udpAddr.AddrPort()
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()), nil
}
