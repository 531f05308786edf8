package socket

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/rs/zerolog"
)

// TCPClientSocket is a StreamSocket that tries each address in turn
type TCPClientSocket struct {
	addrs  []netip.AddrPort
	dialer net.Dialer
	conn   net.Conn
	logger zerolog.Logger
}

// NewTCPClientSocket creates an unconnected TCP socket for addrs
func NewTCPClientSocket(addrs []netip.AddrPort, source log.Source) *TCPClientSocket {
	return &TCPClientSocket{
		addrs:  addrs,
		dialer: net.Dialer{Timeout: 5 * time.Second},
		logger: source.Logger("socket.tcp"),
	}
}

// Connect dials the addresses in order and keeps the first that succeeds
func (s *TCPClientSocket) Connect(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}
	if len(s.addrs) == 0 {
		return &Error{Op: "connect", Err: ErrAddressInvalid, Details: "no addresses"}
	}

	var lastErr error
	for _, addr := range s.addrs {
		conn, err := s.dialer.DialContext(ctx, "tcp", addr.String())
		if err != nil {
			s.logger.Debug().Err(err).Str("addr", addr.String()).Msg("tcp connect failed")
			lastErr = err
			continue
		}
		s.conn = conn
		return nil
	}

	return &Error{Op: "connect", Err: lastErr, Details: "all addresses failed"}
}

func (s *TCPClientSocket) Read(b []byte) (int, error) {
	if s.conn == nil {
		return 0, ErrSocketNotConnected
	}
	return s.conn.Read(b)
}

func (s *TCPClientSocket) Write(b []byte) (int, error) {
	if s.conn == nil {
		return 0, ErrSocketNotConnected
	}
	return s.conn.Write(b)
}

// Conn returns the connection, or nil before Connect succeeds
func (s *TCPClientSocket) Conn() net.Conn {
	return s.conn
}

func (s *TCPClientSocket) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
