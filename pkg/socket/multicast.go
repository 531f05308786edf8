package socket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/sequence"
	"github.com/rs/zerolog"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	// Datagrams received while nobody is waiting are held up to this count
	maxQueuedDatagrams = 64

	// Size of the scratch buffer used by the reader goroutine
	readBufferSize = 65535

	multicastTTL = 255
)

type datagram struct {
	data []byte
	from netip.AddrPort
}

type pendingRecv struct {
	buf  []byte
	addr *netip.AddrPort
	done func(n int, err error)
}

// MulticastSocket is a DatagramServerSocket joined to a multicast group on
// one interface. A background goroutine performs blocking reads; results
// are handed to the caller either synchronously from the queue or through
// a completion posted onto the runner.
type MulticastSocket struct {
	runner sequence.Runner
	family AddressFamily
	conn   net.PacketConn
	p4     *ipv4.PacketConn
	p6     *ipv6.PacketConn
	logger zerolog.Logger

	startReader sync.Once

	mu      sync.Mutex
	queue   []datagram
	pending *pendingRecv
	readErr error
	closed  bool
}

// ListenMulticast binds the wildcard address of family on group's port with
// address reuse, joins group on ifi and enables multicast loopback.
func ListenMulticast(runner sequence.Runner, family AddressFamily, ifi *net.Interface, group netip.AddrPort, source log.Source) (*MulticastSocket, error) {
	network := "udp4"
	bind := fmt.Sprintf("0.0.0.0:%d", group.Port())
	if family == FamilyIPv6 {
		network = "udp6"
		bind = fmt.Sprintf("[::]:%d", group.Port())
	}

	lc := net.ListenConfig{Control: reuseControl}
	conn, err := lc.ListenPacket(context.Background(), network, bind)
	if err != nil {
		return nil, &Error{Op: "listen multicast", Err: err, Details: bind}
	}

	s := &MulticastSocket{
		runner: runner,
		family: family,
		conn:   conn,
		logger: source.Logger("socket.multicast").With().Str("family", family.String()).Logger(),
	}
	if ifi != nil {
		s.logger = s.logger.With().Str("interface", ifi.Name).Logger()
	}

	groupAddr := &net.UDPAddr{IP: net.IP(group.Addr().AsSlice())}
	if family == FamilyIPv6 {
		s.p6 = ipv6.NewPacketConn(conn)
		err = s.p6.JoinGroup(ifi, groupAddr)
		if err == nil && ifi != nil {
			err = s.p6.SetMulticastInterface(ifi)
		}
		if err == nil {
			err = s.p6.SetMulticastLoopback(true)
		}
		if err == nil {
			err = s.p6.SetMulticastHopLimit(multicastTTL)
		}
	} else {
		s.p4 = ipv4.NewPacketConn(conn)
		err = s.p4.JoinGroup(ifi, groupAddr)
		if err == nil && ifi != nil {
			err = s.p4.SetMulticastInterface(ifi)
		}
		if err == nil {
			err = s.p4.SetMulticastLoopback(true)
		}
		if err == nil {
			err = s.p4.SetMulticastTTL(multicastTTL)
		}
	}
	if err != nil {
		conn.Close()
		return nil, &Error{Op: "join multicast group", Err: err, Details: group.String()}
	}

	return s, nil
}

// RecvFrom returns a queued datagram immediately, or registers buf and done
// and returns ErrIOPending. Only one receive may be outstanding.
func (s *MulticastSocket) RecvFrom(buf []byte, addr *netip.AddrPort, done func(n int, err error)) (int, error) {
	s.startReader.Do(func() { go s.readLoop() })

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, net.ErrClosed
	}
	if len(s.queue) > 0 {
		d := s.queue[0]
		s.queue = s.queue[1:]
		if addr != nil {
			*addr = d.from
		}
		return copy(buf, d.data), nil
	}
	if s.readErr != nil {
		return 0, s.readErr
	}
	if s.pending != nil {
		return 0, &Error{Op: "recvfrom", Err: ErrFailed, Details: "receive already pending"}
	}

	s.pending = &pendingRecv{buf: buf, addr: addr, done: done}
	return 0, ErrIOPending
}

// SendTo writes buf to the given destination. It always completes
// synchronously.
func (s *MulticastSocket) SendTo(buf []byte, to netip.AddrPort, done func(err error)) error {
	_, err := s.conn.WriteTo(buf, net.UDPAddrFromAddrPort(to))
	if err != nil {
		return &Error{Op: "sendto", Err: err, Details: to.String()}
	}
	return nil
}

// LocalAddr returns the bound local address
func (s *MulticastSocket) LocalAddr() (netip.AddrPort, error) {
	return localAddrPort(s.conn.LocalAddr())
}

// Close closes the socket. A pending receive is abandoned without callback.
func (s *MulticastSocket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.pending = nil
	s.queue = nil
	s.mu.Unlock()

	return s.conn.Close()
}

func (s *MulticastSocket) readLoop() {
	scratch := make([]byte, readBufferSize)
	for {
		n, from, err := s.conn.ReadFrom(scratch)

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}

		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.mu.Unlock()
				return
			}
			s.logger.Debug().Err(err).Msg("multicast read failed")
			readErr := &Error{Op: "recvfrom", Err: err}
			if p := s.pending; p != nil {
				s.pending = nil
				s.mu.Unlock()
				s.runner.Post(func() { p.done(0, readErr) })
				return
			}
			s.readErr = readErr
			s.mu.Unlock()
			return
		}

		var src netip.AddrPort
		if udpAddr, ok := from.(*net.UDPAddr); ok {
			ap := udpAddr.AddrPort()
			src = netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
		}

		if p := s.pending; p != nil {
			s.pending = nil
			copied := copy(p.buf, scratch[:n])
			if p.addr != nil {
				*p.addr = src
			}
			s.mu.Unlock()
			s.runner.Post(func() { p.done(copied, nil) })
			continue
		}

		if len(s.queue) >= maxQueuedDatagrams {
			s.queue = s.queue[1:]
		}
		data := make([]byte, n)
		copy(data, scratch[:n])
		s.queue = append(s.queue, datagram{data: data, from: src})
		s.mu.Unlock()
	}
}
