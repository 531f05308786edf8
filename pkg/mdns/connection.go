package mdns

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/sequence"
	"github.com/cuemby/burrow/pkg/socket"
	"github.com/rs/zerolog"
)

// ErrNoSockets is returned by Init when the factory produced no sockets
var ErrNoSockets = errors.New("no mDNS sockets available")

// ConnectionDelegate receives every datagram read by a Connection and its
// fatal error
type ConnectionDelegate interface {
	HandlePacket(packet []byte)
	OnConnectionError(err error)
}

// SocketFactory creates the server sockets a Connection listens on,
// typically one per interface and address family
type SocketFactory interface {
	CreateSockets() []socket.DatagramServerSocket
}

// Connection multiplexes a set of multicast sockets. Received datagrams go
// to the delegate; sends go out on every socket.
type Connection struct {
	runner   sequence.Runner
	delegate ConnectionDelegate
	handlers []*socketHandler
	logger   zerolog.Logger

	closed        bool
	errorReported bool
	cancel        sequence.Cancelable
}

// NewConnection creates an idle connection
func NewConnection(runner sequence.Runner, delegate ConnectionDelegate, source log.Source) *Connection {
	return &Connection{
		runner:   runner,
		delegate: delegate,
		logger:   source.Logger("mdns.connection"),
	}
}

// Init starts a receive loop on every socket the factory provides. Sockets
// that fail to start are discarded. It fails only when no socket started,
// returning the last failure.
func (c *Connection) Init(factory SocketFactory) error {
	sockets := factory.CreateSockets()

	lastErr := ErrNoSockets
	for i, s := range sockets {
		h := &socketHandler{
			socket: s,
			conn:   c,
			id:     i,
			buf:    make([]byte, ReceiveBufferSize),
		}
		if err := h.start(); err != nil {
			c.logger.Warn().Err(err).Int("socket", i).Msg("Failed to start mDNS socket")
			h.close()
			lastErr = err
			continue
		}
		c.handlers = append(c.handlers, h)
	}

	metrics.MDNSSocketsActive.Set(float64(len(c.handlers)))
	if len(c.handlers) == 0 {
		return lastErr
	}

	c.logger.Debug().Int("sockets", len(c.handlers)).Msg("mDNS connection started")
	return nil
}

// Send writes packet to the multicast group on every socket
func (c *Connection) Send(packet []byte) {
	for _, h := range c.handlers {
		h.send(packet)
	}
}

// NumSockets returns the number of sockets that started successfully
func (c *Connection) NumSockets() int {
	return len(c.handlers)
}

// Close stops every socket. Pending completions and posted errors are
// dropped.
func (c *Connection) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.cancel.Cancel()
	for _, h := range c.handlers {
		h.close()
	}
	c.handlers = nil
	metrics.MDNSSocketsActive.Set(0)
}

func (c *Connection) onDatagramReceived(packet []byte) {
	if c.closed {
		return
	}
	c.delegate.HandlePacket(packet)
}

// postError reports err to the delegate on a later task, so the delegate
// may close the connection from its handler. Only the first error is
// reported.
func (c *Connection) postError(h *socketHandler, err error) {
	c.logger.Debug().Err(err).Int("socket", h.id).Msg("mDNS socket error")
	c.runner.Post(c.cancel.Wrap(func() {
		if c.closed || c.errorReported {
			return
		}
		c.errorReported = true
		c.delegate.OnConnectionError(err)
	}))
}

type socketHandler struct {
	socket        socket.DatagramServerSocket
	conn          *Connection
	id            int
	buf           []byte
	recvAddr      netip.AddrPort
	multicastAddr netip.AddrPort

	sendInProgress bool
	sendQueue      [][]byte
	closed         bool
}

func (h *socketHandler) start() error {
	local, err := h.socket.LocalAddr()
	if err != nil {
		return fmt.Errorf("failed to get local address: %w", err)
	}

	h.multicastAddr = MulticastAddrIPv4
	if socket.FamilyOf(local.Addr()) == socket.FamilyIPv6 {
		h.multicastAddr = MulticastAddrIPv6
	}

	return h.doLoop()
}

// doLoop delivers every datagram available right away and returns once a
// receive is pending. Any other receive error is returned.
func (h *socketHandler) doLoop() error {
	for !h.closed && !h.conn.closed {
		n, err := h.socket.RecvFrom(h.buf, &h.recvAddr, h.onReceive)
		if errors.Is(err, socket.ErrIOPending) {
			return nil
		}
		if err != nil {
			return err
		}
		if n > 0 {
			h.conn.onDatagramReceived(h.buf[:n])
		}
	}
	return nil
}

func (h *socketHandler) onReceive(n int, err error) {
	if h.closed || h.conn.closed {
		return
	}
	if err == nil {
		if n > 0 {
			h.conn.onDatagramReceived(h.buf[:n])
		}
		err = h.doLoop()
	}
	if err != nil {
		h.conn.postError(h, err)
	}
}

func (h *socketHandler) send(packet []byte) {
	if h.closed {
		return
	}
	if h.sendInProgress {
		h.sendQueue = append(h.sendQueue, packet)
		return
	}

	err := h.socket.SendTo(packet, h.multicastAddr, h.onSendDone)
	if errors.Is(err, socket.ErrIOPending) {
		h.sendInProgress = true
		return
	}
	if err != nil {
		h.conn.postError(h, err)
	}
}

func (h *socketHandler) onSendDone(err error) {
	if h.closed {
		return
	}
	h.sendInProgress = false
	if err != nil {
		h.conn.postError(h, err)
	}
	for !h.sendInProgress && len(h.sendQueue) > 0 {
		packet := h.sendQueue[0]
		h.sendQueue = h.sendQueue[1:]
		h.send(packet)
	}
}

func (h *socketHandler) close() {
	if h.closed {
		return
	}
	h.closed = true
	h.sendQueue = nil
	h.socket.Close()
}
