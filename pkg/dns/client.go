package dns

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/socket"
	"github.com/miekg/dns"
	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout bounds a single exchange with one server
	DefaultTimeout = 5 * time.Second

	maxUDPResponseSize = 65535
)

// Sockets supplies the sockets a Client exchanges over. SocketPool and
// SocketAllocator both implement it.
type Sockets interface {
	NumServers() int
	UDPSocket(serverIndex int) (socket.DatagramClientSocket, error)
	ReleaseUDPSocket(serverIndex int, s socket.DatagramClientSocket)
	CreateTCPSocket(serverIndex int, source log.Source) socket.StreamSocket
}

// ClientOption customizes a Client
type ClientOption func(*Client)

// WithTimeout sets the per-server exchange timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithTCPFallback enables or disables retrying truncated replies over TCP
func WithTCPFallback(enabled bool) ClientOption {
	return func(c *Client) {
		c.tcpFallback = enabled
	}
}

// WithForceTCP sends every query over TCP
func WithForceTCP(enabled bool) ClientOption {
	return func(c *Client) {
		c.forceTCP = enabled
	}
}

// Client performs unicast DNS exchanges over sockets from a Sockets source
type Client struct {
	sockets     Sockets
	source      log.Source
	timeout     time.Duration
	tcpFallback bool
	forceTCP    bool
	logger      zerolog.Logger
}

// NewClient creates a client drawing sockets from sockets
func NewClient(sockets Sockets, source log.Source, opts ...ClientOption) *Client {
	c := &Client{
		sockets:     sockets,
		source:      source,
		timeout:     DefaultTimeout,
		tcpFallback: true,
		logger:      source.Logger("dns.client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Exchange sends msg to one server and returns its reply. Truncated UDP
// replies are retried over TCP when fallback is enabled.
func (c *Client) Exchange(ctx context.Context, msg *dns.Msg, serverIndex int) (*dns.Msg, error) {
	timer := metrics.NewTimer()
	transport := "udp"
	defer func() {
		timer.ObserveDurationVec(metrics.DNSExchangeDuration, transport)
	}()

	if c.forceTCP {
		transport = "tcp"
		return c.exchangeTCP(ctx, msg, serverIndex)
	}

	resp, err := c.exchangeUDP(ctx, msg, serverIndex)
	if err != nil {
		metrics.DNSExchangesTotal.WithLabelValues("udp", "error").Inc()
		return nil, err
	}
	metrics.DNSExchangesTotal.WithLabelValues("udp", "success").Inc()

	if resp.Truncated && c.tcpFallback {
		c.logger.Debug().
			Int("server_index", serverIndex).
			Str("name", questionName(msg)).
			Msg("truncated reply, retrying over tcp")
		transport = "tcp"
		return c.exchangeTCP(ctx, msg, serverIndex)
	}
	return resp, nil
}

// Resolve asks each server in turn until one answers
func (c *Client) Resolve(ctx context.Context, name string, qtype uint16) (*dns.Msg, error) {
	if c.sockets.NumServers() == 0 {
		return nil, ErrNotInitialized
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	var lastErr error
	for i := 0; i < c.sockets.NumServers(); i++ {
		resp, err := c.Exchange(ctx, msg, i)
		if err != nil {
			c.logger.Debug().
				Err(err).
				Int("server_index", i).
				Str("name", name).
				Msg("failed to resolve with server")
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return resp, nil
	}

	return nil, fmt.Errorf("failed to resolve %s: %w", name, lastErr)
}

func (c *Client) exchangeUDP(ctx context.Context, msg *dns.Msg, serverIndex int) (*dns.Msg, error) {
	s, err := c.sockets.UDPSocket(serverIndex)
	if err != nil {
		return nil, err
	}
	defer c.sockets.ReleaseUDPSocket(serverIndex, s)

	if err := s.SetDeadline(c.deadline(ctx)); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}
	defer interruptOnCancel(ctx, s.SetDeadline)()

	packed, err := msg.Pack()
	if err != nil {
		return nil, fmt.Errorf("failed to pack query: %w", err)
	}
	if _, err := s.Write(packed); err != nil {
		return nil, exchangeError(ctx, "failed to send query", err)
	}

	buf := make([]byte, maxUDPResponseSize)
	mismatched := false
	for {
		n, err := s.Read(buf)
		if err != nil {
			if mismatched && ctx.Err() == nil && errors.Is(err, os.ErrDeadlineExceeded) {
				return nil, ErrIDMismatch
			}
			return nil, exchangeError(ctx, "failed to read reply", err)
		}

		resp := new(dns.Msg)
		if err := resp.Unpack(buf[:n]); err != nil {
			c.logger.Debug().Err(err).Int("server_index", serverIndex).Msg("discarding unreadable reply")
			continue
		}
		if resp.Id != msg.Id {
			mismatched = true
			c.logger.Debug().
				Uint16("want", msg.Id).
				Uint16("got", resp.Id).
				Msg("discarding reply with foreign id")
			continue
		}
		return resp, nil
	}
}

func (c *Client) exchangeTCP(ctx context.Context, msg *dns.Msg, serverIndex int) (*dns.Msg, error) {
	s := c.sockets.CreateTCPSocket(serverIndex, c.source)
	if s == nil {
		metrics.DNSExchangesTotal.WithLabelValues("tcp", "error").Inc()
		return nil, fmt.Errorf("failed to create tcp socket for server %d: %w", serverIndex, ErrNoSocket)
	}
	defer s.Close()

	if err := s.Connect(ctx); err != nil {
		metrics.DNSExchangesTotal.WithLabelValues("tcp", "error").Inc()
		return nil, fmt.Errorf("failed to connect tcp socket: %w", err)
	}

	co := &dns.Conn{Conn: s.Conn()}
	if err := co.SetDeadline(c.deadline(ctx)); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}
	defer interruptOnCancel(ctx, co.SetDeadline)()

	if err := co.WriteMsg(msg); err != nil {
		metrics.DNSExchangesTotal.WithLabelValues("tcp", "error").Inc()
		return nil, exchangeError(ctx, "failed to send query over tcp", err)
	}

	resp, err := co.ReadMsg()
	if err != nil {
		metrics.DNSExchangesTotal.WithLabelValues("tcp", "error").Inc()
		return nil, exchangeError(ctx, "failed to read tcp reply", err)
	}
	if resp.Id != msg.Id {
		metrics.DNSExchangesTotal.WithLabelValues("tcp", "error").Inc()
		return nil, ErrIDMismatch
	}

	metrics.DNSExchangesTotal.WithLabelValues("tcp", "success").Inc()
	return resp, nil
}

func (c *Client) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

// interruptOnCancel moves the deadline into the past when ctx is done so a
// blocked read returns. The returned func must run before the socket is
// reused.
func interruptOnCancel(ctx context.Context, setDeadline func(time.Time) error) func() {
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		_ = setDeadline(time.Unix(1, 0))
	})
	return func() {
		if !stop() {
			<-fired
		}
	}
}

// exchangeError prefers the context error when ctx ended the operation
func exchangeError(ctx context.Context, msg string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", msg, ctxErr)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func questionName(msg *dns.Msg) string {
	if len(msg.Question) == 0 {
		return ""
	}
	return msg.Question[0].Name
}
