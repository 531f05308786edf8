package mdns

import (
	"net"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/sequence"
	"github.com/cuemby/burrow/pkg/socket"
	"github.com/rs/zerolog"
)

// SocketFactoryConfig selects the families and interfaces to listen on.
// An empty Interfaces list means every multicast-capable interface.
type SocketFactoryConfig struct {
	IPv4       bool
	IPv6       bool
	Interfaces []string
}

type multicastSocketFactory struct {
	runner sequence.Runner
	cfg    SocketFactoryConfig
	source log.Source
	logger zerolog.Logger
}

// NewSocketFactory returns a factory that opens one multicast socket per
// interface and enabled family, joined to the mDNS group
func NewSocketFactory(runner sequence.Runner, cfg SocketFactoryConfig, source log.Source) SocketFactory {
	return &multicastSocketFactory{
		runner: runner,
		cfg:    cfg,
		source: source,
		logger: source.Logger("mdns.sockets"),
	}
}

// CreateSockets opens what it can; failures are logged and skipped
func (f *multicastSocketFactory) CreateSockets() []socket.DatagramServerSocket {
	ifaces, err := socket.ListMulticastInterfaces()
	if err != nil {
		f.logger.Warn().Err(err).Msg("Failed to list interfaces")
		return nil
	}

	var sockets []socket.DatagramServerSocket
	for i := range ifaces {
		ifi := ifaces[i]
		if !f.wantInterface(ifi) {
			continue
		}
		if f.cfg.IPv4 && socket.HasFamily(ifi, socket.FamilyIPv4) {
			if s := f.open(socket.FamilyIPv4, &ifi); s != nil {
				sockets = append(sockets, s)
			}
		}
		if f.cfg.IPv6 && socket.HasFamily(ifi, socket.FamilyIPv6) {
			if s := f.open(socket.FamilyIPv6, &ifi); s != nil {
				sockets = append(sockets, s)
			}
		}
	}

	f.logger.Debug().Int("sockets", len(sockets)).Msg("Created mDNS sockets")
	return sockets
}

func (f *multicastSocketFactory) open(family socket.AddressFamily, ifi *net.Interface) socket.DatagramServerSocket {
	group := MulticastAddrIPv4
	if family == socket.FamilyIPv6 {
		group = MulticastAddrIPv6
	}

	s, err := socket.ListenMulticast(f.runner, family, ifi, group, f.source)
	if err != nil {
		f.logger.Debug().
			Err(err).
			Str("interface", ifi.Name).
			Str("family", family.String()).
			Msg("Failed to open mDNS socket")
		return nil
	}
	return s
}

func (f *multicastSocketFactory) wantInterface(ifi net.Interface) bool {
	if len(f.cfg.Interfaces) == 0 {
		return true
	}
	for _, name := range f.cfg.Interfaces {
		if name == ifi.Name {
			return true
		}
	}
	return false
}
