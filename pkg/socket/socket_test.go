package socket

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorUnwrap(t *testing.T) {
	err := &Error{Op: "connect", Err: ErrAddressInvalid, Details: "bad"}

	assert.True(t, errors.Is(err, ErrAddressInvalid))
	assert.Equal(t, "connect: address invalid (bad)", err.Error())

	bare := &Error{Op: "sendto", Err: ErrFailed}
	assert.Equal(t, "sendto: socket operation failed", bare.Error())
}

func TestDefaultRandInt(t *testing.T) {
	for i := 0; i < 1000; i++ {
		v := DefaultRandInt(10, 12)
		assert.GreaterOrEqual(t, v, 10)
		assert.LessOrEqual(t, v, 12)
	}
	assert.Equal(t, 5, DefaultRandInt(5, 5))
}

func TestFamilyOf(t *testing.T) {
	assert.Equal(t, FamilyIPv4, FamilyOf(netip.MustParseAddr("127.0.0.1")))
	assert.Equal(t, FamilyIPv4, FamilyOf(netip.MustParseAddr("::ffff:10.0.0.1")))
	assert.Equal(t, FamilyIPv6, FamilyOf(netip.MustParseAddr("ff02::fb")))
}

func TestUDPClientSocketNotConnected(t *testing.T) {
	s := NewUDPClientSocket(DefaultBind, nil, log.Source{})

	_, err := s.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrSocketNotConnected)
	_, err = s.Write([]byte{1})
	assert.ErrorIs(t, err, ErrSocketNotConnected)
	_, err = s.LocalAddr()
	assert.ErrorIs(t, err, ErrSocketNotConnected)
	assert.NoError(t, s.Close())

	assert.ErrorIs(t, s.Connect(netip.AddrPort{}), ErrAddressInvalid)
}

func TestUDPClientSocketRoundTrip(t *testing.T) {
	server, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer server.Close()

	serverAddr := server.LocalAddr().(*net.UDPAddr).AddrPort()

	tests := []struct {
		name     string
		bindType BindType
	}{
		{name: "default bind", bindType: DefaultBind},
		{name: "random bind", bindType: RandomBind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewUDPClientSocket(tt.bindType, DefaultRandInt, log.NewSource("test"))
			require.NoError(t, s.Connect(serverAddr))
			defer s.Close()

			local, err := s.LocalAddr()
			require.NoError(t, err)
			assert.NotZero(t, local.Port())
			if tt.bindType == RandomBind {
				assert.GreaterOrEqual(t, int(local.Port()), minRandomPort)
			}

			_, err = s.Write([]byte("ping"))
			require.NoError(t, err)

			buf := make([]byte, 16)
			require.NoError(t, server.SetReadDeadline(time.Now().Add(2*time.Second)))
			n, from, err := server.ReadFromUDP(buf)
			require.NoError(t, err)
			assert.Equal(t, "ping", string(buf[:n]))

			_, err = server.WriteToUDP([]byte("pong"), from)
			require.NoError(t, err)

			require.NoError(t, s.SetDeadline(time.Now().Add(2*time.Second)))
			n, err = s.Read(buf)
			require.NoError(t, err)
			assert.Equal(t, "pong", string(buf[:n]))
		})
	}
}

func TestTCPClientSocketConnect(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Write([]byte("hi"))
			conn.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr).AddrPort()
	s := NewTCPClientSocket([]netip.AddrPort{addr}, log.Source{})
	assert.Nil(t, s.Conn())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Connect(ctx))
	defer s.Close()
	assert.NotNil(t, s.Conn())

	buf := make([]byte, 2)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(buf[:n]))
}

func TestTCPClientSocketNoAddresses(t *testing.T) {
	s := NewTCPClientSocket(nil, log.Source{})
	err := s.Connect(context.Background())
	assert.ErrorIs(t, err, ErrAddressInvalid)
}

func TestFactory(t *testing.T) {
	f := NewFactory(nil)

	udp, err := f.CreateDatagramClientSocket(RandomBind, log.Source{})
	require.NoError(t, err)
	assert.IsType(t, &UDPClientSocket{}, udp)

	tcp := f.CreateTransportClientSocket([]netip.AddrPort{netip.MustParseAddrPort("127.0.0.1:53")}, log.Source{})
	assert.IsType(t, &TCPClientSocket{}, tcp)
}
