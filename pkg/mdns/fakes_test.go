package mdns

import (
	"encoding/binary"
	"net"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/cuemby/burrow/pkg/sequence"
	"github.com/cuemby/burrow/pkg/socket"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type sentPacket struct {
	data []byte
	to   netip.AddrPort
}

// fakeSocket is a DatagramServerSocket driven by the test. Packets in
// queued are returned synchronously; deliver completes a pending receive.
type fakeSocket struct {
	local netip.AddrPort

	queued      [][]byte
	recvErr     error
	pendingBuf  []byte
	pendingDone func(int, error)

	sent      []sentPacket
	sendErr   error
	sendAsync bool
	sendDone  func(error)

	closed bool
}

func newFakeSocket(local string) *fakeSocket {
	return &fakeSocket{local: netip.MustParseAddrPort(local)}
}

func (s *fakeSocket) RecvFrom(buf []byte, addr *netip.AddrPort, done func(int, error)) (int, error) {
	if s.closed {
		return 0, net.ErrClosed
	}
	if s.recvErr != nil {
		return 0, s.recvErr
	}
	if len(s.queued) > 0 {
		packet := s.queued[0]
		s.queued = s.queued[1:]
		return copy(buf, packet), nil
	}
	s.pendingBuf = buf
	s.pendingDone = done
	return 0, socket.ErrIOPending
}

func (s *fakeSocket) SendTo(buf []byte, to netip.AddrPort, done func(error)) error {
	data := make([]byte, len(buf))
	copy(data, buf)
	s.sent = append(s.sent, sentPacket{data: data, to: to})
	if s.sendAsync {
		s.sendDone = done
		return socket.ErrIOPending
	}
	return s.sendErr
}

func (s *fakeSocket) LocalAddr() (netip.AddrPort, error) {
	return s.local, nil
}

func (s *fakeSocket) Close() error {
	s.closed = true
	return nil
}

// deliver completes the pending receive with packet
func (s *fakeSocket) deliver(packet []byte) {
	done := s.pendingDone
	s.pendingDone = nil
	n := copy(s.pendingBuf, packet)
	done(n, nil)
}

// fail completes the pending receive with err
func (s *fakeSocket) fail(err error) {
	done := s.pendingDone
	s.pendingDone = nil
	done(0, err)
}

// completeSend finishes an asynchronous send
func (s *fakeSocket) completeSend(err error) {
	done := s.sendDone
	s.sendDone = nil
	done(err)
}

type fakeSocketFactory struct {
	sockets []*fakeSocket
}

func (f *fakeSocketFactory) CreateSockets() []socket.DatagramServerSocket {
	result := make([]socket.DatagramServerSocket, 0, len(f.sockets))
	for _, s := range f.sockets {
		result = append(result, s)
	}
	return result
}

// testEnv is a listening client on a manual runner with one IPv4 and one
// IPv6 fake socket
type testEnv struct {
	runner *sequence.Manual
	client *Client
	v4     *fakeSocket
	v6     *fakeSocket
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	env := &testEnv{
		runner: sequence.NewManual(testStart),
		v4:     newFakeSocket("0.0.0.0:5353"),
		v6:     newFakeSocket("[::]:5353"),
	}
	env.client = NewClient(env.runner, opts...)
	require.NoError(t, env.client.StartListening(&fakeSocketFactory{sockets: []*fakeSocket{env.v4, env.v6}}))
	return env
}

// receive delivers packet on the IPv4 socket and runs posted tasks
func (e *testEnv) receive(packet []byte) {
	e.v4.deliver(packet)
	e.runner.RunUntilIdle()
}

func (e *testEnv) sentCount() int {
	return len(e.v4.sent) + len(e.v6.sent)
}

// recordingDelegate records everything a listener reports
type recordingDelegate struct {
	updates  []UpdateType
	records  []*Record
	nsec     []uint16
	purged   int
	onUpdate func(UpdateType, *Record)
}

func (d *recordingDelegate) OnRecordUpdate(update UpdateType, rec *Record) {
	d.updates = append(d.updates, update)
	d.records = append(d.records, rec)
	if d.onUpdate != nil {
		d.onUpdate(update, rec)
	}
}

func (d *recordingDelegate) OnNsecRecord(name string, rrtype uint16) {
	d.nsec = append(d.nsec, rrtype)
}

func (d *recordingDelegate) OnCachePurged() {
	d.purged++
}

func (d *recordingDelegate) count(update UpdateType) int {
	n := 0
	for _, u := range d.updates {
		if u == update {
			n++
		}
	}
	return n
}

// transactionResult is one callback of a transaction
type transactionResult struct {
	result TransactionResult
	rec    *Record
}

type transactionRecorder struct {
	results []transactionResult
}

func (r *transactionRecorder) callback(result TransactionResult, rec *Record) {
	r.results = append(r.results, transactionResult{result: result, rec: rec})
}

func (r *transactionRecorder) kinds() []TransactionResult {
	kinds := make([]TransactionResult, 0, len(r.results))
	for _, res := range r.results {
		kinds = append(kinds, res.result)
	}
	return kinds
}

func mustRR(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	require.NoError(t, err)
	return rr
}

// response packs answers into an mDNS response
func response(t *testing.T, answers ...string) []byte {
	t.Helper()

	msg := new(dns.Msg)
	msg.Response = true
	msg.Authoritative = true
	for _, s := range answers {
		msg.Answer = append(msg.Answer, mustRR(t, s))
	}
	packet, err := msg.Pack()
	require.NoError(t, err)
	return packet
}

// wireName encodes name without compression
func wireName(name string) []byte {
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return []byte{0}
	}
	var b []byte
	for _, label := range strings.Split(name, ".") {
		b = append(b, byte(len(label)))
		b = append(b, label...)
	}
	return append(b, 0)
}

// wireRecord encodes a resource record with an explicit rdlength, which
// may disagree with len(rdata)
func wireRecord(name string, rrtype, class uint16, ttl uint32, rdlength uint16, rdata []byte) []byte {
	b := wireName(name)
	b = binary.BigEndian.AppendUint16(b, rrtype)
	b = binary.BigEndian.AppendUint16(b, class)
	b = binary.BigEndian.AppendUint32(b, ttl)
	b = binary.BigEndian.AppendUint16(b, rdlength)
	return append(b, rdata...)
}

func wireA(name string, ttl uint32, ip [4]byte) []byte {
	return wireRecord(name, dns.TypeA, dns.ClassINET, ttl, 4, ip[:])
}

// wirePacket assembles a packet from pre-encoded sections
func wirePacket(flags uint16, questions, answers, authority, additional [][]byte) []byte {
	b := make([]byte, 0, 512)
	b = binary.BigEndian.AppendUint16(b, 0)
	b = binary.BigEndian.AppendUint16(b, flags)
	b = binary.BigEndian.AppendUint16(b, uint16(len(questions)))
	b = binary.BigEndian.AppendUint16(b, uint16(len(answers)))
	b = binary.BigEndian.AppendUint16(b, uint16(len(authority)))
	b = binary.BigEndian.AppendUint16(b, uint16(len(additional)))
	for _, section := range [][][]byte{questions, answers, authority, additional} {
		for _, part := range section {
			b = append(b, part...)
		}
	}
	return b
}

func wireQuestion(name string, rrtype uint16) []byte {
	b := wireName(name)
	b = binary.BigEndian.AppendUint16(b, rrtype)
	return binary.BigEndian.AppendUint16(b, dns.ClassINET)
}
