package mdns

import (
	"errors"
	"testing"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/sequence"
	"github.com/cuemby/burrow/pkg/socket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type connectionRecorder struct {
	packets [][]byte
	errs    []error
}

func (r *connectionRecorder) HandlePacket(packet []byte) {
	data := make([]byte, len(packet))
	copy(data, packet)
	r.packets = append(r.packets, data)
}

func (r *connectionRecorder) OnConnectionError(err error) {
	r.errs = append(r.errs, err)
}

type connectionEnv struct {
	runner   *sequence.Manual
	conn     *Connection
	recorder *connectionRecorder
	v4       *fakeSocket
	v6       *fakeSocket
}

func newConnectionEnv() *connectionEnv {
	runner := sequence.NewManual(testStart)
	recorder := &connectionRecorder{}
	return &connectionEnv{
		runner:   runner,
		conn:     NewConnection(runner, recorder, log.Source{}),
		recorder: recorder,
		v4:       newFakeSocket("0.0.0.0:5353"),
		v6:       newFakeSocket("[::]:5353"),
	}
}

func (e *connectionEnv) init() error {
	return e.conn.Init(&fakeSocketFactory{sockets: []*fakeSocket{e.v4, e.v6}})
}

func TestConnectionReceiveSynchronous(t *testing.T) {
	env := newConnectionEnv()
	env.v4.queued = [][]byte{[]byte("first"), []byte("second")}
	env.v6.queued = [][]byte{[]byte("third")}

	require.NoError(t, env.init())

	assert.Equal(t, [][]byte{[]byte("first"), []byte("second"), []byte("third")}, env.recorder.packets)
	assert.NotNil(t, env.v4.pendingDone, "receive must be pending after queued packets")
	assert.NotNil(t, env.v6.pendingDone)
}

func TestConnectionReceiveAsynchronous(t *testing.T) {
	env := newConnectionEnv()
	require.NoError(t, env.init())
	assert.Empty(t, env.recorder.packets)

	env.v6.deliver([]byte("async"))
	assert.Equal(t, [][]byte{[]byte("async")}, env.recorder.packets)

	// the loop resumes and picks up queued packets
	env.v6.queued = [][]byte{[]byte("queued")}
	env.v6.deliver([]byte("next"))
	assert.Equal(t, [][]byte{[]byte("async"), []byte("next"), []byte("queued")}, env.recorder.packets)
}

func TestConnectionInit(t *testing.T) {
	errRecv := &socket.Error{Op: "recvfrom", Err: socket.ErrFailed}

	tests := []struct {
		name      string
		v4Err     error
		v6Err     error
		noSockets bool
		wantErr   error
		wantNum   int
	}{
		{name: "both start", wantNum: 2},
		{name: "one fails", v4Err: errRecv, wantNum: 1},
		{name: "all fail", v4Err: errRecv, v6Err: errRecv, wantErr: socket.ErrFailed},
		{name: "no sockets", noSockets: true, wantErr: ErrNoSockets},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newConnectionEnv()
			env.v4.recvErr = tt.v4Err
			env.v6.recvErr = tt.v6Err

			var err error
			if tt.noSockets {
				err = env.conn.Init(&fakeSocketFactory{})
			} else {
				err = env.init()
			}

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNum, env.conn.NumSockets())
			assert.Equal(t, tt.v4Err != nil, env.v4.closed, "failed sockets are closed")
		})
	}
}

func TestConnectionErrorReportedOnce(t *testing.T) {
	env := newConnectionEnv()
	require.NoError(t, env.init())

	errRead := errors.New("read failed")
	env.v4.fail(errRead)
	assert.Empty(t, env.recorder.errs, "errors are posted, not delivered inline")

	env.runner.RunUntilIdle()
	require.Len(t, env.recorder.errs, 1)
	assert.ErrorIs(t, env.recorder.errs[0], errRead)

	env.v6.fail(errors.New("second failure"))
	env.runner.RunUntilIdle()
	assert.Len(t, env.recorder.errs, 1)
}

func TestConnectionErrorAfterClose(t *testing.T) {
	env := newConnectionEnv()
	require.NoError(t, env.init())

	env.v4.fail(errors.New("read failed"))
	env.conn.Close()
	env.runner.RunUntilIdle()

	assert.Empty(t, env.recorder.errs)
	assert.True(t, env.v4.closed)
	assert.True(t, env.v6.closed)
}

func TestConnectionSend(t *testing.T) {
	env := newConnectionEnv()
	require.NoError(t, env.init())

	env.conn.Send([]byte("query"))

	require.Len(t, env.v4.sent, 1)
	require.Len(t, env.v6.sent, 1)
	assert.Equal(t, MulticastAddrIPv4, env.v4.sent[0].to)
	assert.Equal(t, MulticastAddrIPv6, env.v6.sent[0].to)
	assert.Equal(t, []byte("query"), env.v4.sent[0].data)
}

func TestConnectionSendError(t *testing.T) {
	env := newConnectionEnv()
	require.NoError(t, env.init())

	errSend := errors.New("network unreachable")
	env.v4.sendErr = errSend
	env.conn.Send([]byte("query"))
	assert.Empty(t, env.recorder.errs)

	env.runner.RunUntilIdle()
	require.Len(t, env.recorder.errs, 1)
	assert.ErrorIs(t, env.recorder.errs[0], errSend)
}

func TestConnectionSendQueued(t *testing.T) {
	env := newConnectionEnv()
	require.NoError(t, env.init())
	env.v4.sendAsync = true

	env.conn.Send([]byte("one"))
	env.conn.Send([]byte("two"))
	env.conn.Send([]byte("three"))
	require.Len(t, env.v4.sent, 1, "later sends wait for the pending one")
	assert.Len(t, env.v6.sent, 3)

	env.v4.completeSend(nil)
	require.Len(t, env.v4.sent, 2)
	assert.Equal(t, []byte("two"), env.v4.sent[1].data)

	env.v4.sendAsync = false
	env.v4.completeSend(nil)
	require.Len(t, env.v4.sent, 3)
	assert.Equal(t, []byte("three"), env.v4.sent[2].data)
	assert.Empty(t, env.recorder.errs)
}
