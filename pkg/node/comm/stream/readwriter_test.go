package stream

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/ftl.go/pkg/framework"
	"github.com/robotalks/ftl.go/pkg/node/comm"
	"github.com/robotalks/ftl.go/pkg/node/msgs"
)

func frame(size uint32, payload []byte) []byte {
	buf := make([]byte, 4, 4+len(payload))
	binary.LittleEndian.PutUint32(buf, size)
	return append(buf, payload...)
}

func TestReadPacket(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
		pkt  []byte
		err  error
	}{
		{"packet", frame(3, []byte{1, 2, 3}), []byte{1, 2, 3}, nil},
		{"empty packet", frame(0, nil), []byte{}, nil},
		{"no data", nil, nil, io.EOF},
		{"short prefix", []byte{3, 0}, nil, io.ErrUnexpectedEOF},
		{"short payload", frame(5, []byte{1, 2}), nil, io.ErrUnexpectedEOF},
		{"oversized", frame(comm.MaxPacketSize+1, make([]byte, comm.MaxPacketSize+1)), nil, comm.ErrPacketTooLarge},
		{"oversized truncated", frame(0xffffffff, []byte{1}), nil, io.ErrUnexpectedEOF},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rw := New(bytes.NewBuffer(tc.data))
			pkt, err := rw.ReadPacket()
			require.Equal(t, tc.err, err)
			require.Equal(t, tc.pkt, pkt)
		})
	}
}

func TestReadPacketAfterOversized(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frame(comm.MaxPacketSize+1, make([]byte, comm.MaxPacketSize+1)))
	buf.Write(frame(2, []byte{7, 8}))
	rw := New(&buf)
	_, err := rw.ReadPacket()
	require.Equal(t, comm.ErrPacketTooLarge, err)
	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{7, 8}, pkt)
}

func TestWritePacket(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.NoError(t, rw.WritePacket([]byte{0xaa, 0xbb}))
	require.NoError(t, rw.WritePacket(nil))
	require.Equal(t, []byte{2, 0, 0, 0, 0xaa, 0xbb, 0, 0, 0, 0}, buf.Bytes())
	require.Equal(t, comm.ErrPacketTooLarge, rw.WritePacket(make([]byte, comm.MaxPacketSize+1)))

	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa, 0xbb}, pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Empty(t, pkt)
}

func TestListenerRoundTrip(t *testing.T) {
	server := comm.NewServer()
	ln, err := Listen("127.0.0.1:0", server)
	require.NoError(t, err)
	require.Contains(t, ln.Name(), "tcp:127.0.0.1:")

	loop := fx.NewLoop()
	loop.Interval = 10 * time.Millisecond
	loop.Add(server, ln, &comm.UnsupportedCommands{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	rw, err := Dial(ctx, ln.Addr)
	require.NoError(t, err)
	defer rw.(io.Closer).Close()
	require.Contains(t, rw.(fx.Named).Name(), "tcp:127.0.0.1:")

	typed, err := msgs.TypedFrom(&msgs.IOStateQuery{})
	require.NoError(t, err)
	typed.Sequence = 5
	pkt, err := typed.Encode()
	require.NoError(t, err)
	require.NoError(t, rw.WritePacket([]byte{0xff, 0xff}))
	require.NoError(t, rw.WritePacket(pkt))

	rw.(*ReadWriter).ReadWriter.(net.Conn).SetReadDeadline(time.Now().Add(time.Second))
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	reply, err := msgs.DecodeTyped(pkt)
	require.NoError(t, err)
	require.EqualValues(t, 5, reply.Sequence)
	msg, err := reply.Decode()
	require.NoError(t, err)
	require.Equal(t, msgs.ErrUnsupportedCommand.Error(), msg.(*msgs.CommandErr).Message)

	require.Eventually(t, func() bool {
		conns := server.Conns()
		return len(conns) == 1 && conns[0].Dropped == 1 && conns[0].Received == 2
	}, time.Second, 10*time.Millisecond)
}
