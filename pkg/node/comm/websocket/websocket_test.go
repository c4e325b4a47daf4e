package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/ftl.go/pkg/framework"
	"github.com/robotalks/ftl.go/pkg/node/comm"
	"github.com/robotalks/ftl.go/pkg/node/msgs"
)

func echoServer(t *testing.T) string {
	srv := httptest.NewServer(websocket.Handler(func(conn *websocket.Conn) {
		rw := New(conn)
		for {
			pkt, err := rw.ReadPacket()
			if err == comm.ErrPacketTooLarge {
				pkt = []byte("too large")
			} else if err != nil {
				return
			}
			if rw.WritePacket(pkt) != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestReadWriter(t *testing.T) {
	rw, err := Dial(context.Background(), echoServer(t))
	require.NoError(t, err)
	defer rw.(*ReadWriter).Close()
	require.True(t, strings.HasPrefix(rw.(fx.Named).Name(), "ws:ws://127.0.0.1:"))

	testCases := []struct {
		name  string
		pkt   []byte
		reply []byte
	}{
		{"packet", []byte{1, 2, 3}, []byte{1, 2, 3}},
		{"max size", make([]byte, comm.MaxPacketSize), make([]byte, comm.MaxPacketSize)},
		{"after max size", []byte{9}, []byte{9}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, rw.WritePacket(tc.pkt))
			reply, err := rw.ReadPacket()
			require.NoError(t, err)
			require.Equal(t, tc.reply, reply)
		})
	}

	require.Equal(t, comm.ErrPacketTooLarge, rw.WritePacket(make([]byte, comm.MaxPacketSize+1)))
}

func TestReadPacketTooLarge(t *testing.T) {
	rw, err := Dial(context.Background(), echoServer(t))
	require.NoError(t, err)
	conn := rw.(*ReadWriter).Conn
	defer conn.Close()

	// bypass the size check on sending
	require.NoError(t, websocket.Message.Send(conn, make([]byte, comm.MaxPacketSize+1)))
	reply, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte("too large"), reply)

	require.NoError(t, rw.WritePacket([]byte{4, 2}))
	reply, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{4, 2}, reply)
}

func TestListenerServesNode(t *testing.T) {
	server := comm.NewServer()
	ln, err := Listen("127.0.0.1:0", server)
	require.NoError(t, err)

	loop := fx.NewLoop()
	loop.Interval = 10 * time.Millisecond
	loop.Add(server, ln, &comm.UnsupportedCommands{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	var rw comm.PacketReadWriter
	require.Eventually(t, func() bool {
		rw, err = Dial(ctx, "ws://"+ln.Addr+DefaultPath)
		return err == nil
	}, time.Second, 10*time.Millisecond)
	defer rw.(*ReadWriter).Close()

	typed, err := msgs.TypedFrom(&msgs.IOStateQuery{})
	require.NoError(t, err)
	typed.Sequence = 12
	pkt, err := typed.Encode()
	require.NoError(t, err)
	require.NoError(t, rw.WritePacket(pkt))

	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	reply, err := msgs.DecodeTyped(pkt)
	require.NoError(t, err)
	require.EqualValues(t, 12, reply.Sequence)
	require.Equal(t, 1, server.NumConns())

	require.NoError(t, server.SendEvent(ctx, (*msgs.SensorState)(new(msgs.IOMsgArray).Add("A-0", 512))))
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	event, err := msgs.DecodeTyped(pkt)
	require.NoError(t, err)
	require.True(t, event.IsEvent())
	require.EqualValues(t, 1, server.Stats().Received)
}
