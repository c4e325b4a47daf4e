package comm

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/ftl.go/pkg/framework"
	"github.com/robotalks/ftl.go/pkg/node"
	"github.com/robotalks/ftl.go/pkg/node/msgs"
)

type memPipe struct {
	in     <-chan []byte
	out    chan<- []byte
	closed chan struct{}
	once   sync.Once
}

func memPipePair() (*memPipe, *memPipe) {
	ab, ba := make(chan []byte, 16), make(chan []byte, 16)
	return &memPipe{in: ba, out: ab, closed: make(chan struct{})},
		&memPipe{in: ab, out: ba, closed: make(chan struct{})}
}

func (p *memPipe) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.in:
		return pkt, nil
	case <-p.closed:
		return nil, io.EOF
	}
}

func (p *memPipe) WritePacket(pkt []byte) error {
	p.out <- pkt
	return nil
}

func (p *memPipe) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func sendTyped(t *testing.T, p *memPipe, msg fx.Message, seq uint32) {
	typed, err := msgs.TypedFrom(msg)
	require.NoError(t, err)
	typed.Sequence = seq
	pkt, err := typed.Encode()
	require.NoError(t, err)
	require.NoError(t, p.WritePacket(pkt))
}

func recvTyped(t *testing.T, p *memPipe) (fx.Message, *msgs.Typed) {
	select {
	case pkt := <-p.in:
		typed, err := msgs.DecodeTyped(pkt)
		require.NoError(t, err)
		msg, err := typed.Decode()
		require.NoError(t, err)
		return msg, typed
	case <-time.After(time.Second):
		t.Fatal("receive timeout")
	}
	return nil, nil
}

func runLoop(t *testing.T, adders ...fx.LoopAdder) context.CancelFunc {
	loop := fx.NewLoop()
	loop.Interval = 10 * time.Millisecond
	loop.Add(adders...)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	return cancel
}

type commandRecorder struct {
	cmds chan node.Command
}

func (r *commandRecorder) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		if cmdMsg, ok := mctx.CurrentMessage().(*node.CommandMsg); ok {
			if _, ok := cmdMsg.Command.Msg().(*msgs.RobotCommand); ok {
				mctx.MessageTaken()
				r.cmds <- cmdMsg.Command
			}
		}
	}))
	return nil
}

func (r *commandRecorder) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.StageControl, r)
}

func TestRegistrar(t *testing.T) {
	nodeSide, toolSide := memPipePair()
	var reg Registrar
	reg.Init(nodeSide)
	rec := &commandRecorder{cmds: make(chan node.Command, 1)}
	cancel := runLoop(t, &reg, rec, &UnsupportedCommands{})
	defer cancel()

	sendTyped(t, toolSide, &msgs.RobotCommand{Command: "beep"}, 3)
	select {
	case cmd := <-rec.cmds:
		require.Equal(t, "beep", cmd.Msg().(*msgs.RobotCommand).Command)
		require.NoError(t, cmd.Done(msgs.NewCommandOK()))
	case <-time.After(time.Second):
		t.Fatal("command not received")
	}
	msg, typed := recvTyped(t, toolSide)
	require.IsType(t, &msgs.CommandOK{}, msg)
	require.EqualValues(t, 3, typed.Sequence)

	sendTyped(t, toolSide, &msgs.IOStateQuery{}, 4)
	msg, typed = recvTyped(t, toolSide)
	require.Equal(t, msgs.ErrUnsupportedCommand.Error(), msg.(*msgs.CommandErr).Message)
	require.EqualValues(t, 4, typed.Sequence)

	require.NoError(t, reg.SendEvent(context.Background(), (*msgs.SensorState)(new(msgs.IOMsgArray).Add("A-0", 3))))
	msg, typed = recvTyped(t, toolSide)
	require.True(t, typed.IsEvent())
	require.Equal(t, "A-0", msg.(*msgs.SensorState).IOMsg[0].Port)

	require.Equal(t, msgs.ErrNotEvent, reg.SendEvent(context.Background(), &msgs.IOStateQuery{}))
}

func TestPipeUnknownCommand(t *testing.T) {
	nodeSide, toolSide := memPipePair()
	var reg Registrar
	reg.Init(nodeSide)
	cancel := runLoop(t, &reg)
	defer cancel()

	typed := &msgs.Typed{TypeId: msgs.GroupCustom | 1, Sequence: 9}
	pkt, err := typed.Encode()
	require.NoError(t, err)
	require.NoError(t, toolSide.WritePacket(pkt))
	msg, reply := recvTyped(t, toolSide)
	require.IsType(t, &msgs.CommandErr{}, msg)
	require.EqualValues(t, 9, reply.Sequence)
	require.Eventually(t, func() bool {
		return reg.Stats() == PipeStats{Received: 1, Sent: 1, Rejected: 1}
	}, time.Second, 10*time.Millisecond)
}

type errPipe struct {
	*memPipe
	errs chan error
}

func (p *errPipe) ReadPacket() ([]byte, error) {
	select {
	case err := <-p.errs:
		return nil, err
	default:
		return p.memPipe.ReadPacket()
	}
}

func TestPipeDropsMalformed(t *testing.T) {
	nodeSide, toolSide := memPipePair()
	rw := &errPipe{memPipe: nodeSide, errs: make(chan error, 1)}
	rw.errs <- ErrPacketTooLarge
	pipe := NewPipe(rw)
	pipe.Name = "test"
	events := make(chan fx.Message, 1)
	pipe.Handler = msgs.HandleTypedMsgFunc(func(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
		events <- msg
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- pipe.Run(ctx) }()

	require.NoError(t, toolSide.WritePacket([]byte{0xff, 0xff, 0xff}))
	unknownEvent, err := (&msgs.Typed{TypeId: msgs.GroupCustom | msgs.TypeIDKindEvent | 1}).Encode()
	require.NoError(t, err)
	require.NoError(t, toolSide.WritePacket(unknownEvent))
	sendTyped(t, toolSide, (*msgs.RobotOutputs)(new(msgs.IOMsgArray).Add("D-1", 1)), 0)

	select {
	case msg := <-events:
		require.IsType(t, &msgs.RobotOutputs{}, msg)
	case <-time.After(time.Second):
		t.Fatal("event not handled")
	}
	require.Equal(t, PipeStats{Received: 4, Dropped: 3}, pipe.Stats())

	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("pipe not stopped")
	}
	_, err = nodeSide.ReadPacket()
	require.Equal(t, io.EOF, err)
}

func TestConn(t *testing.T) {
	toolSide, nodeSide := memPipePair()
	var conn Conn
	conn.Init(toolSide)
	cancel := runLoop(t, &conn)
	defer cancel()

	f := conn.DoCommand(&msgs.IOStateQuery{})
	_, typed := recvTyped(t, nodeSide)
	sendTyped(t, nodeSide, (*msgs.IOStateReply)(new(msgs.IOMsgArray).Add("D-3", 1)), typed.Sequence)
	select {
	case res := <-f.ResultChan():
		require.NoError(t, res.Err)
		require.Equal(t, "D-3", res.Msg.(*msgs.IOStateReply).IOMsg[0].Port)
	case <-time.After(time.Second):
		t.Fatal("no result")
	}

	f = conn.DoCommand(&msgs.ConfigureIO{})
	_, typed = recvTyped(t, nodeSide)
	sendTyped(t, nodeSide, msgs.NewCommandErrFromMsg("boom"), typed.Sequence)
	res := <-f.ResultChan()
	require.EqualError(t, res.Err, "boom")

	require.NoError(t, conn.SendEvent((*msgs.RobotOutputs)(new(msgs.IOMsgArray).Add("PWM-0", 10))))
	msg, _ := recvTyped(t, nodeSide)
	require.IsType(t, &msgs.RobotOutputs{}, msg)
}

func TestConnExpiration(t *testing.T) {
	toolSide, _ := memPipePair()
	var conn Conn
	conn.Init(toolSide)
	f := conn.DoCommand(&msgs.IOStateQuery{})
	conn.PurgeExpired(time.Now())
	select {
	case <-f.ResultChan():
		t.Fatal("expired too early")
	default:
	}
	conn.PurgeExpired(time.Now().Add(DefaultCommandExpiration))
	res := <-f.ResultChan()
	require.Equal(t, context.DeadlineExceeded, res.Err)
}

func TestServer(t *testing.T) {
	server := NewServer()
	cancel := runLoop(t, server, &UnsupportedCommands{})
	defer cancel()

	node1, tool1 := memPipePair()
	node2, tool2 := memPipePair()
	go server.Serve(node1)
	go server.Serve(node2)
	require.Eventually(t, func() bool { return server.NumConns() == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, server.SendEvent(context.Background(), (*msgs.SensorState)(new(msgs.IOMsgArray).Add("A-1", 7))))
	for _, tool := range []*memPipe{tool1, tool2} {
		msg, _ := recvTyped(t, tool)
		require.Equal(t, 7.0, msg.(*msgs.SensorState).IOMsg[0].Value)
	}

	sendTyped(t, tool2, &msgs.IOStateQuery{}, 1)
	msg, _ := recvTyped(t, tool2)
	require.IsType(t, &msgs.CommandErr{}, msg)

	require.NoError(t, tool1.WritePacket([]byte{0xff}))
	require.Eventually(t, func() bool { return server.Stats().Dropped == 1 }, time.Second, 10*time.Millisecond)

	node1.Close()
	require.Eventually(t, func() bool { return server.NumConns() == 1 }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return server.Stats() == PipeStats{Received: 2, Sent: 3, Dropped: 1}
	}, time.Second, 10*time.Millisecond)
	conns := server.Conns()
	require.Len(t, conns, 1)
	require.Equal(t, PipeStats{Received: 1, Sent: 2}, conns[0].PipeStats)
}

func TestDirectConnector(t *testing.T) {
	toolSide, _ := memPipePair()
	info := node.Info{Ref: node.Ref{Type: "ftl", ID: "robot"}}
	c := &DirectConnector{Info: info, Dial: func(context.Context) (PacketReadWriter, error) {
		return toolSide, nil
	}}
	infos, err := c.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, []node.Info{info}, infos)
	conn, err := c.Connect(context.Background(), info.Ref)
	require.NoError(t, err)
	require.IsType(t, &Conn{}, conn)
}

func TestRegistrarMux(t *testing.T) {
	node1, tool1 := memPipePair()
	node2, tool2 := memPipePair()
	var r1, r2 Registrar
	r1.Init(node1)
	r2.Init(node2)
	mux := &RegistrarMux{}
	mux.Add(&r1, &r2)
	require.NoError(t, mux.SendEvent(context.Background(), (*msgs.SensorState)(new(msgs.IOMsgArray).Add("D-0", 1))))
	recvTyped(t, tool1)
	recvTyped(t, tool2)

	err := mux.SendEvent(context.Background(), &msgs.IOStateQuery{})
	require.Error(t, err)
	require.Equal(t, 2, err.(*fx.AggregatedError).Len())
	require.True(t, errors.Is(err.(*fx.AggregatedError).Errors[0], msgs.ErrNotEvent))
	require.Contains(t, err.Error(), "registrar: "+msgs.ErrNotEvent.Error())
}
