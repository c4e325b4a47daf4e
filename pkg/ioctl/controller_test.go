package ioctl

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ftl.go/pkg/board"
	"github.com/robotalks/ftl.go/pkg/board/sim"
	fx "github.com/robotalks/ftl.go/pkg/framework"
	"github.com/robotalks/ftl.go/pkg/node"
	"github.com/robotalks/ftl.go/pkg/node/msgs"
	"github.com/robotalks/ftl.go/pkg/port"
)

type eventRecorder struct {
	lock   sync.Mutex
	events []fx.Message
	err    error
}

func (r *eventRecorder) SendEvent(ctx context.Context, msg fx.Message) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = append(r.events, msg)
	return r.err
}

func (r *eventRecorder) states() (states []*msgs.IOMsgArray) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, ev := range r.events {
		if s, ok := ev.(*msgs.SensorState); ok {
			states = append(states, s.Array())
		}
	}
	return
}

type testCommand struct {
	msg   fx.Message
	reply fx.Message
}

func (c *testCommand) Msg() fx.Message { return c.msg }

func (c *testCommand) Done(reply fx.Message) error {
	c.reply = reply
	return nil
}

func doCommand(loop *fx.Loop, msg fx.Message) *testCommand {
	cmd := &testCommand{msg: msg}
	loop.PostMessage(&node.CommandMsg{Command: cmd})
	loop.RunIteration(context.Background())
	return cmd
}

func TestPublisher(t *testing.T) {
	reg := &eventRecorder{}
	p := &Publisher{Registrar: reg}
	state := new(msgs.IOMsgArray).Add("A-0", 12).Add("X-1", 3)
	require.NoError(t, p.Publish(context.Background(), state))
	require.Len(t, reg.events, 1)
	require.Same(t, state, reg.events[0].(*msgs.SensorState).Array())

	reg.err = errors.New("offline")
	require.Equal(t, reg.err, p.Publish(context.Background(), state))
}

func TestSensorPoller(t *testing.T) {
	ctx := context.Background()
	b := sim.NewDefault()
	reg := &eventRecorder{}
	cfg := NewConfigurator(b)
	p := &SensorPoller{
		Board:        b,
		Configurator: cfg,
		Publisher:    &Publisher{Registrar: reg},
		Ports:        port.ResolveAll([]string{"A-1", "D-6", "A-0", "PWM-0", "bogus", "A-1"}),
	}
	require.Nil(t, p.Snapshot())

	require.NoError(t, b.SetAnalog(0, 300))
	require.NoError(t, b.SetAnalog(1, 512))
	require.NoError(t, b.SetDigitalInput(6, true))
	require.NoError(t, p.Poll(ctx))
	expected := new(msgs.IOMsgArray).Add("D-6", 1).Add("A-0", 300).Add("A-1", 512)
	require.Len(t, reg.states(), 1)
	require.True(t, expected.Equal(reg.states()[0]), reg.states()[0].String())
	require.True(t, expected.Equal(p.Snapshot()))

	// unchanged
	require.NoError(t, p.Poll(ctx))
	require.Len(t, reg.states(), 1)

	require.True(t, cfg.ApplyConfig(ctx, []*msgs.PinConfig{
		{Port: "D-2", Config: msgs.DigitalInPullUp},
		{Port: "D-6", Config: msgs.DigitalIn},
	}).Success)
	require.NoError(t, b.SetAnalog(1, 100))
	require.NoError(t, p.Poll(ctx))
	expected = new(msgs.IOMsgArray).Add("D-2", 1).Add("D-6", 1).Add("A-0", 300).Add("A-1", 100)
	require.Len(t, reg.states(), 2)
	require.True(t, expected.Equal(reg.states()[1]), reg.states()[1].String())
}

func TestSensorPollerReadErrors(t *testing.T) {
	b := sim.NewDefault()
	b.Fault = func(op string, channel int) error {
		if op == sim.OpReadAnalog && channel == 1 {
			return errors.New("bus error")
		}
		return nil
	}
	p := &SensorPoller{Board: b, Ports: port.ResolveAll([]string{"A-0", "A-1", "A-9"})}
	state := p.Read(context.Background())
	require.True(t, new(msgs.IOMsgArray).Add("A-0", 0).Equal(state), state.String())
	require.NoError(t, p.Poll(context.Background()))
	require.True(t, state.Equal(p.Snapshot()))
}

func TestControllerConfigureAndOutputs(t *testing.T) {
	ctx := context.Background()
	b := sim.NewDefault()
	reg := &eventRecorder{}
	ctl := NewController(b, reg)
	ctl.Poller.Interval = 0
	loop := fx.NewLoop().Add(ctl)

	cmd := doCommand(loop, &msgs.ConfigureIO{Config: []*msgs.PinConfig{
		{Port: "D-1", Config: msgs.DigitalOut},
		{Port: "D-3", Config: msgs.DigitalIn},
		{Port: "A-0", Config: msgs.DigitalOut},
	}})
	result, ok := cmd.reply.(*msgs.ConfigureIOResult)
	require.True(t, ok)
	require.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	require.Equal(t, "A-0", result.Errors[0].Port)
	mode, ok := b.Mode(1)
	require.True(t, ok)
	require.Equal(t, board.Output, mode)

	loop.PostMessage((*msgs.RobotOutputs)(new(msgs.IOMsgArray).Add("D-1", 1).Add("PWM-0", 300).Add("D-3", 1)))
	loop.RunIteration(ctx)
	on, err := b.ReadDigital(ctx, 1)
	require.NoError(t, err)
	require.True(t, on)
	require.Equal(t, 128, b.PWM(0))
	on, err = b.ReadDigital(ctx, 3)
	require.NoError(t, err)
	require.False(t, on, "input not written")

	require.NoError(t, b.SetDigitalInput(3, true))
	cmd = doCommand(loop, &msgs.IOStateQuery{})
	reply, ok := cmd.reply.(*msgs.IOStateReply)
	require.True(t, ok)
	require.True(t, new(msgs.IOMsgArray).Add("D-3", 1).Equal(reply.Array()))

	states := reg.states()
	require.Len(t, states, 3)
	require.Empty(t, states[0].IOMsg)
	require.True(t, new(msgs.IOMsgArray).Add("D-3", 0).Equal(states[1]))
	require.True(t, new(msgs.IOMsgArray).Add("D-3", 1).Equal(states[2]))
}

func TestControllerRobotCommand(t *testing.T) {
	ctl := NewController(sim.NewDefault(), &eventRecorder{})
	var received []string
	ctl.OnCommand(CommandListenerFunc(func(ctx context.Context, cmd *msgs.RobotCommand) {
		received = append(received, cmd.Command)
	}))
	var events []*CommandEvent
	loop := fx.NewLoop().Add(ctl)
	loop.AddController(fx.StagePublish, fx.ControlFunc(func(cc fx.ControlContext) error {
		cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
			if ev, ok := mctx.CurrentMessage().(*CommandEvent); ok {
				mctx.MessageTaken()
				events = append(events, ev)
			}
		}))
		return nil
	}))

	cmd := doCommand(loop, &msgs.RobotCommand{Command: "beep", Args: []string{"3"}})
	require.IsType(t, &msgs.CommandOK{}, cmd.reply)
	require.Equal(t, []string{"beep"}, received)
	require.Len(t, events, 1)
	require.Equal(t, []string{"3"}, events[0].Command.Args)

	cmd = doCommand(loop, &msgs.CommandOK{})
	require.Nil(t, cmd.reply, "left for other controllers")
}

func TestControllerEmptyState(t *testing.T) {
	ctl := NewController(sim.NewDefault(), &eventRecorder{})
	loop := fx.NewLoop()
	loop.AddController(fx.StageControl, fx.ControlFunc(ctl.HandleCommand))
	cmd := doCommand(loop, &msgs.IOStateQuery{})
	reply, ok := cmd.reply.(*msgs.IOStateReply)
	require.True(t, ok)
	require.Empty(t, reply.IOMsg)
}
