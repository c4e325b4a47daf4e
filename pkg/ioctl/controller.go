package ioctl

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/ftl.go/pkg/board"
	fx "github.com/robotalks/ftl.go/pkg/framework"
	"github.com/robotalks/ftl.go/pkg/node"
	"github.com/robotalks/ftl.go/pkg/node/msgs"
)

// CommandEvent is added to the iteration when a RobotCommand is
// received, for controllers of later stages.
type CommandEvent struct {
	Command *msgs.RobotCommand
}

// NewMessage implements Message.
func (m *CommandEvent) NewMessage() fx.Message { return &CommandEvent{} }

// CommandListener receives RobotCommands.
type CommandListener interface {
	CommandReceived(context.Context, *msgs.RobotCommand)
}

// CommandListenerFunc is the func form of CommandListener.
type CommandListenerFunc func(context.Context, *msgs.RobotCommand)

// CommandReceived implements CommandListener.
func (f CommandListenerFunc) CommandReceived(ctx context.Context, cmd *msgs.RobotCommand) {
	f(ctx, cmd)
}

// Controller handles the I/O messages of a node inside the loop.
type Controller struct {
	Dispatcher   *Dispatcher
	Configurator *Configurator
	Poller       *SensorPoller

	boardRunner fx.Runnable

	lock      sync.RWMutex
	listeners []CommandListener
}

// NewController creates a Controller driving the board and publishing
// sensor state through the registrar.
func NewController(b board.Board, reg node.Registrar) *Controller {
	cfg := NewConfigurator(b)
	return &Controller{
		Dispatcher:   NewDispatcher(b),
		Configurator: cfg,
		Poller: &SensorPoller{
			Board:        b,
			Configurator: cfg,
			Publisher:    &Publisher{Registrar: reg},
			Interval:     DefaultPollInterval,
		},
	}
}

// OnCommand adds a RobotCommand listener.
func (c *Controller) OnCommand(l CommandListener) {
	c.lock.Lock()
	c.listeners = append(c.listeners, l)
	c.lock.Unlock()
}

// AddToLoop implements LoopAdder.
func (c *Controller) AddToLoop(l *fx.Loop) {
	if c.boardRunner != nil {
		l.AddRunnable(c.boardRunner)
	}
	l.Add(c.Poller)
	l.AddController(fx.StageControl, fx.ControlFunc(c.HandleCommand))
	l.AddController(fx.StageActuate, fx.ControlFunc(c.Actuate))
}

// HandleCommand is a controller processing commands.
func (c *Controller) HandleCommand(cc fx.ControlContext) error {
	var received []*msgs.RobotCommand
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		cmdMsg, ok := mctx.CurrentMessage().(*node.CommandMsg)
		if !ok {
			return
		}
		var reply fx.Message
		switch m := cmdMsg.Command.Msg().(type) {
		case *msgs.ConfigureIO:
			reply = c.Configurator.ApplyConfig(cc.Context(), m.Config)
		case *msgs.RobotCommand:
			received = append(received, m)
			reply = msgs.NewCommandOK()
		case *msgs.IOStateQuery:
			state := c.Poller.Snapshot()
			if state == nil {
				state = &msgs.IOMsgArray{}
			}
			reply = (*msgs.IOStateReply)(state)
		default:
			return
		}
		mctx.MessageTaken()
		if err := cmdMsg.Command.Done(reply); err != nil {
			glog.Warningf("reply %T: %v", reply, err)
		}
	}))
	for _, cmd := range received {
		cc.Messages().AddMessages(&CommandEvent{Command: cmd})
		c.notify(cc.Context(), cmd)
	}
	return nil
}

// Actuate is a controller applying received outputs. Write failures
// are already logged by the Dispatcher.
func (c *Controller) Actuate(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		if outputs, ok := mctx.CurrentMessage().(*msgs.RobotOutputs); ok {
			mctx.MessageTaken()
			c.Dispatcher.ApplyOutputs(cc.Context(), outputs.Array())
		}
	}))
	return nil
}

func (c *Controller) notify(ctx context.Context, cmd *msgs.RobotCommand) {
	c.lock.RLock()
	listeners := append([]CommandListener(nil), c.listeners...)
	c.lock.RUnlock()
	for _, l := range listeners {
		l.CommandReceived(ctx, cmd)
	}
}
