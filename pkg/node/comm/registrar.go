package comm

import (
	"context"
	"fmt"

	"github.com/golang/glog"

	fx "github.com/robotalks/ftl.go/pkg/framework"
	"github.com/robotalks/ftl.go/pkg/node"
	"github.com/robotalks/ftl.go/pkg/node/msgs"
)

// Registrar serves the node over a single PacketReadWriter, e.g. a pair
// of MQTT topics. Commands are posted into the loop.
type Registrar struct {
	pipe Pipe
}

// Init binds the Registrar to rw.
func (r *Registrar) Init(rw PacketReadWriter) {
	r.pipe.Name = fx.NameOf(rw, "registrar")
	r.pipe.ReadWriter = rw
}

// Name implements Named.
func (r *Registrar) Name() string {
	return r.pipe.Name
}

// Stats returns the packet counters.
func (r *Registrar) Stats() PipeStats {
	return r.pipe.Stats()
}

// SendEvent implements node.Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	return r.pipe.SendEventMsg(msg)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(&r.pipe)
}

// RegistrarMux publishes events through every transport the node is
// reachable on. A transport failing doesn't stop the others.
type RegistrarMux struct {
	Registrars []node.Registrar
}

// SendEvent implements node.Registrar. Failures are tagged with the
// name of the Registrar.
func (r *RegistrarMux) SendEvent(ctx context.Context, msg fx.Message) error {
	var errs fx.AggregatedError
	for i, reg := range r.Registrars {
		if err := reg.SendEvent(ctx, msg); err != nil {
			name := fx.NameOf(reg, fmt.Sprintf("registrar[%d]", i))
			glog.V(2).Infof("%s: send %T: %v", name, msg, err)
			errs.Add(fmt.Errorf("%s: %w", name, err))
		}
	}
	return errs.Aggregate()
}

// AddToLoop implements LoopAdder.
func (r *RegistrarMux) AddToLoop(l *fx.Loop) {
	for _, reg := range r.Registrars {
		if adder, ok := reg.(fx.LoopAdder); ok {
			l.Add(adder)
		}
	}
}

// Add adds more registrars.
func (r *RegistrarMux) Add(regs ...node.Registrar) {
	r.Registrars = append(r.Registrars, regs...)
}

// UnsupportedCommands replies commands no controller took with
// ErrUnsupportedCommand. It runs in the idle stage, after all others.
type UnsupportedCommands struct {
}

// Control implements Controller.
func (c *UnsupportedCommands) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		cmdMsg, ok := mctx.CurrentMessage().(*node.CommandMsg)
		if !ok {
			return
		}
		mctx.MessageTaken()
		glog.V(2).Infof("unsupported command %T", cmdMsg.Command.Msg())
		if err := cmdMsg.Command.Done(msgs.NewCommandErr(msgs.ErrUnsupportedCommand)); err != nil {
			glog.Warningf("reply unsupported command %T: %v", cmdMsg.Command.Msg(), err)
		}
	}))
	return nil
}

// AddToLoop implements LoopAdder.
func (c *UnsupportedCommands) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.StageIdle, c)
}
