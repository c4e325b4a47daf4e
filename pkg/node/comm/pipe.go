package comm

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/ftl.go/pkg/framework"
	"github.com/robotalks/ftl.go/pkg/node"
	"github.com/robotalks/ftl.go/pkg/node/msgs"
)

// MaxPacketSize limits the size of a received packet on every transport.
const MaxPacketSize = 1 << 20

// ErrPacketTooLarge is returned by a PacketReader for a packet exceeding
// MaxPacketSize. The packet is skipped, and the reader stays usable.
var ErrPacketTooLarge = errors.New("packet too large")

// dropLogEvery rate-limits the warnings about dropped packets.
const dropLogEvery = 100

// PipeStats counts the packets through a Pipe.
type PipeStats struct {
	// Received counts packets read, including dropped ones.
	Received uint64
	Sent     uint64
	// Dropped counts packets which are oversized, not a Typed envelope,
	// or an event of unknown type.
	Dropped uint64
	// Rejected counts commands which couldn't be decoded and were
	// replied with CommandErr.
	Rejected uint64
}

// Add accumulates the counters of o.
func (s *PipeStats) Add(o PipeStats) {
	s.Received += o.Received
	s.Sent += o.Sent
	s.Dropped += o.Dropped
	s.Rejected += o.Rejected
}

// Pipe carries Typed messages over a PacketReadWriter. Received messages
// go to Handler, or are posted into the loop when Handler is nil, with
// commands wrapped as node.CommandMsg replying through the Pipe.
type Pipe struct {
	Name       string
	ReadWriter PacketReadWriter
	Handler    msgs.TypedMsgHandler

	sendLock  sync.Mutex
	statsLock sync.Mutex
	stats     PipeStats
}

// NewPipe creates a Pipe named after rw if it's fx.Named.
func NewPipe(rw PacketReadWriter) *Pipe {
	return &Pipe{Name: fx.NameOf(rw, "pipe"), ReadWriter: rw}
}

// Stats returns a snapshot of the packet counters.
func (p *Pipe) Stats() PipeStats {
	p.statsLock.Lock()
	defer p.statsLock.Unlock()
	return p.stats
}

// count increments a counter of p.stats.
func (p *Pipe) count(counter *uint64) uint64 {
	p.statsLock.Lock()
	defer p.statsLock.Unlock()
	*counter++
	return *counter
}

// SendCommandMsg sends a message which must be a command or a reply.
func (p *Pipe) SendCommandMsg(msg fx.Message, seq uint32) error {
	return p.send(msg, msgs.TypeIDKindCommand, seq)
}

// SendEventMsg sends a message which must be an event.
func (p *Pipe) SendEventMsg(msg fx.Message) error {
	return p.send(msg, msgs.TypeIDKindEvent, 0)
}

func (p *Pipe) send(msg fx.Message, kind uint32, seq uint32) error {
	typed, err := msgs.TypedFrom(msg)
	if err != nil {
		return err
	}
	if typed.Kind() != kind {
		if kind == msgs.TypeIDKindCommand {
			return msgs.ErrNotCommand
		}
		return msgs.ErrNotEvent
	}
	typed.Sequence = seq
	return p.SendTyped(typed)
}

// SendTyped send a Typed message.
func (p *Pipe) SendTyped(typed *msgs.Typed) error {
	pkt, err := typed.Encode()
	if err != nil {
		return err
	}
	p.sendLock.Lock()
	defer p.sendLock.Unlock()
	if err = p.ReadWriter.WritePacket(pkt); err != nil {
		return err
	}
	p.count(&p.stats.Sent)
	return nil
}

// Run implements Runnable. It reads until the ReadWriter fails or ctx
// is canceled, and the ReadWriter is closed on return.
func (p *Pipe) Run(ctx context.Context) error {
	return fx.RunWithContextCloser(ctx, p, func() error {
		for {
			pkt, err := p.ReadWriter.ReadPacket()
			if errors.Is(err, ErrPacketTooLarge) {
				p.count(&p.stats.Received)
				p.drop(err)
				continue
			}
			if err != nil {
				return err
			}
			if err = p.receive(ctx, pkt); err != nil {
				return err
			}
		}
	})
}

func (p *Pipe) receive(ctx context.Context, pkt []byte) error {
	p.count(&p.stats.Received)
	typed, err := msgs.DecodeTyped(pkt)
	if err != nil {
		p.drop(err)
		return nil
	}
	msg, err := typed.Decode()
	if err != nil {
		if !typed.IsCommand() {
			p.drop(err)
			return nil
		}
		p.count(&p.stats.Rejected)
		glog.Warningf("%s: reject command #%d: %v", p.Name, typed.Sequence, err)
		return p.SendCommandMsg(msgs.NewCommandErr(err), typed.Sequence)
	}
	if h := p.Handler; h != nil {
		return h.HandleTypedMsg(ctx, msg, typed)
	}
	p.post(fx.LoopCtlFrom(ctx), msg, typed)
	return nil
}

func (p *Pipe) drop(err error) {
	n := p.count(&p.stats.Dropped)
	if n == 1 || n%dropLogEvery == 0 {
		glog.Warningf("%s: %d packets dropped, last: %v", p.Name, n, err)
	}
}

func (p *Pipe) post(loopCtl fx.LoopControl, msg fx.Message, typed *msgs.Typed) {
	switch typed.Kind() {
	case msgs.TypeIDKindCommand:
		loopCtl.PostMessage(&node.CommandMsg{Command: &command{seq: typed.Sequence, msg: msg, pipe: p}})
	case msgs.TypeIDKindEvent:
		loopCtl.PostMessage(msg)
	}
	loopCtl.TriggerNext()
}

// Close implements Closer.
func (p *Pipe) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// AddToLoop implements LoopAdder.
func (p *Pipe) AddToLoop(loop *fx.Loop) {
	if adder, ok := p.ReadWriter.(fx.LoopAdder); ok {
		loop.Add(adder)
	} else if runnable, ok := p.ReadWriter.(fx.Runnable); ok {
		loop.AddRunnable(runnable)
	}
	name := p.Name
	if name == "" {
		name = fx.NameOf(p.ReadWriter, "pipe")
	}
	loop.AddRunnable(fx.NamedRun(name, p))
}

type command struct {
	seq  uint32
	msg  fx.Message
	pipe *Pipe
}

func (c *command) Msg() fx.Message {
	return c.msg
}

func (c *command) Done(msg fx.Message) error {
	return c.pipe.SendCommandMsg(msg, c.seq)
}
