package ioctl

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/ftl.go/pkg/board"
	fx "github.com/robotalks/ftl.go/pkg/framework"
	"github.com/robotalks/ftl.go/pkg/node/msgs"
	"github.com/robotalks/ftl.go/pkg/port"
)

// OutputsListener is notified once per applied batch with the batch as
// received, including entries that were skipped.
type OutputsListener interface {
	OutputsApplied(context.Context, *msgs.IOMsgArray)
}

// OutputsListenerFunc is the func form of OutputsListener.
type OutputsListenerFunc func(context.Context, *msgs.IOMsgArray)

// OutputsApplied implements OutputsListener.
func (f OutputsListenerFunc) OutputsApplied(ctx context.Context, outputs *msgs.IOMsgArray) {
	f(ctx, outputs)
}

// ErrInvalidValue indicates an output value with no integer meaning.
var ErrInvalidValue = errors.New("invalid output value")

// Dispatcher writes output batches to the board.
type Dispatcher struct {
	Board    board.Board
	PWMRange port.Range

	lock      sync.RWMutex
	listeners map[int]OutputsListener
	nextID    int
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(b board.Board) *Dispatcher {
	return &Dispatcher{Board: b, PWMRange: port.DefaultPWMRange}
}

// Subscribe adds a listener, the returned func removes it.
func (d *Dispatcher) Subscribe(l OutputsListener) func() {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.listeners == nil {
		d.listeners = make(map[int]OutputsListener)
	}
	id := d.nextID
	d.nextID++
	d.listeners[id] = l
	return func() {
		d.lock.Lock()
		delete(d.listeners, id)
		d.lock.Unlock()
	}
}

// ApplyOutputs writes every entry of the batch in order. Digital
// channels are on only for value 1, PWM values are clamped into
// PWMRange, analog and unknown ports are skipped. A failed write
// doesn't stop the batch, all failures are returned together.
// A nil batch is applied as an empty one.
func (d *Dispatcher) ApplyOutputs(ctx context.Context, outputs *msgs.IOMsgArray) error {
	if outputs == nil {
		outputs = &msgs.IOMsgArray{}
	}
	var errs fx.AggregatedError
	for _, msg := range outputs.IOMsg {
		if msg == nil {
			continue
		}
		if err := d.apply(ctx, msg); err != nil {
			glog.Warningf("output %s=%v: %v", msg.Port, msg.Value, err)
			errs.Add(fmt.Errorf("%s: %v", msg.Port, err))
		}
	}
	d.notify(ctx, outputs)
	return errs.Aggregate()
}

func (d *Dispatcher) apply(ctx context.Context, msg *msgs.IOMsg) error {
	switch addr := port.Resolve(msg.Port).(type) {
	case port.Digital:
		on := msg.Value == 1
		glog.V(2).Infof("%s <- %v", addr, on)
		return d.Board.WriteDigital(ctx, addr.Channel, on)
	case port.PWM:
		value, ok := d.PWMRange.ClampFloat(msg.Value)
		if !ok {
			return ErrInvalidValue
		}
		glog.V(2).Infof("%s <- %d", addr, value)
		return d.Board.WritePWM(ctx, addr.Channel, value)
	}
	return nil
}

func (d *Dispatcher) notify(ctx context.Context, outputs *msgs.IOMsgArray) {
	d.lock.RLock()
	listeners := make([]OutputsListener, 0, len(d.listeners))
	for _, l := range d.listeners {
		listeners = append(listeners, l)
	}
	d.lock.RUnlock()
	for _, l := range listeners {
		l.OutputsApplied(ctx, outputs)
	}
}
