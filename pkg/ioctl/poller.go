package ioctl

import (
	"context"
	"sort"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ftl.go/pkg/board"
	fx "github.com/robotalks/ftl.go/pkg/framework"
	"github.com/robotalks/ftl.go/pkg/node/msgs"
	"github.com/robotalks/ftl.go/pkg/port"
)

// SensorPoller periodically reads the inputs and publishes the state
// when it changes.
type SensorPoller struct {
	Board        board.Board
	Configurator *Configurator
	Publisher    *Publisher
	// Ports are always read, in addition to the configured digital inputs.
	Ports    []port.Address
	Interval time.Duration

	last     *msgs.IOMsgArray
	lastPoll time.Time
}

// DefaultPollInterval is the default SensorPoller.Interval.
const DefaultPollInterval = fx.DefaultInterval

func (p *SensorPoller) inputs() []port.Address {
	seen := make(map[string]bool)
	var addrs []port.Address
	add := func(addr port.Address) {
		switch addr.(type) {
		case port.Digital, port.Analog:
		default:
			return
		}
		if key := addr.String(); !seen[key] {
			seen[key] = true
			addrs = append(addrs, addr)
		}
	}
	for _, addr := range p.Ports {
		add(addr)
	}
	if p.Configurator != nil {
		for _, ch := range p.Configurator.InputChannels() {
			add(port.Digital{Channel: ch})
		}
	}
	sort.Slice(addrs, func(i, j int) bool { return port.Less(addrs[i], addrs[j]) })
	return addrs
}

// Read reads all inputs once. Failed reads are logged and skipped.
func (p *SensorPoller) Read(ctx context.Context) *msgs.IOMsgArray {
	state := &msgs.IOMsgArray{}
	for _, addr := range p.inputs() {
		switch a := addr.(type) {
		case port.Digital:
			on, err := p.Board.ReadDigital(ctx, a.Channel)
			if err != nil {
				glog.Warningf("read %s: %v", a, err)
				continue
			}
			var v float64
			if on {
				v = 1
			}
			state.Add(a.String(), v)
		case port.Analog:
			v, err := p.Board.ReadAnalog(ctx, a.Channel)
			if err != nil {
				glog.Warningf("read %s: %v", a, err)
				continue
			}
			state.Add(a.String(), float64(v))
		}
	}
	return state
}

// Poll reads the inputs and publishes the state if it differs from
// the last published one. The first poll always publishes.
func (p *SensorPoller) Poll(ctx context.Context) error {
	state := p.Read(ctx)
	if p.last != nil && p.last.Equal(state) {
		return nil
	}
	p.last = state
	if p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, state)
}

// Snapshot returns the last polled state, nil before the first poll.
func (p *SensorPoller) Snapshot() *msgs.IOMsgArray {
	return p.last
}

// Control implements Controller. Polling is skipped until Interval
// elapsed since the last poll.
func (p *SensorPoller) Control(cc fx.ControlContext) error {
	now := cc.Time()
	if !p.lastPoll.IsZero() && now.Sub(p.lastPoll) < p.Interval {
		return nil
	}
	p.lastPoll = now
	return p.Poll(cc.Context())
}

// AddToLoop implements LoopAdder.
func (p *SensorPoller) AddToLoop(l *fx.Loop) {
	l.AddController(fx.StageSense, p)
}
