package ioctl

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/ftl.go/pkg/board"
	"github.com/robotalks/ftl.go/pkg/node/msgs"
	"github.com/robotalks/ftl.go/pkg/port"
)

// Messages of PinConfigError.
const (
	ErrMsgInvalidPortType = "Invalid Port Type. Can only configure DIGITAL ports"
	ErrMsgInvalidOption   = "Invalid Port Configuration Option"
	ErrMsgConfigurePrefix = "Error configuring as "
)

// Configurator applies pin configuration batches and remembers the
// modes successfully configured.
type Configurator struct {
	Board board.Board

	lock  sync.RWMutex
	modes map[int]board.PinMode
}

// NewConfigurator creates a Configurator.
func NewConfigurator(b board.Board) *Configurator {
	return &Configurator{Board: b, modes: make(map[int]board.PinMode)}
}

// PinModeOf maps a configuration option to the board pin mode.
// Pull-down is not distinguished from plain input.
func PinModeOf(opt msgs.PinConfigOption) (board.PinMode, bool) {
	switch opt {
	case msgs.DigitalIn, msgs.DigitalInPullDown:
		return board.Input, true
	case msgs.DigitalInPullUp:
		return board.InputPullUp, true
	case msgs.DigitalOut:
		return board.Output, true
	}
	return 0, false
}

// ApplyConfig configures every pin of the batch in order. A failed item
// is reported in the result and never stops the rest.
func (c *Configurator) ApplyConfig(ctx context.Context, configs []*msgs.PinConfig) *msgs.ConfigureIOResult {
	result := &msgs.ConfigureIOResult{}
	fail := func(p, reason string) {
		result.Errors = append(result.Errors, &msgs.PinConfigError{Port: p, Error: reason})
	}
	for _, cfg := range configs {
		if cfg == nil {
			continue
		}
		addr, ok := port.Resolve(cfg.Port).(port.Digital)
		if !ok {
			fail(cfg.Port, ErrMsgInvalidPortType)
			continue
		}
		mode, ok := PinModeOf(cfg.Config)
		if !ok {
			fail(cfg.Port, ErrMsgInvalidOption)
			continue
		}
		if err := c.Board.ConfigureDigitalPinMode(ctx, addr.Channel, mode); err != nil {
			glog.V(2).Infof("configure %s as %s: %v", addr, mode, err)
			fail(cfg.Port, ErrMsgConfigurePrefix+mode.String())
			continue
		}
		c.setMode(addr.Channel, mode)
	}
	result.Success = len(result.Errors) == 0
	if !result.Success {
		lines := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			lines = append(lines, e.Port+": "+e.Error)
		}
		glog.Warningf("configure io: %d errors:\n  %s", len(lines), strings.Join(lines, "\n  "))
	}
	return result
}

func (c *Configurator) setMode(channel int, mode board.PinMode) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.modes == nil {
		c.modes = make(map[int]board.PinMode)
	}
	c.modes[channel] = mode
}

// Mode returns the mode a digital channel was configured with.
func (c *Configurator) Mode(channel int) (board.PinMode, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	mode, ok := c.modes[channel]
	return mode, ok
}

// InputChannels returns the digital channels configured as inputs,
// in ascending order.
func (c *Configurator) InputChannels() []int {
	c.lock.RLock()
	channels := make([]int, 0, len(c.modes))
	for ch, mode := range c.modes {
		if mode.IsInput() {
			channels = append(channels, ch)
		}
	}
	c.lock.RUnlock()
	sort.Ints(channels)
	return channels
}
