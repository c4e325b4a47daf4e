// Package sim provides an in-memory board for running without hardware.
package sim

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/ftl.go/pkg/board"
)

// Channel counts of the default simulated board, matching the
// A-Star main board layout: D-0..D-8, A-0..A-4, PWM-0..PWM-1.
const (
	DefaultDigitalChannels = 9
	DefaultAnalogChannels  = 5
	DefaultPWMChannels     = 2
)

// Op names passed to FaultFunc.
const (
	OpWriteDigital = "write-digital"
	OpWritePWM     = "write-pwm"
	OpPinMode      = "pin-mode"
	OpReadDigital  = "read-digital"
	OpReadAnalog   = "read-analog"
)

// FaultFunc can make any operation fail, useful to simulate bus errors.
type FaultFunc func(op string, channel int) error

// Board simulates a board in memory.
type Board struct {
	Fault FaultFunc

	lock    sync.Mutex
	digital []bool
	modes   []*board.PinMode
	analog  []int
	pwm     []int
}

// New creates a Board with the given channel counts.
func New(digital, analog, pwm int) *Board {
	return &Board{
		digital: make([]bool, digital),
		modes:   make([]*board.PinMode, digital),
		analog:  make([]int, analog),
		pwm:     make([]int, pwm),
	}
}

// NewDefault creates a Board with the default channel counts.
func NewDefault() *Board {
	return New(DefaultDigitalChannels, DefaultAnalogChannels, DefaultPWMChannels)
}

func (b *Board) fault(op string, channel int) error {
	if f := b.Fault; f != nil {
		return f(op, channel)
	}
	return nil
}

func validChannel(channel, count int) bool {
	return channel >= 0 && channel < count
}

// WriteDigital implements board.Board.
func (b *Board) WriteDigital(ctx context.Context, channel int, on bool) error {
	if err := b.fault(OpWriteDigital, channel); err != nil {
		return err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if !validChannel(channel, len(b.digital)) {
		return board.ErrInvalidChannel
	}
	if mode := b.modes[channel]; mode != nil && mode.IsInput() {
		return board.ErrNotOutput
	}
	b.digital[channel] = on
	glog.V(3).Infof("[sim] D-%d = %v", channel, on)
	return nil
}

// WritePWM implements board.Board.
func (b *Board) WritePWM(ctx context.Context, channel int, value int) error {
	if err := b.fault(OpWritePWM, channel); err != nil {
		return err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if !validChannel(channel, len(b.pwm)) {
		return board.ErrInvalidChannel
	}
	b.pwm[channel] = value
	glog.V(3).Infof("[sim] PWM-%d = %d", channel, value)
	return nil
}

// ConfigureDigitalPinMode implements board.Board.
func (b *Board) ConfigureDigitalPinMode(ctx context.Context, channel int, mode board.PinMode) error {
	if err := b.fault(OpPinMode, channel); err != nil {
		return err
	}
	switch mode {
	case board.Input, board.InputPullUp, board.Output:
	default:
		return board.ErrInvalidMode
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if !validChannel(channel, len(b.modes)) {
		return board.ErrInvalidChannel
	}
	b.modes[channel] = &mode
	if mode == board.InputPullUp {
		b.digital[channel] = true
	}
	glog.V(3).Infof("[sim] D-%d mode %s", channel, mode)
	return nil
}

// ReadDigital implements board.Board.
func (b *Board) ReadDigital(ctx context.Context, channel int) (bool, error) {
	if err := b.fault(OpReadDigital, channel); err != nil {
		return false, err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if !validChannel(channel, len(b.digital)) {
		return false, board.ErrInvalidChannel
	}
	return b.digital[channel], nil
}

// ReadAnalog implements board.Board.
func (b *Board) ReadAnalog(ctx context.Context, channel int) (int, error) {
	if err := b.fault(OpReadAnalog, channel); err != nil {
		return 0, err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if !validChannel(channel, len(b.analog)) {
		return 0, board.ErrInvalidChannel
	}
	return b.analog[channel], nil
}

// SetDigitalInput injects the level seen on a digital channel.
func (b *Board) SetDigitalInput(channel int, on bool) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !validChannel(channel, len(b.digital)) {
		return board.ErrInvalidChannel
	}
	b.digital[channel] = on
	return nil
}

// SetAnalog injects an analog reading.
func (b *Board) SetAnalog(channel int, value int) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !validChannel(channel, len(b.analog)) {
		return board.ErrInvalidChannel
	}
	b.analog[channel] = value
	return nil
}

// PWM returns the last value written to a PWM channel.
func (b *Board) PWM(channel int) int {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !validChannel(channel, len(b.pwm)) {
		return 0
	}
	return b.pwm[channel]
}

// Mode returns the configured mode of a digital channel.
func (b *Board) Mode(channel int) (board.PinMode, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !validChannel(channel, len(b.modes)) || b.modes[channel] == nil {
		return 0, false
	}
	return *b.modes[channel], true
}
