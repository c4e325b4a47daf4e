// Package board defines the hardware board abstraction the I/O layer
// drives.
package board

import (
	"context"
	"errors"
)

// PinMode is the electrical configuration of a digital channel.
type PinMode int

// Pin modes.
const (
	Input PinMode = iota
	InputPullUp
	Output
)

func (m PinMode) String() string {
	switch m {
	case Input:
		return "INPUT"
	case InputPullUp:
		return "INPUT_PULLUP"
	case Output:
		return "OUTPUT"
	}
	return "UNKNOWN"
}

// IsInput tells if the mode reads the channel.
func (m PinMode) IsInput() bool {
	return m == Input || m == InputPullUp
}

// Board is a robot control board. Every operation may fail with a
// board specific error.
type Board interface {
	WriteDigital(ctx context.Context, channel int, on bool) error
	WritePWM(ctx context.Context, channel int, value int) error
	ConfigureDigitalPinMode(ctx context.Context, channel int, mode PinMode) error
	ReadDigital(ctx context.Context, channel int) (bool, error)
	ReadAnalog(ctx context.Context, channel int) (int, error)
}

var (
	// ErrInvalidChannel indicates the channel doesn't exist on the board.
	ErrInvalidChannel = errors.New("invalid channel")
	// ErrInvalidMode indicates the pin mode is not supported.
	ErrInvalidMode = errors.New("invalid pin mode")
	// ErrNotOutput indicates writing to a channel configured as input.
	ErrNotOutput = errors.New("channel not configured as output")
	// ErrInvalidValue indicates the value can't be represented by the board.
	ErrInvalidValue = errors.New("invalid value")
)
