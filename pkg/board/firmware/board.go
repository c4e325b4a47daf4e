package firmware

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ftl.go/pkg/board"
	"github.com/robotalks/ftl.go/pkg/framework"
)

// Command codes understood by the firmware.
const (
	CodeWriteDigital byte = 0x02
	CodeWritePWM     byte = 0x04
	CodePinMode      byte = 0x06
	CodeReadDigital  byte = 0x08
	CodeReadAnalog   byte = 0x0a
)

// Pin mode values on the wire.
const (
	wireInput       byte = 0
	wireOutput      byte = 1
	wireInputPullUp byte = 2
)

// ErrBadReply indicates the firmware reply can't be decoded.
var ErrBadReply = errors.New("malformed firmware reply")

// Caller sends a command and waits for the reply data.
type Caller interface {
	Call(ctx context.Context, code byte, data []byte) ([]byte, error)
}

// Board implements board.Board by issuing firmware commands.
type Board struct {
	Caller Caller
	// Timeout bounds every command, 0 to rely on the caller's ctx.
	Timeout time.Duration
}

// DefaultTimeout is the default command timeout.
const DefaultTimeout = 100 * time.Millisecond

// NewBoard creates a Board over a Caller.
func NewBoard(caller Caller) *Board {
	return &Board{Caller: caller, Timeout: DefaultTimeout}
}

func (b *Board) call(ctx context.Context, code byte, data ...byte) ([]byte, error) {
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}
	return b.Caller.Call(ctx, code, data)
}

func channelByte(channel int) (byte, error) {
	if channel < 0 || channel > 0xff {
		return 0, board.ErrInvalidChannel
	}
	return byte(channel), nil
}

// WriteDigital implements board.Board.
func (b *Board) WriteDigital(ctx context.Context, channel int, on bool) error {
	ch, err := channelByte(channel)
	if err != nil {
		return err
	}
	var level byte
	if on {
		level = 1
	}
	_, err = b.call(ctx, CodeWriteDigital, ch, level)
	return err
}

// WritePWM implements board.Board.
func (b *Board) WritePWM(ctx context.Context, channel int, value int) error {
	ch, err := channelByte(channel)
	if err != nil {
		return err
	}
	if value < math.MinInt16 || value > math.MaxInt16 {
		return board.ErrInvalidValue
	}
	data := []byte{ch, 0, 0}
	binary.LittleEndian.PutUint16(data[1:], uint16(int16(value)))
	_, err = b.call(ctx, CodeWritePWM, data...)
	return err
}

// ConfigureDigitalPinMode implements board.Board.
func (b *Board) ConfigureDigitalPinMode(ctx context.Context, channel int, mode board.PinMode) error {
	ch, err := channelByte(channel)
	if err != nil {
		return err
	}
	var m byte
	switch mode {
	case board.Input:
		m = wireInput
	case board.InputPullUp:
		m = wireInputPullUp
	case board.Output:
		m = wireOutput
	default:
		return board.ErrInvalidMode
	}
	_, err = b.call(ctx, CodePinMode, ch, m)
	return err
}

// ReadDigital implements board.Board.
func (b *Board) ReadDigital(ctx context.Context, channel int) (bool, error) {
	ch, err := channelByte(channel)
	if err != nil {
		return false, err
	}
	reply, err := b.call(ctx, CodeReadDigital, ch)
	if err != nil {
		return false, err
	}
	if len(reply) < 1 {
		return false, ErrBadReply
	}
	return reply[0] != 0, nil
}

// ReadAnalog implements board.Board.
func (b *Board) ReadAnalog(ctx context.Context, channel int) (int, error) {
	ch, err := channelByte(channel)
	if err != nil {
		return 0, err
	}
	reply, err := b.call(ctx, CodeReadAnalog, ch)
	if err != nil {
		return 0, err
	}
	if len(reply) < 2 {
		return 0, ErrBadReply
	}
	return int(binary.LittleEndian.Uint16(reply)), nil
}

// Conn is a Board connected to the firmware through a Link.
type Conn struct {
	*Board
	Link *Link

	closer io.Closer
}

// Open connects to the firmware at addr, either tcp://host:port for a
// serial bridge or the path of a serial device.
func Open(addr string) (*Conn, error) {
	var rw io.ReadWriteCloser
	if strings.Contains(addr, "://") {
		u, err := url.Parse(addr)
		if err != nil {
			return nil, err
		}
		if u.Scheme != "tcp" {
			return nil, fmt.Errorf("unsupported firmware address scheme %q", u.Scheme)
		}
		if rw, err = net.Dial("tcp", u.Host); err != nil {
			return nil, err
		}
	} else {
		f, err := os.OpenFile(addr, os.O_RDWR, 0)
		if err != nil {
			return nil, err
		}
		rw = f
	}
	return NewConn(rw), nil
}

// NewConn creates a Conn over an opened stream.
func NewConn(rw io.ReadWriteCloser) *Conn {
	link := NewLink(rw)
	link.OnStateChange = func(s LinkState) {
		glog.V(2).Infof("firmware link %s", s)
	}
	return &Conn{Board: NewBoard(link), Link: link, closer: rw}
}

// Name implements framework.Named.
func (c *Conn) Name() string {
	return "firmware"
}

// Run implements framework.Runnable. The link stops when ctx is done.
func (c *Conn) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.drainEvents(ctx)
	return framework.RunWithContextCloser(ctx, c.closer, func() error {
		return c.Link.Run(ctx)
	})
}

func (c *Conn) drainEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-c.Link.Events():
			glog.V(2).Infof("firmware event 0x%02x %x", f.Code, f.Data)
		}
	}
}

// Close closes the underlying stream.
func (c *Conn) Close() error {
	return c.closer.Close()
}
