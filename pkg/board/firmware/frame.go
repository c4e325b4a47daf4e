package firmware

import (
	"io"
	"time"
)

// Seq is the sequence number of a frame. Valid values are 1..0xef,
// 0xf0 and above are reserved for sync bytes.
type Seq byte

// NewSeq creates a random valid sequence number.
func NewSeq() Seq {
	return Seq(byte(time.Now().UnixNano())).Next()
}

// Next returns the sequence number following s.
func (s Seq) Next() Seq {
	n := byte(s) + 1
	if n == 0 || n >= 0xf0 {
		n = 1
	}
	return Seq(n)
}

// IsValid checks s can be used as a frame sequence.
func (s Seq) IsValid() bool {
	n := byte(s)
	return n > 0 && n < 0xf0
}

// Frame bits.
const (
	codeMask    byte = 0x8f
	lenMask     byte = 0x70
	longLen     byte = 7
	maxDataLen       = 0x7f
	eventBit    byte = 0x80
	errorBit    byte = 0x01
	replyCodeMk byte = 0x7e
)

// Frame is one unit exchanged over the link.
type Frame struct {
	Seq  Seq
	Code byte
	Data []byte
}

// IsEvent tells the frame is an event raised by the firmware.
func (f *Frame) IsEvent() bool {
	return f.Code&eventBit != 0
}

func (f *Frame) header() []byte {
	l := byte(len(f.Data))
	if l < longLen {
		return []byte{byte(f.Seq), f.Code&codeMask | (l<<4)&lenMask}
	}
	return []byte{byte(f.Seq), f.Code&codeMask | lenMask, l}
}

// Bytes encodes the frame.
func (f *Frame) Bytes() []byte {
	return append(f.header(), f.Data...)
}

// WriteTo writes the encoded frame.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.Bytes())
	return int64(n), err
}
