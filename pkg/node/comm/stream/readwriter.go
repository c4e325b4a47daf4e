// Package stream carries node packets over a byte stream, e.g. TCP.
package stream

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/robotalks/ftl.go/pkg/node/comm"
)

// ReadWriter implements PacketReadWriter.
// Each packet is prefixed by its length as 4-byte little-endian.
type ReadWriter struct {
	io.ReadWriter
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{s}
}

// Name implements Named with the remote address of a net.Conn.
func (p *ReadWriter) Name() string {
	if conn, ok := p.ReadWriter.(net.Conn); ok {
		return "tcp:" + conn.RemoteAddr().String()
	}
	return fmt.Sprintf("stream:%T", p.ReadWriter)
}

// ReadPacket implements PacketReader. A packet longer than
// comm.MaxPacketSize is skipped and comm.ErrPacketTooLarge returned.
// A stream ending inside a packet gives io.ErrUnexpectedEOF.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(p, prefix[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(prefix[:])
	if size > comm.MaxPacketSize {
		if _, err := io.CopyN(io.Discard, p, int64(size)); err != nil {
			return nil, unexpectedEOF(err)
		}
		return nil, comm.ErrPacketTooLarge
	}
	pkt := make([]byte, size)
	if _, err := io.ReadFull(p, pkt); err != nil {
		return nil, unexpectedEOF(err)
	}
	return pkt, nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if len(pkt) > comm.MaxPacketSize {
		return comm.ErrPacketTooLarge
	}
	buf := make([]byte, 4+len(pkt))
	binary.LittleEndian.PutUint32(buf, uint32(len(pkt)))
	copy(buf[4:], pkt)
	_, err := p.Write(buf)
	return err
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
