// Package websocket carries node packets over WebSocket binary frames,
// one packet per frame.
package websocket

import (
	"golang.org/x/net/websocket"

	"github.com/robotalks/ftl.go/pkg/node/comm"
)

// ReadWriter implements PacketReadWriter over a WebSocket connection.
type ReadWriter struct {
	Conn *websocket.Conn
}

// New wraps conn limiting received frames to comm.MaxPacketSize.
func New(conn *websocket.Conn) *ReadWriter {
	conn.PayloadType = websocket.BinaryFrame
	conn.MaxPayloadBytes = comm.MaxPacketSize
	return &ReadWriter{Conn: conn}
}

// Name implements Named with the peer address.
func (p *ReadWriter) Name() string {
	if req := p.Conn.Request(); req != nil {
		return "ws:" + req.RemoteAddr
	}
	return "ws:" + p.Conn.RemoteAddr().String()
}

// ReadPacket implements PacketReader. Text frames are read as bytes.
// An oversized frame is skipped and comm.ErrPacketTooLarge returned.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive(p.Conn, &pkt)
	if err == websocket.ErrFrameTooLarge {
		return nil, comm.ErrPacketTooLarge
	}
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if len(pkt) > comm.MaxPacketSize {
		return comm.ErrPacketTooLarge
	}
	return websocket.Message.Send(p.Conn, pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return p.Conn.Close()
}
