package stream

import (
	"context"
	"net"

	"github.com/golang/glog"

	fx "github.com/robotalks/ftl.go/pkg/framework"
	"github.com/robotalks/ftl.go/pkg/node/comm"
)

// Listener accepts TCP connections and serves them with a comm.Server.
type Listener struct {
	Addr   string
	Server *comm.Server

	listener net.Listener
}

// Listen creates a Listener bound to addr.
func Listen(addr string, server *comm.Server) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{Addr: ln.Addr().String(), Server: server, listener: ln}, nil
}

// Name implements Named.
func (l *Listener) Name() string {
	return "tcp:" + l.Addr
}

// AddToLoop implements LoopAdder.
func (l *Listener) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(l)
}

// Run implements Runnable.
func (l *Listener) Run(ctx context.Context) error {
	glog.Infof("listening on tcp %s", l.Addr)
	return fx.RunWithContextCloser(ctx, l.listener, func() error {
		for {
			conn, err := l.listener.Accept()
			if err != nil {
				return err
			}
			go l.Server.Serve(New(conn))
		}
	})
}

// Dial connects to a node served by a Listener.
func Dial(ctx context.Context, addr string) (comm.PacketReadWriter, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}
