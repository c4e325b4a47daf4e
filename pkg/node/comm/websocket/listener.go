package websocket

import (
	"context"
	"net"
	"net/http"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/ftl.go/pkg/framework"
	"github.com/robotalks/ftl.go/pkg/node/comm"
)

// DefaultPath is the HTTP path serving the WebSocket endpoint.
const DefaultPath = "/ws"

// Listener serves WebSocket connections with a comm.Server.
type Listener struct {
	Addr   string
	Server *comm.Server

	listener net.Listener
	http     *http.Server
}

// Listen creates a Listener bound to addr.
func Listen(addr string, server *comm.Server) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	l := &Listener{Addr: ln.Addr().String(), Server: server, listener: ln}
	mux := http.NewServeMux()
	mux.Handle(DefaultPath, l.Handler())
	l.http = &http.Server{Handler: mux}
	return l, nil
}

// Handler returns the http.Handler accepting WebSocket connections.
func (l *Listener) Handler() http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		l.Server.Serve(New(conn))
	})
}

// Name implements Named.
func (l *Listener) Name() string {
	return "ws:" + l.Addr
}

// AddToLoop implements LoopAdder.
func (l *Listener) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(l)
}

// Run implements Runnable.
func (l *Listener) Run(ctx context.Context) error {
	glog.Infof("listening on ws://%s%s", l.Addr, DefaultPath)
	return fx.RunWithContextCloser(ctx, l.http, func() error {
		return l.http.Serve(l.listener)
	})
}

// Dial connects to a node served at url, e.g. ws://host:port/ws.
func Dial(ctx context.Context, url string) (comm.PacketReadWriter, error) {
	conn, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}
