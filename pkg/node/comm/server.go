package comm

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"
	"github.com/google/uuid"

	fx "github.com/robotalks/ftl.go/pkg/framework"
)

// Server serves the node over accepted connections, each with its own
// Pipe. Events are broadcast to all connections.
type Server struct {
	lock   sync.RWMutex
	ctx    context.Context
	ready  chan struct{}
	pipes  map[string]*Pipe
	closed PipeStats
}

// ConnStats is the packet counters of an active connection.
type ConnStats struct {
	ID     string
	Remote string
	PipeStats
}

// NewServer creates a Server.
func NewServer() *Server {
	return &Server{
		ready: make(chan struct{}),
		pipes: make(map[string]*Pipe),
	}
}

// Name implements Named.
func (s *Server) Name() string {
	return "server"
}

// Run implements Runnable. It must be started by the loop before
// connections are served, and connections are closed when ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.lock.Lock()
	s.ctx = ctx
	close(s.ready)
	s.lock.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

// AddToLoop implements LoopAdder.
func (s *Server) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(s)
}

// Serve runs a connection until it's closed.
func (s *Server) Serve(rw PacketReadWriter) error {
	<-s.ready
	id := uuid.New().String()
	pipe := &Pipe{Name: id, ReadWriter: rw}
	remote := fx.NameOf(rw, "unknown")
	s.lock.Lock()
	ctx := s.ctx
	s.pipes[id] = pipe
	s.lock.Unlock()
	glog.Infof("connection %s from %s accepted", id, remote)

	err := pipe.Run(ctx)

	stats := pipe.Stats()
	s.lock.Lock()
	delete(s.pipes, id)
	s.closed.Add(stats)
	s.lock.Unlock()
	glog.Infof("connection %s closed, %d received, %d dropped, %d rejected: %v",
		id, stats.Received, stats.Dropped, stats.Rejected, err)
	return err
}

// NumConns returns the number of active connections.
func (s *Server) NumConns() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.pipes)
}

// Conns returns the counters of active connections.
func (s *Server) Conns() []ConnStats {
	s.lock.RLock()
	defer s.lock.RUnlock()
	conns := make([]ConnStats, 0, len(s.pipes))
	for id, pipe := range s.pipes {
		conns = append(conns, ConnStats{
			ID:        id,
			Remote:    fx.NameOf(pipe.ReadWriter, "unknown"),
			PipeStats: pipe.Stats(),
		})
	}
	return conns
}

// Stats returns the counters summed over all connections, including
// the closed ones.
func (s *Server) Stats() PipeStats {
	s.lock.RLock()
	defer s.lock.RUnlock()
	total := s.closed
	for _, pipe := range s.pipes {
		total.Add(pipe.Stats())
	}
	return total
}

// SendEvent implements node.Registrar.
func (s *Server) SendEvent(ctx context.Context, msg fx.Message) error {
	s.lock.RLock()
	pipes := make([]*Pipe, 0, len(s.pipes))
	for _, pipe := range s.pipes {
		pipes = append(pipes, pipe)
	}
	s.lock.RUnlock()
	var errs fx.AggregatedError
	for _, pipe := range pipes {
		if err := pipe.SendEventMsg(msg); err != nil {
			errs.Add(fmt.Errorf("connection %s: %w", pipe.Name, err))
		}
	}
	return errs.Aggregate()
}
