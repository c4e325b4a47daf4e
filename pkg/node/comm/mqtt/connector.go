package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/ftl.go/pkg/framework"
	"github.com/robotalks/ftl.go/pkg/node"
	"github.com/robotalks/ftl.go/pkg/node/comm"
)

// Connector implements node.Connector using MQTT.
type Connector struct {
	DiscoverTimeout time.Duration

	brokerURL string
}

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	if _, _, err := ClientOptionsFromURL(brokerURL); err != nil {
		return nil, err
	}
	return &Connector{
		DiscoverTimeout: DefaultDiscoverTimeout,
		brokerURL:       brokerURL,
	}, nil
}

func (c *Connector) newQueue() *Queue {
	q, err := NewQueueFromURL(c.brokerURL)
	if err != nil {
		// validated in NewConnector.
		panic(err)
	}
	return q
}

// ParseMeta converts a retained meta message into node.Info.
// ok is false if the topic is not a meta topic or the node is gone.
func ParseMeta(topic string, payload []byte) (info node.Info, ok bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || items[2] != "meta" || len(payload) == 0 {
		return
	}
	info.Ref = node.Ref{Type: items[0], ID: items[1]}
	if err := json.Unmarshal(payload, &info.Meta); err != nil {
		glog.Warningf("%s: invalid meta: %v", topic, err)
	}
	return info, true
}

// Discover implements node.Connector.
func (c *Connector) Discover(ctx context.Context) (res []node.Info, err error) {
	q := c.newQueue()
	token := q.Connect()
	token.Wait()
	if err = token.Error(); err != nil {
		return
	}
	defer q.Close()
	resCh := make(chan node.Info, 16)
	q.Sub("+/+/meta", Handler(func(topic string, payload []byte) {
		if info, ok := ParseMeta(topic, payload); ok {
			select {
			case resCh <- info:
			case <-time.After(time.Second):
			}
		}
	}))

	dur := c.DiscoverTimeout
	if dur == 0 {
		dur = DefaultDiscoverTimeout
	}
	timeout := time.After(dur)
	for {
		select {
		case info := <-resCh:
			res = append(res, info)
		case <-timeout:
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}

// Connect implements node.Connector.
func (c *Connector) Connect(ctx context.Context, ref node.Ref) (node.Conn, error) {
	conn := &Conn{Queue: c.newQueue()}
	conn.Init(NewPacketReadWriter(conn.Queue).ForConnector(ref))
	token := conn.Queue.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}
	return conn, nil
}

// Conn implements node.Conn using MQTT.
type Conn struct {
	comm.Conn
	Queue *Queue
}

// AddToLoop implements LoopAdder.
func (c *Conn) AddToLoop(l *fx.Loop) {
	c.Conn.AddToLoop(l)
	l.AddRunnable(fx.NamedRun("mqtt-conn", runCloser{c.Queue}))
}

type runCloser struct {
	q *Queue
}

func (r runCloser) Run(ctx context.Context) error {
	<-ctx.Done()
	r.q.Close()
	return ctx.Err()
}
