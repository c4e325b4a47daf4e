package comm

import (
	"context"

	"github.com/robotalks/ftl.go/pkg/node"
)

// DialFunc opens a packet connection to a node.
type DialFunc func(context.Context) (PacketReadWriter, error)

// DirectConnector connects to a single node at a known address,
// without a registry.
type DirectConnector struct {
	Info node.Info
	Dial DialFunc
}

// Discover implements node.Connector.
func (c *DirectConnector) Discover(ctx context.Context) ([]node.Info, error) {
	return []node.Info{c.Info}, nil
}

// Connect implements node.Connector. The ref is ignored as the address
// identifies the node.
func (c *DirectConnector) Connect(ctx context.Context, ref node.Ref) (node.Conn, error) {
	rw, err := c.Dial(ctx)
	if err != nil {
		return nil, err
	}
	conn := &Conn{}
	conn.Init(rw)
	return conn, nil
}
