package ioctl

import (
	"context"

	"github.com/robotalks/ftl.go/pkg/node"
	"github.com/robotalks/ftl.go/pkg/node/msgs"
)

// Publisher sends sensor state snapshots as events.
type Publisher struct {
	Registrar node.Registrar
}

// Publish forwards the state as is.
func (p *Publisher) Publish(ctx context.Context, state *msgs.IOMsgArray) error {
	return p.Registrar.SendEvent(ctx, (*msgs.SensorState)(state))
}
