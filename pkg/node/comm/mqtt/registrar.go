package mqtt

import (
	"context"
	"encoding/json"

	fx "github.com/robotalks/ftl.go/pkg/framework"
	"github.com/robotalks/ftl.go/pkg/node"
	"github.com/robotalks/ftl.go/pkg/node/comm"
)

// Registrar implements node.Registrar using MQTT.
type Registrar struct {
	Queue *Queue
	Info  node.Info

	meta      []byte
	registrar comm.Registrar
}

// NewRegistrar creates a Registrar.
func NewRegistrar(brokerURL string, info node.Info) (*Registrar, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	metaTopic := info.Ref.Name() + "/meta"
	// an empty retained meta removes the node from discovery.
	opts.SetBinaryWill(topicPrefix+metaTopic, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("ftl:" + info.Ref.Name())
	}
	r := &Registrar{
		Queue: NewQueue(opts, topicPrefix),
		Info:  info,
		meta:  meta,
	}
	r.Queue.OnConnect = func(q *Queue) {
		q.PubWith(metaTopic, r.meta, 1, true)
	}
	r.registrar.Init(NewPacketReadWriter(r.Queue).ForNode(info.Ref))
	return r, nil
}

// Name implements Named.
func (r *Registrar) Name() string {
	return "mqtt:" + r.Info.Ref.Name()
}

// SendEvent implements node.Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	return r.registrar.SendEvent(ctx, msg)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(&r.registrar)
	loop.AddRunnable(r)
}

// Run implements Runnable.
func (r *Registrar) Run(ctx context.Context) error {
	r.Queue.Connect()
	<-ctx.Done()
	r.Queue.PubWith(r.Info.Ref.Name()+"/meta", nil, 1, true).Wait()
	r.Queue.Close()
	return ctx.Err()
}
