package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	fx "github.com/robotalks/ftl.go/pkg/framework"
	"github.com/robotalks/ftl.go/pkg/node"
	env "github.com/robotalks/ftl.go/pkg/node/env/connector"
	"github.com/robotalks/ftl.go/pkg/node/msgs"
)

var (
	interval = time.Second
	ports    = 5
)

func init() {
	env.SetupFlags()
	flag.DurationVar(&interval, "interval", interval, "Interval between output batches.")
	flag.IntVar(&ports, "ports", ports, "Number of ports A-0..A-N to send.")
}

type tester struct {
	conn  node.Conn
	value float64
}

// Run implements Runnable.
func (t *tester) Run(ctx context.Context) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.value++
			outputs := &msgs.IOMsgArray{}
			for i := 0; i < ports; i++ {
				outputs.Add(fmt.Sprintf("A-%d", i), t.value)
			}
			log.Printf("sending: %s", outputs.String())
			if err := t.conn.SendEvent((*msgs.RobotOutputs)(outputs)); err != nil {
				log.Printf("send error: %v", err)
			}
		}
	}
}

// Control implements Controller.
func (t *tester) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		if state, ok := mctx.CurrentMessage().(*msgs.SensorState); ok {
			mctx.MessageTaken()
			log.Printf("sensor state: %s", state.Array().String())
		}
	}))
	return nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	conn, err := env.NewConfig().Connect(context.Background())
	if err != nil {
		log.Fatalln(err)
	}
	t := &tester{conn: conn}
	loop := fx.NewLoop()
	if adder, ok := conn.(fx.LoopAdder); ok {
		loop.Add(adder)
	}
	loop.AddController(fx.StageControl, t)
	loop.RunOrFail()
}
