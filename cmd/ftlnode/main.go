package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"

	"github.com/golang/glog"

	fx "github.com/robotalks/ftl.go/pkg/framework"
	"github.com/robotalks/ftl.go/pkg/ioctl"
	"github.com/robotalks/ftl.go/pkg/node/env/host"
	"github.com/robotalks/ftl.go/pkg/node/msgs"
)

func init() {
	host.SetupFlags()
	ioctl.SetupFlags()
}

func main() {
	flag.Parse()

	env := host.NewConfig().MustNewEnv()
	ctl, err := ioctl.NewConfig().NewController(env.Registrar)
	if err != nil {
		glog.Exit(err)
	}
	ctl.OnCommand(ioctl.CommandListenerFunc(func(ctx context.Context, cmd *msgs.RobotCommand) {
		glog.Infof("command %q %v", cmd.Command, cmd.Args)
	}))
	ctl.Dispatcher.Subscribe(ioctl.OutputsListenerFunc(func(ctx context.Context, outputs *msgs.IOMsgArray) {
		glog.V(1).Infof("outputs %s", outputs.String())
	}))

	fx.NewLoop().
		Add(env, ctl).
		RunOrFail()
}
