package main

import (
	"github.com/robotalks/ftl.go/pkg/cli/sh"
	env "github.com/robotalks/ftl.go/pkg/node/env/connector"

	_ "github.com/robotalks/ftl.go/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
