// Package io provides shell commands for the I/O of FTL nodes.
package io

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/ftl.go/pkg/cli/sh"
	"github.com/robotalks/ftl.go/pkg/node/msgs"
)

// ParseOutputs parses PORT=VALUE arguments.
func ParseOutputs(args []string) (*msgs.IOMsgArray, error) {
	outputs := &msgs.IOMsgArray{}
	for _, arg := range args {
		pos := strings.Index(arg, "=")
		if pos <= 0 {
			return nil, fmt.Errorf("invalid output %q, expect PORT=VALUE", arg)
		}
		val, err := strconv.ParseFloat(arg[pos+1:], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value of %s: %v", arg[:pos], err)
		}
		outputs.Add(arg[:pos], val)
	}
	return outputs, nil
}

// ParsePinConfigs parses PORT=MODE arguments. MODE is an option name
// like DIGITAL_OUT, or its numeric value.
func ParsePinConfigs(args []string) ([]*msgs.PinConfig, error) {
	configs := make([]*msgs.PinConfig, 0, len(args))
	for _, arg := range args {
		pos := strings.Index(arg, "=")
		if pos <= 0 {
			return nil, fmt.Errorf("invalid config %q, expect PORT=MODE", arg)
		}
		name := strings.ToUpper(arg[pos+1:])
		opt, ok := msgs.ParsePinConfigOption(name)
		if !ok {
			val, err := strconv.ParseInt(name, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid mode of %s: %q", arg[:pos], arg[pos+1:])
			}
			opt = msgs.PinConfigOption(val)
		}
		configs = append(configs, &msgs.PinConfig{Port: arg[:pos], Config: opt})
	}
	return configs, nil
}

var (
	// ConfigCmd exposes ConfigureIO command.
	ConfigCmd = ishell.Cmd{
		Name:    "io.config",
		Aliases: []string{"ioc"},
		Help:    "PORT=DIGITAL_IN|DIGITAL_IN_PULLUP|DIGITAL_IN_PULLDOWN|DIGITAL_OUT ...",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("PORT=MODE required"))
				return
			}
			configs, err := ParsePinConfigs(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, &msgs.ConfigureIO{Config: configs})
		}),
	}

	// OutputsCmd sends RobotOutputs.
	OutputsCmd = ishell.Cmd{
		Name:    "io.out",
		Aliases: []string{"ioo"},
		Help:    "PORT=VALUE ...",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("PORT=VALUE required"))
				return
			}
			outputs, err := ParseOutputs(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if sh.SendEvent(c, (*msgs.RobotOutputs)(outputs)) == nil && !sh.ShellFrom(c).OutputJSON {
				c.Println("SENT")
			}
		}),
	}

	// StateCmd exposes IOStateQuery command.
	StateCmd = ishell.Cmd{
		Name:    "io.state",
		Aliases: []string{"ios"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.IOStateQuery{})
		}),
	}

	// RobotCmd exposes RobotCommand command.
	RobotCmd = ishell.Cmd{
		Name:    "io.cmd",
		Aliases: []string{"cmd"},
		Help:    "COMMAND [ARGS...]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("COMMAND required"))
				return
			}
			sh.DoCommand(c, &msgs.RobotCommand{Command: c.Args[0], Args: c.Args[1:]})
		}),
	}

	// WatchCmd prints received sensor states.
	WatchCmd = ishell.Cmd{
		Name:    "io.watch",
		Aliases: []string{"iow"},
		Help:    "[COUNT] [TIMEOUT]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			count, wait := 1, 5*time.Second
			if len(c.Args) > 0 {
				n, err := strconv.Atoi(c.Args[0])
				if err != nil || n <= 0 {
					c.Err(fmt.Errorf("invalid COUNT %q", c.Args[0]))
					return
				}
				count = n
			}
			if len(c.Args) > 1 {
				d, err := time.ParseDuration(c.Args[1])
				if err != nil {
					c.Err(fmt.Errorf("invalid TIMEOUT: %v", err))
					return
				}
				wait = d
			}
			events := sh.ShellFrom(c).Events()
			timeout := time.After(wait)
			for count > 0 {
				select {
				case ev := <-events:
					if _, ok := ev.(*msgs.SensorState); !ok {
						continue
					}
					if err := sh.PrintMsg(c, ev); err != nil {
						c.Err(err)
						return
					}
					count--
				case <-timeout:
					c.Err(fmt.Errorf("timeout"))
					return
				}
			}
		}),
	}
)

func init() {
	sh.AddCmds(
		&ConfigCmd,
		&OutputsCmd,
		&StateCmd,
		&RobotCmd,
		&WatchCmd,
	)
}
