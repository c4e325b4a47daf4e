package ioctl

import (
	"flag"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ftl.go/pkg/board"
	"github.com/robotalks/ftl.go/pkg/board/firmware"
	"github.com/robotalks/ftl.go/pkg/board/sim"
	fx "github.com/robotalks/ftl.go/pkg/framework"
	"github.com/robotalks/ftl.go/pkg/node"
	"github.com/robotalks/ftl.go/pkg/port"
)

// Config defines the I/O options of a node.
type Config struct {
	// Mock uses the simulated board.
	Mock bool
	// BoardAddr is the firmware link address, a serial device path
	// or tcp://host:port.
	BoardAddr    string
	ProfileFile  string
	PWMRange     port.Range
	PollInterval time.Duration
	SensorPorts  []port.Address
}

var defaultConfig = Config{
	BoardAddr:    "/dev/ttyACM0",
	PWMRange:     port.DefaultPWMRange,
	PollInterval: DefaultPollInterval,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.BoolVar(&defaultConfig.Mock, "mock", defaultConfig.Mock, "Use the simulated board")
	flag.StringVar(&defaultConfig.BoardAddr, "board", defaultConfig.BoardAddr, "Firmware link address: serial device or tcp://host:port")
	flag.StringVar(&defaultConfig.ProfileFile, "profile", defaultConfig.ProfileFile, "Robot profile YAML file")
	flag.IntVar(&defaultConfig.PWMRange.Min, "pwm-min", defaultConfig.PWMRange.Min, "Minimum PWM value")
	flag.IntVar(&defaultConfig.PWMRange.Max, "pwm-max", defaultConfig.PWMRange.Max, "Maximum PWM value")
	flag.DurationVar(&defaultConfig.PollInterval, "poll-interval", defaultConfig.PollInterval, "Sensor poll interval")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// flagsSet returns the names of flags set on the command line.
func flagsSet() map[string]bool {
	set := make(map[string]bool)
	if flag.Parsed() {
		flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	}
	return set
}

// ApplyProfile merges the profile into the config. Values given
// explicitly on the command line win.
func (c *Config) ApplyProfile(p *Profile) error {
	return c.applyProfile(p, flagsSet())
}

func (c *Config) applyProfile(p *Profile, explicit map[string]bool) error {
	if !explicit["mock"] && p.Board.Type != "" {
		c.Mock = p.Board.Type == BoardSim
	}
	if !explicit["board"] && p.Board.Device != "" {
		c.BoardAddr = p.Board.Device
	}
	if p.PWM != nil {
		if !explicit["pwm-min"] {
			c.PWMRange.Min = p.PWM.Min
		}
		if !explicit["pwm-max"] {
			c.PWMRange.Max = p.PWM.Max
		}
	}
	interval, err := p.Interval()
	if err != nil {
		return err
	}
	if !explicit["poll-interval"] && interval > 0 {
		c.PollInterval = interval
	}
	c.SensorPorts = append(c.SensorPorts, p.SensorPorts()...)
	return nil
}

// NewBoard opens the board selected by the config.
func (c *Config) NewBoard() (board.Board, error) {
	if c.Mock {
		glog.Info("using simulated board")
		return sim.NewDefault(), nil
	}
	glog.Infof("opening firmware link %s", c.BoardAddr)
	conn, err := firmware.Open(c.BoardAddr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// NewController loads the profile if any, opens the board and creates
// the Controller publishing through reg.
func (c *Config) NewController(reg node.Registrar) (*Controller, error) {
	if c.ProfileFile != "" {
		p, err := LoadProfile(c.ProfileFile)
		if err != nil {
			return nil, err
		}
		if err = c.ApplyProfile(p); err != nil {
			return nil, err
		}
	}
	if err := c.PWMRange.Validate(); err != nil {
		return nil, err
	}
	if !port.PWMLimits.Covers(c.PWMRange) {
		return nil, fmt.Errorf("pwm range %s exceeds %s", c.PWMRange, port.PWMLimits)
	}
	b, err := c.NewBoard()
	if err != nil {
		return nil, err
	}
	ctl := NewController(b, reg)
	ctl.Dispatcher.PWMRange = c.PWMRange
	ctl.Poller.Interval = c.PollInterval
	ctl.Poller.Ports = c.SensorPorts
	if runner, ok := b.(fx.Runnable); ok {
		ctl.boardRunner = runner
	}
	return ctl, nil
}
