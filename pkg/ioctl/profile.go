package ioctl

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/ftl.go/pkg/port"
)

// Board types of a Profile.
const (
	BoardSim      = "sim"
	BoardFirmware = "firmware"
)

// Profile describes the robot hardware, e.g.
//
//	board:
//	  type: firmware
//	  device: /dev/ttyACM0
//	pwm: {min: -128, max: 128}
//	pollInterval: 100ms
//	sensors: [A-0, A-1, D-6]
type Profile struct {
	Board struct {
		Type   string `yaml:"type"`
		Device string `yaml:"device"`
	} `yaml:"board"`
	PWM          *port.Range `yaml:"pwm"`
	PollInterval string      `yaml:"pollInterval"`
	Sensors      []string    `yaml:"sensors"`
}

// ParseProfile parses a YAML profile and validates it.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %v", err)
	}
	switch p.Board.Type {
	case "", BoardSim, BoardFirmware:
	default:
		return nil, fmt.Errorf("unknown board type %q", p.Board.Type)
	}
	if p.Board.Type == BoardFirmware && p.Board.Device == "" {
		return nil, fmt.Errorf("board device required for %s", BoardFirmware)
	}
	if p.PWM != nil {
		if err := p.PWM.Validate(); err != nil {
			return nil, err
		}
	}
	if _, err := p.Interval(); err != nil {
		return nil, err
	}
	for _, s := range p.Sensors {
		switch port.Resolve(s).(type) {
		case port.Digital, port.Analog:
		default:
			return nil, fmt.Errorf("invalid sensor port %q", s)
		}
	}
	return &p, nil
}

// LoadProfile loads a profile file.
func LoadProfile(fn string) (*Profile, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	p, err := ParseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn, err)
	}
	return p, nil
}

// Interval parses PollInterval, 0 if not set.
func (p *Profile) Interval() (time.Duration, error) {
	if p.PollInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(p.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid poll interval %q: %v", p.PollInterval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid poll interval %q", p.PollInterval)
	}
	return d, nil
}

// SensorPorts resolves the sensor ports.
func (p *Profile) SensorPorts() []port.Address {
	return port.ResolveAll(p.Sensors)
}
