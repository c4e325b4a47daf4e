// Package host sets up the environment of a robot node: its identity
// and the transports it's reachable through.
package host

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	fx "github.com/robotalks/ftl.go/pkg/framework"
	"github.com/robotalks/ftl.go/pkg/node"
	"github.com/robotalks/ftl.go/pkg/node/comm"
	"github.com/robotalks/ftl.go/pkg/node/comm/mqtt"
	"github.com/robotalks/ftl.go/pkg/node/comm/stream"
	"github.com/robotalks/ftl.go/pkg/node/comm/websocket"
	"github.com/robotalks/ftl.go/pkg/node/env"
)

const (
	// DefaultType is the node type of FTL robots.
	DefaultType = "ftl"
	// DefaultID is the node ID unless -name or FTL_NODE_ID is given.
	DefaultID = "ftl_robot"
)

// Config provides common options to setup an env for nodes.
type Config struct {
	Info node.Info

	// MQTTBrokerURL specifies the MQTT broker to use.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// WebSocketAddr is the listen address of the WebSocket endpoint.
	WebSocketAddr string
	// TCPAddr is the listen address of the stream endpoint.
	TCPAddr string
}

var defaultConfig = Config{
	Info: node.Info{
		Ref:  node.Ref{Type: DefaultType, ID: DefaultID},
		Meta: node.Meta{Description: "FTL robot"},
	},
	MQTTBrokerURL: mqtt.DefaultURL,
}

func init() {
	if val := os.Getenv("FTL_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("FTL_NODE_ID"); val != "" {
		defaultConfig.Info.Ref.ID = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Info.Ref.Type, "type", defaultConfig.Info.Ref.Type, "Node type")
	flag.StringVar(&defaultConfig.Info.Ref.ID, "name", defaultConfig.Info.Ref.ID, "Node ID, machine ID if empty")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable")
	flag.StringVar(&defaultConfig.WebSocketAddr, "ws", defaultConfig.WebSocketAddr, "WebSocket listen address, e.g. :8080")
	flag.StringVar(&defaultConfig.TCPAddr, "tcp", defaultConfig.TCPAddr, "TCP listen address, e.g. :7070")
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

// Env is the env of a node.
type Env struct {
	Config    *Config
	Registrar *comm.RegistrarMux
	Server    *comm.Server

	adders []fx.LoopAdder
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	if c.Info.Ref.ID == "" {
		c.Info.Ref.ID = env.MachineID(DefaultID)
	}
	if !c.Info.Ref.IsValid() {
		return nil, fmt.Errorf("node type and id must be specified")
	}
	e := &Env{
		Config:    c,
		Registrar: &comm.RegistrarMux{},
	}
	if c.MQTTBrokerURL != "" {
		reg, err := mqtt.NewRegistrar(c.MQTTBrokerURL, c.Info)
		if err != nil {
			return nil, fmt.Errorf("create MQTT registrar error: %v", err)
		}
		e.Registrar.Add(reg)
	}
	if c.WebSocketAddr != "" {
		ln, err := websocket.Listen(c.WebSocketAddr, e.server())
		if err != nil {
			return nil, fmt.Errorf("listen WebSocket error: %v", err)
		}
		e.adders = append(e.adders, ln)
	}
	if c.TCPAddr != "" {
		ln, err := stream.Listen(c.TCPAddr, e.server())
		if err != nil {
			return nil, fmt.Errorf("listen TCP error: %v", err)
		}
		e.adders = append(e.adders, ln)
	}
	if len(e.Registrar.Registrars) == 0 {
		return nil, fmt.Errorf("at least one transport is required")
	}
	glog.Infof("node %s", c.Info.Ref.Name())
	return e, nil
}

func (e *Env) server() *comm.Server {
	if e.Server == nil {
		e.Server = comm.NewServer()
		e.Registrar.Add(e.Server)
	}
	return e.Server
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	e, err := c.NewEnv()
	if err != nil {
		glog.Exit(err)
	}
	return e
}

// AddToLoop adds transports to loop. Commands not handled by any
// controller are replied as unsupported.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.Add(e.Registrar)
	loop.Add(e.adders...)
	loop.Add(&comm.UnsupportedCommands{})
}
