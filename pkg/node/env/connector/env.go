// Package connector sets up Connectors for tools talking to nodes.
package connector

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/ftl.go/pkg/node"
	"github.com/robotalks/ftl.go/pkg/node/comm"
	"github.com/robotalks/ftl.go/pkg/node/comm/mqtt"
	"github.com/robotalks/ftl.go/pkg/node/comm/stream"
	"github.com/robotalks/ftl.go/pkg/node/comm/websocket"
)

// Config provides common options to setup Connectors.
type Config struct {
	Ref node.Ref

	// RegistryURL specifies where nodes are found:
	// mqtt://host:port/topic-prefix for a registry,
	// tcp://host:port or ws://host:port/ws for a single node.
	RegistryURL string
}

var defaultConfig = Config{
	Ref:         node.Ref{Type: "ftl"},
	RegistryURL: mqtt.DefaultURL,
}

func init() {
	if val := os.Getenv("FTL_NODE_ID"); val != "" {
		defaultConfig.Ref.ID = val
	}
	if val := os.Getenv("FTL_REGISTRY_URL"); val != "" {
		defaultConfig.RegistryURL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Ref.Type, "node-type", defaultConfig.Ref.Type, "Node type to connect.")
	flag.StringVar(&defaultConfig.Ref.ID, "node-id", defaultConfig.Ref.ID, "Node ID to connect.")
	flag.StringVar(&defaultConfig.RegistryURL, "reg", defaultConfig.RegistryURL, "Node registry URL.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewConnector creates a Connector using current config.
func (c *Config) NewConnector() (node.Connector, error) {
	parsedURL, err := url.Parse(c.RegistryURL)
	if err != nil {
		return nil, fmt.Errorf("invalid registry URL: %v", err)
	}
	direct := func(dial comm.DialFunc) node.Connector {
		ref := c.Ref
		if !ref.IsValid() {
			ref = node.Ref{Type: parsedURL.Scheme, ID: strings.Replace(parsedURL.Host, ":", "-", -1)}
		}
		return &comm.DirectConnector{Info: node.Info{Ref: ref}, Dial: dial}
	}
	switch parsedURL.Scheme {
	case "mqtt", "mqtts":
		return mqtt.NewConnector(c.RegistryURL)
	case "tcp":
		return direct(func(ctx context.Context) (comm.PacketReadWriter, error) {
			return stream.Dial(ctx, parsedURL.Host)
		}), nil
	case "ws", "wss":
		return direct(func(ctx context.Context) (comm.PacketReadWriter, error) {
			return websocket.Dial(ctx, c.RegistryURL)
		}), nil
	default:
		return nil, fmt.Errorf("unknown registry URL scheme: %q", parsedURL.Scheme)
	}
}

// MustNewConnector creates a Connector and fails on error.
func (c *Config) MustNewConnector() node.Connector {
	conn, err := c.NewConnector()
	if err != nil {
		glog.Exit(err)
	}
	return conn
}

// Connect directly connects to a node.
func (c *Config) Connect(ctx context.Context) (node.Conn, error) {
	connector, err := c.NewConnector()
	if err != nil {
		return nil, err
	}
	if _, ok := connector.(*comm.DirectConnector); !ok && !c.Ref.IsValid() {
		return nil, fmt.Errorf("node type and id must be specified")
	}
	return connector.Connect(ctx, c.Ref)
}
