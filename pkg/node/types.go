// Package node connects a robot node to the outside world: the node
// registers itself, receives commands and events, and publishes events.
package node

import (
	"context"

	fx "github.com/robotalks/ftl.go/pkg/framework"
)

// Registrar registers a node to a registry and sends its events.
type Registrar interface {
	// SendEvent sends an event to whoever is connected.
	SendEvent(context.Context, fx.Message) error
}

// Command represents a received command to be processed.
type Command interface {
	Msg() fx.Message
	Done(fx.Message) error
}

// CommandMsg wraps a Command as a Message.
type CommandMsg struct {
	Command Command
}

// NewMessage implements Message.
func (m *CommandMsg) NewMessage() fx.Message { return &CommandMsg{} }

// Ref is a reference to a node.
type Ref struct {
	// Type is the node type (robot type).
	Type string
	// ID is unique ID of the node.
	ID string
}

// Name retrieves the name from ref.
func (r Ref) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid indicates Ref is valid.
func (r Ref) IsValid() bool {
	return r.Type != "" && r.ID != ""
}

// Meta provides metadata of a node.
type Meta struct {
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// Info provides information of a node.
type Info struct {
	Ref  Ref
	Meta Meta
}

// Connector is used by tools to connect to a node.
type Connector interface {
	// Discover enumerates registered nodes.
	Discover(context.Context) ([]Info, error)
	// Connect connects to the specified node.
	Connect(context.Context, Ref) (Conn, error)
}

// Conn is the connection to a node.
type Conn interface {
	// DoCommand executes a command.
	DoCommand(fx.Message) CommandFuture
	// SendEvent sends an event to the node.
	SendEvent(fx.Message) error
}

// Result represents result of a command.
type Result struct {
	Msg fx.Message
	Err error
}

// CommandFuture is the future of sent command.
type CommandFuture interface {
	ResultChan() <-chan Result
}
