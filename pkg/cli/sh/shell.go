// Package sh provides the interactive shell talking to FTL nodes.
package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/abiosoft/ishell"

	fx "github.com/robotalks/ftl.go/pkg/framework"
	"github.com/robotalks/ftl.go/pkg/node"
	env "github.com/robotalks/ftl.go/pkg/node/env/connector"
	"github.com/robotalks/ftl.go/pkg/node/msgs"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool
	Timeout     time.Duration

	Shell  *ishell.Shell
	Config *env.Config
	Loop   *ConnLoop
}

// ConnLoop is a running loop with a node connection.
type ConnLoop struct {
	Ctx    context.Context
	Cancel func()
	Ref    node.Ref
	Loop   *fx.Loop
	Conn   node.Conn

	events chan fx.Message
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
	eventsBuffer      = 16
)

var (
	evalOnly   bool
	outputJSON bool
	timeout    = time.Second

	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.DurationVar(&timeout, "timeout", timeout, "Command timeout.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     timeout,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Loop == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// FormatInfo prints node.Info into friendly string for display.
func FormatInfo(info node.Info) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%s", info.Ref.Name())
	if info.Meta.Description != "" {
		fmt.Fprintf(&w, ": %s", info.Meta.Description)
	}
	return w.String()
}

// PrintMsg prints a message received from the node.
func PrintMsg(c *ishell.Context, msg fx.Message) error {
	sm, ok := msg.(msgs.SerializableMessage)
	if !ok {
		return msgs.ErrNotSerializable
	}
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(sm.Serializable())
		if err != nil {
			return err
		}
		c.Println(string(out))
		return nil
	}
	if _, ok := msg.(*msgs.CommandOK); ok {
		c.Println("OK")
		return nil
	}
	c.Printf("%s %s\n", msgs.TypeName(msg), msgs.Describe(msg))
	return nil
}

// DoCommand runs a command and waits for result. The reply is printed
// and returned.
func DoCommand(c *ishell.Context, msg fx.Message) (fx.Message, error) {
	s := ShellFrom(c)
	if s.Loop == nil {
		err := fmt.Errorf("not connected")
		c.Err(err)
		return nil, err
	}
	f := s.Loop.Conn.DoCommand(msg)
	select {
	case res := <-f.ResultChan():
		if res.Err == nil {
			res.Err = PrintMsg(c, res.Msg)
		}
		if res.Err != nil {
			c.Err(res.Err)
		}
		return res.Msg, res.Err
	case <-time.After(s.Timeout):
		c.Err(fmt.Errorf("command timeout"))
		return nil, context.DeadlineExceeded
	}
}

// SendEvent sends an event to the connected node.
func SendEvent(c *ishell.Context, msg fx.Message) error {
	s := ShellFrom(c)
	if s.Loop == nil {
		err := fmt.Errorf("not connected")
		c.Err(err)
		return err
	}
	if err := s.Loop.Conn.SendEvent(msg); err != nil {
		c.Err(err)
		return err
	}
	return nil
}

// Events returns the chan of events received from the connected node,
// nil when not connected.
func (s *Shell) Events() <-chan fx.Message {
	if s.Loop == nil {
		return nil
	}
	return s.Loop.events
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// DiscoverNodes discovers nodes.
func (s *Shell) DiscoverNodes(filter func(node.Info) bool) (node.Connector, []node.Info, error) {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return nil, nil, err
	}
	infoList, err := connector.Discover(context.TODO())
	if err != nil {
		return connector, nil, err
	}
	if filter != nil {
		items := make([]node.Info, 0, len(infoList))
		for _, info := range infoList {
			if filter(info) {
				items = append(items, info)
			}
		}
		infoList = items
	}
	return connector, infoList, nil
}

// SelectNode discovers nodes and asks for a choice.
func (s *Shell) SelectNode(filter func(node.Info) bool) (*node.Info, error) {
	_, infoList, err := s.DiscoverNodes(filter)
	if err != nil || len(infoList) == 0 {
		return nil, err
	}
	var index int
	if len(infoList) > 1 {
		if !s.Interactive {
			return nil, fmt.Errorf("more than 1 nodes discovered in non-interactive mode")
		}
		items := make([]string, len(infoList))
		for n, info := range infoList {
			items[n] = FormatInfo(info)
		}
		index = s.Shell.MultiChoice(items, "Which one to connect?")
	}
	return &infoList[index], nil
}

// Connect connects the node with ref.
func (s *Shell) Connect(ref node.Ref) error {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return err
	}
	connLoop := &ConnLoop{Ref: ref, events: make(chan fx.Message, eventsBuffer)}
	connLoop.Ctx, connLoop.Cancel = context.WithCancel(context.Background())
	if connLoop.Conn, err = connector.Connect(connLoop.Ctx, ref); err != nil {
		connLoop.Cancel()
		return err
	}
	connLoop.Loop = fx.NewLoop()
	if adder, ok := connLoop.Conn.(fx.LoopAdder); ok {
		connLoop.Loop.Add(adder)
	}
	connLoop.Loop.AddController(fx.StageIdle, fx.ControlFunc(connLoop.collectEvents))
	if s.Loop != nil {
		s.Loop.Cancel()
	}
	s.Loop = connLoop
	go connLoop.Loop.Run(connLoop.Ctx)
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", ref.Name()))
	return nil
}

// collectEvents keeps the latest events, older ones are dropped when
// nobody reads them.
func (l *ConnLoop) collectEvents(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		msg, ok := mctx.CurrentMessage().(msgs.SerializableMessage)
		if !ok {
			return
		}
		mctx.MessageTaken()
		for {
			select {
			case l.events <- msg:
				return
			default:
			}
			select {
			case <-l.events:
			default:
			}
		}
	}))
	return nil
}

// Disconnect disconnects current node.
func (s *Shell) Disconnect() {
	if s.Loop != nil {
		s.Loop.Cancel()
		s.Loop = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Ref.IsValid() {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Ref.Name())
		}
		if err := s.Connect(s.Config.Ref); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Ref.Name(), err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// DiscoverCmd discovers nodes.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			_, infoList, err := s.DiscoverNodes(nil)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if len(infoList) == 0 {
					infoList = []node.Info{}
				}
				out, err := json.Marshal(infoList)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(infoList) == 0 {
				c.Println("No nodes found")
				return
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// ConnectCmd connects a node.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[TYPE [ID]]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var ref node.Ref
			if len(c.Args) >= 2 {
				ref.Type, ref.ID = c.Args[0], c.Args[1]
			} else {
				var filter func(node.Info) bool
				if len(c.Args) == 1 {
					filter = func(info node.Info) bool {
						return info.Ref.Type == c.Args[0]
					}
				}
				info, err := s.SelectNode(filter)
				if err != nil {
					c.Err(err)
					return
				}
				if info == nil {
					c.Err(fmt.Errorf("no node discovered"))
					return
				}
				ref = info.Ref
			}
			if err := s.Connect(ref); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current node.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
