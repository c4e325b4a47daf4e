package msgs

import (
	"reflect"
	"strconv"
	"strings"

	fx "github.com/robotalks/ftl.go/pkg/framework"
)

// TypeName returns the Go type name of msg without the pointer.
func TypeName(msg fx.Message) string {
	return reflect.Indirect(reflect.ValueOf(msg)).Type().Name()
}

// Describe renders a message for humans, e.g. "D-1=1 PWM-0=-50" for
// port values. Unknown messages fall back to the compact proto text.
func Describe(msg fx.Message) string {
	switch m := msg.(type) {
	case *CommandOK:
		return "ok"
	case *CommandErr:
		return "error: " + m.Message
	case *IOStateQuery:
		return ""
	case *RobotOutputs:
		return m.Array().Describe()
	case *SensorState:
		return m.Array().Describe()
	case *IOStateReply:
		return m.Array().Describe()
	case *ConfigureIO:
		items := make([]string, 0, len(m.Config))
		for _, c := range m.Config {
			if c != nil {
				items = append(items, c.Port+":"+c.Config.String())
			}
		}
		return strings.Join(items, " ")
	case *ConfigureIOResult:
		if m.Success {
			return "ok"
		}
		items := make([]string, 0, len(m.Errors))
		for _, e := range m.Errors {
			if e != nil {
				items = append(items, e.Port+": "+e.Error)
			}
		}
		return "failed: " + strings.Join(items, "; ")
	case *RobotCommand:
		return strings.TrimSpace(m.Command + " " + strings.Join(m.Args, " "))
	case SerializableMessage:
		return m.Serializable().String()
	}
	return ""
}

// Describe renders entries as PORT=VALUE separated by spaces.
func (m *IOMsgArray) Describe() string {
	if m == nil {
		return ""
	}
	var sb strings.Builder
	for _, msg := range m.IOMsg {
		if msg == nil {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(msg.Port)
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatFloat(msg.Value, 'g', -1, 64))
	}
	return sb.String()
}
