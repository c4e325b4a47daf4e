package msgs

import (
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/ftl.go/pkg/framework"
)

// CommandOK is the generic reply indicating success for commands.
type CommandOK struct {
}

// NewCommandOK creates a CommandOK.
func NewCommandOK() *CommandOK {
	return &CommandOK{}
}

// NewMessage implements Message.
func (m *CommandOK) NewMessage() fx.Message { return &CommandOK{} }

// TypeID implements SerializableMessage.
func (m *CommandOK) TypeID() uint32 { return CommandOKTypeID }

// Serializable implements SerializableMessage.
func (m *CommandOK) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *CommandOK) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandOK) Reset() { *m = CommandOK{} }

// String implements proto.Message.
func (m *CommandOK) String() string { return proto.CompactTextString(m) }

// CommandErr is the generic message representing command error.
type CommandErr struct {
	Message string `protobuf:"bytes,1,opt,name=message,proto3" json:"message,omitempty"`
}

// NewCommandErr creates a CommandErr from an error.
func NewCommandErr(err error) *CommandErr {
	return NewCommandErrFromMsg(err.Error())
}

// NewCommandErrFromMsg creates a CommandErr.
func NewCommandErrFromMsg(message string) *CommandErr {
	return &CommandErr{Message: message}
}

// NewMessage implements Message.
func (m *CommandErr) NewMessage() fx.Message { return &CommandErr{} }

// TypeID implements SerializableMessage.
func (m *CommandErr) TypeID() uint32 { return CommandErrTypeID }

// Serializable implements SerializableMessage.
func (m *CommandErr) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *CommandErr) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandErr) Reset() { *m = CommandErr{} }

// String implements proto.Message.
func (m *CommandErr) String() string { return proto.CompactTextString(m) }

// Error implements error.
func (m *CommandErr) Error() string { return m.Message }

// IOMsg is one output instruction or one sensor reading.
type IOMsg struct {
	Port  string  `protobuf:"bytes,1,opt,name=port,proto3" json:"port,omitempty"`
	Value float64 `protobuf:"fixed64,2,opt,name=value,proto3" json:"value,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *IOMsg) ProtoMessage() {}

// Reset implements proto.Message.
func (m *IOMsg) Reset() { *m = IOMsg{} }

// String implements proto.Message.
func (m *IOMsg) String() string { return proto.CompactTextString(m) }

// IOMsgArray is an ordered batch of IOMsg.
type IOMsgArray struct {
	IOMsg []*IOMsg `protobuf:"bytes,1,rep,name=io_msg,proto3" json:"io_msg,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *IOMsgArray) ProtoMessage() {}

// Reset implements proto.Message.
func (m *IOMsgArray) Reset() { *m = IOMsgArray{} }

// String implements proto.Message.
func (m *IOMsgArray) String() string { return proto.CompactTextString(m) }

// Add appends an IOMsg.
func (m *IOMsgArray) Add(port string, value float64) *IOMsgArray {
	m.IOMsg = append(m.IOMsg, &IOMsg{Port: port, Value: value})
	return m
}

// Equal compares two batches entry by entry.
func (m *IOMsgArray) Equal(other *IOMsgArray) bool {
	if m == nil || other == nil {
		return m == other
	}
	if len(m.IOMsg) != len(other.IOMsg) {
		return false
	}
	for n, msg := range m.IOMsg {
		o := other.IOMsg[n]
		if msg.Port != o.Port || msg.Value != o.Value {
			return false
		}
	}
	return true
}

// RobotOutputs is the event carrying output instructions.
type RobotOutputs IOMsgArray

// NewMessage implements Message.
func (m *RobotOutputs) NewMessage() fx.Message { return &RobotOutputs{} }

// TypeID implements SerializableMessage.
func (m *RobotOutputs) TypeID() uint32 { return RobotOutputsTypeID }

// Serializable implements SerializableMessage.
func (m *RobotOutputs) Serializable() proto.Message { return (*IOMsgArray)(m) }

// Array returns the batch.
func (m *RobotOutputs) Array() *IOMsgArray { return (*IOMsgArray)(m) }

// SensorState is the event carrying the sensor readings.
type SensorState IOMsgArray

// NewMessage implements Message.
func (m *SensorState) NewMessage() fx.Message { return &SensorState{} }

// TypeID implements SerializableMessage.
func (m *SensorState) TypeID() uint32 { return SensorStateTypeID }

// Serializable implements SerializableMessage.
func (m *SensorState) Serializable() proto.Message { return (*IOMsgArray)(m) }

// Array returns the batch.
func (m *SensorState) Array() *IOMsgArray { return (*IOMsgArray)(m) }

// IOStateQuery queries the last sensor readings.
type IOStateQuery struct {
}

// NewMessage implements Message.
func (m *IOStateQuery) NewMessage() fx.Message { return &IOStateQuery{} }

// TypeID implements SerializableMessage.
func (m *IOStateQuery) TypeID() uint32 { return IOStateQueryTypeID }

// Serializable implements SerializableMessage.
func (m *IOStateQuery) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *IOStateQuery) ProtoMessage() {}

// Reset implements proto.Message.
func (m *IOStateQuery) Reset() { *m = IOStateQuery{} }

// String implements proto.Message.
func (m *IOStateQuery) String() string { return proto.CompactTextString(m) }

// IOStateReply is the reply of IOStateQuery.
type IOStateReply IOMsgArray

// NewMessage implements Message.
func (m *IOStateReply) NewMessage() fx.Message { return &IOStateReply{} }

// TypeID implements SerializableMessage.
func (m *IOStateReply) TypeID() uint32 { return IOStateReplyTypeID }

// Serializable implements SerializableMessage.
func (m *IOStateReply) Serializable() proto.Message { return (*IOMsgArray)(m) }

// Array returns the batch.
func (m *IOStateReply) Array() *IOMsgArray { return (*IOMsgArray)(m) }

// PinConfigOption is the requested configuration of a pin.
type PinConfigOption int32

// Pin configuration options.
const (
	DigitalIn         PinConfigOption = 0
	DigitalInPullUp   PinConfigOption = 1
	DigitalInPullDown PinConfigOption = 2
	DigitalOut        PinConfigOption = 3
)

var pinConfigOptionNames = map[PinConfigOption]string{
	DigitalIn:         "DIGITAL_IN",
	DigitalInPullUp:   "DIGITAL_IN_PULLUP",
	DigitalInPullDown: "DIGITAL_IN_PULLDOWN",
	DigitalOut:        "DIGITAL_OUT",
}

func (o PinConfigOption) String() string {
	if name, ok := pinConfigOptionNames[o]; ok {
		return name
	}
	return "INVALID"
}

// ParsePinConfigOption parses the option name.
func ParsePinConfigOption(s string) (PinConfigOption, bool) {
	for opt, name := range pinConfigOptionNames {
		if name == s {
			return opt, true
		}
	}
	return 0, false
}

// PinConfig requests the configuration of one pin.
type PinConfig struct {
	Port   string          `protobuf:"bytes,1,opt,name=port,proto3" json:"port,omitempty"`
	Config PinConfigOption `protobuf:"varint,2,opt,name=config,proto3" json:"config,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *PinConfig) ProtoMessage() {}

// Reset implements proto.Message.
func (m *PinConfig) Reset() { *m = PinConfig{} }

// String implements proto.Message.
func (m *PinConfig) String() string { return proto.CompactTextString(m) }

// ConfigureIO command configures pins in batch.
type ConfigureIO struct {
	Config []*PinConfig `protobuf:"bytes,1,rep,name=config,proto3" json:"config,omitempty"`
}

// NewMessage implements Message.
func (m *ConfigureIO) NewMessage() fx.Message { return &ConfigureIO{} }

// TypeID implements SerializableMessage.
func (m *ConfigureIO) TypeID() uint32 { return ConfigureIOTypeID }

// Serializable implements SerializableMessage.
func (m *ConfigureIO) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ConfigureIO) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ConfigureIO) Reset() { *m = ConfigureIO{} }

// String implements proto.Message.
func (m *ConfigureIO) String() string { return proto.CompactTextString(m) }

// PinConfigError reports the failure of one PinConfig.
type PinConfigError struct {
	Port  string `protobuf:"bytes,1,opt,name=port,proto3" json:"port,omitempty"`
	Error string `protobuf:"bytes,2,opt,name=error,proto3" json:"error,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *PinConfigError) ProtoMessage() {}

// Reset implements proto.Message.
func (m *PinConfigError) Reset() { *m = PinConfigError{} }

// String implements proto.Message.
func (m *PinConfigError) String() string { return proto.CompactTextString(m) }

// ConfigureIOResult is the reply of ConfigureIO.
type ConfigureIOResult struct {
	Success bool              `protobuf:"varint,1,opt,name=success,proto3" json:"success,omitempty"`
	Errors  []*PinConfigError `protobuf:"bytes,2,rep,name=errors,proto3" json:"errors,omitempty"`
}

// NewMessage implements Message.
func (m *ConfigureIOResult) NewMessage() fx.Message { return &ConfigureIOResult{} }

// TypeID implements SerializableMessage.
func (m *ConfigureIOResult) TypeID() uint32 { return ConfigureIOResultTypeID }

// Serializable implements SerializableMessage.
func (m *ConfigureIOResult) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ConfigureIOResult) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ConfigureIOResult) Reset() { *m = ConfigureIOResult{} }

// String implements proto.Message.
func (m *ConfigureIOResult) String() string { return proto.CompactTextString(m) }

// RobotCommand is a free form command for in-process listeners.
type RobotCommand struct {
	Command string   `protobuf:"bytes,1,opt,name=command,proto3" json:"command,omitempty"`
	Args    []string `protobuf:"bytes,2,rep,name=args,proto3" json:"args,omitempty"`
}

// NewMessage implements Message.
func (m *RobotCommand) NewMessage() fx.Message { return &RobotCommand{} }

// TypeID implements SerializableMessage.
func (m *RobotCommand) TypeID() uint32 { return RobotCommandTypeID }

// Serializable implements SerializableMessage.
func (m *RobotCommand) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *RobotCommand) ProtoMessage() {}

// Reset implements proto.Message.
func (m *RobotCommand) Reset() { *m = RobotCommand{} }

// String implements proto.Message.
func (m *RobotCommand) String() string { return proto.CompactTextString(m) }

// TypeID Groups
const (
	GroupCommand uint32 = 0x00000000
	GroupIO      uint32 = 0x00030000
	GroupCustom  uint32 = 0x7f000000 // base group id for custom messages.
)

// TypeIDs
const (
	CommandOKTypeID         uint32 = GroupCommand | TypeIDMaskReply | 0x0000
	CommandErrTypeID        uint32 = GroupCommand | TypeIDMaskReply | 0x0001
	ConfigureIOTypeID       uint32 = GroupIO | 0x0001
	ConfigureIOResultTypeID uint32 = ConfigureIOTypeID | TypeIDMaskReply
	RobotCommandTypeID      uint32 = GroupIO | 0x0002
	IOStateQueryTypeID      uint32 = GroupIO | 0x0003
	IOStateReplyTypeID      uint32 = IOStateQueryTypeID | TypeIDMaskReply
	RobotOutputsTypeID      uint32 = GroupIO | TypeIDKindEvent | 0x0001
	SensorStateTypeID       uint32 = GroupIO | TypeIDKindEvent | 0x0002
)
