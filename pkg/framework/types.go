package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Message is anything posted into the loop. Transports wrap
// what they receive as Messages and controllers consume them
// during an iteration.
type Message interface {
	// NewMessage creates an empty message of the same type.
	NewMessage() Message
}

// Controller is invoked once per loop iteration.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc is the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(cc ControlContext) error {
	return f(cc)
}

// TimeSource provides the time of the current iteration.
type TimeSource interface {
	Time() time.Time
}

// ControlContext is passed to controllers during an iteration.
type ControlContext interface {
	TimeSource
	// Context retrieves context.Context of the loop.
	Context() context.Context
	// Stage gets the stage currently being executed.
	Stage() int
	// Messages gives access to the messages collected when the
	// iteration started.
	Messages() MessageStore

	LoopControl
}

// LoopControl exposes access to the running loop from outside
// an iteration (e.g. transport callbacks).
type LoopControl interface {
	// PostMessage enqueues a message for the next iteration.
	PostMessage(Message)
	// TriggerNext wakes up the loop to run the next iteration
	// without waiting for the interval.
	TriggerNext()
}

// Stages are executed in order within each iteration.
const (
	StageSense = iota
	StageControl
	StageActuate
	StagePublish
	StageIdle

	NumStages
)

// MessageStore provides access to the messages of an iteration.
type MessageStore interface {
	// ProcessMessages runs the processor over every pending message.
	ProcessMessages(MessageProcessor)
	// AddMessages appends messages visible to later stages of the
	// current iteration.
	AddMessages(msgs ...Message)
}

// MessageProcessor is used by MessageStore to process messages.
type MessageProcessor interface {
	ProcessMessage(MessageProcessingContext)
}

// ProcessMessageFunc is the func form of MessageProcessor.
type ProcessMessageFunc func(MessageProcessingContext)

// ProcessMessage implements MessageProcessor.
func (f ProcessMessageFunc) ProcessMessage(mc MessageProcessingContext) {
	f(mc)
}

// MessageProcessingContext wraps the message being processed.
type MessageProcessingContext interface {
	// CurrentMessage gets the message being processed.
	CurrentMessage() Message
	// MessageTaken removes the message from the store.
	MessageTaken()
	// StopProcessing skips the remaining messages.
	StopProcessing()
}

// LoopAdder provides specific logic to add components to a loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}
