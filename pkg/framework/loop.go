package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the default period between two iterations.
const DefaultInterval = 100 * time.Millisecond

// Loop owns the controllers and runs them in a single goroutine.
// Everything touching the hardware is expected to happen inside
// Control so it never runs concurrently.
type Loop struct {
	Interval time.Duration

	stages  [NumStages][]Controller
	runners []Runnable

	pending []Message
	lock    sync.Mutex

	wakeUpCh chan struct{}
}

var loopCtxKey = &Loop{}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{
		Interval: DefaultInterval,
		wakeUpCh: make(chan struct{}, 1),
	}
}

// LoopCtlFrom gets LoopControl from a context passed to Runnables
// started by the loop.
func LoopCtlFrom(ctx context.Context) LoopControl {
	return ctx.Value(loopCtxKey).(LoopControl)
}

// WithLoopCtl attaches a LoopControl to the context.
func WithLoopCtl(ctx context.Context, ctl LoopControl) context.Context {
	return context.WithValue(ctx, loopCtxKey, ctl)
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers at the stage.
func (l *Loop) AddController(stage int, ctls ...Controller) *Loop {
	l.stages[stage] = append(l.stages[stage], ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds background Runnables started with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Run implements Runnable. A background Runnable failing stops the
// loop, and the failure is returned.
func (l *Loop) Run(ctx context.Context) error {
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	runner := NewRunnerWith(WithLoopCtl(ctx, l))
	runner.Go(l.runners...)
	defer runner.Stop()
	ctx = runner.Context

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := runner.Wait(); err != nil {
				return err
			}
			return ctx.Err()
		case <-ticker.C:
			l.RunIteration(ctx)
		case <-l.wakeUpCh:
			l.RunIteration(ctx)
		}
	}
}

// RunOrFail runs the loop until SIGINT/SIGTERM and exits on error.
func (l *Loop) RunOrFail() {
	runner := NewRunner().HandleSignals()
	runner.Go(NamedRun("loop", l))
	if err := runner.Wait(); err != nil {
		glog.Exit(err)
	}
}

// PostMessage implements LoopControl.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.pending = append(l.pending, msg)
	l.lock.Unlock()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// RunIteration runs all stages once with the messages posted so far.
// It's exported for driving the loop manually.
func (l *Loop) RunIteration(ctx context.Context) {
	iter := &iteration{loop: l, time: time.Now()}
	l.lock.Lock()
	iter.messages, l.pending = l.pending, nil
	l.lock.Unlock()
	iter.ctx = WithLoopCtl(ctx, l)
	for stage, ctls := range l.stages {
		iter.stage = stage
		for _, ctl := range ctls {
			if err := ctl.Control(iter); err != nil {
				glog.Errorf("controller error: %v", err)
			}
		}
	}
}

type iteration struct {
	loop     *Loop
	ctx      context.Context
	time     time.Time
	stage    int
	messages []Message
}

func (t *iteration) Context() context.Context { return t.ctx }
func (t *iteration) Time() time.Time          { return t.time }
func (t *iteration) Stage() int               { return t.stage }
func (t *iteration) Messages() MessageStore   { return t }
func (t *iteration) PostMessage(msg Message)  { t.loop.PostMessage(msg) }
func (t *iteration) TriggerNext()             { t.loop.TriggerNext() }

func (t *iteration) AddMessages(msgs ...Message) {
	t.messages = append(t.messages, msgs...)
}

type messageContext struct {
	msg   Message
	taken bool
	stop  bool
}

func (c *messageContext) CurrentMessage() Message { return c.msg }
func (c *messageContext) MessageTaken()           { c.taken = true }
func (c *messageContext) StopProcessing()         { c.stop = true }

// ProcessMessages implements MessageStore. Messages not taken stay
// available to later controllers in the same iteration and are dropped
// when the iteration ends.
func (t *iteration) ProcessMessages(proc MessageProcessor) {
	msgs := t.messages
	t.messages = nil
	remains := make([]Message, 0, len(msgs))
	for n, msg := range msgs {
		mctx := &messageContext{msg: msg}
		proc.ProcessMessage(mctx)
		if !mctx.taken {
			remains = append(remains, msg)
		}
		if mctx.stop {
			remains = append(remains, msgs[n+1:]...)
			break
		}
	}
	// messages added while processing go after the remains.
	t.messages = append(remains, t.messages...)
}
