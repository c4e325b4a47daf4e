package framework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/golang/glog"
)

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun wraps a Runnable with a name.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// NameOf returns the name of a Named value, or def.
func NameOf(v interface{}, def string) string {
	if named, ok := v.(Named); ok {
		return named.Name()
	}
	return def
}

// ErrForcedExit is returned by Wait when a second stop signal arrives.
var ErrForcedExit = errors.New("forced exit")

// RunError is the failure of a single Runnable.
type RunError struct {
	Name string
	Err  error
}

func (e *RunError) Error() string {
	return e.Name + ": " + e.Err.Error()
}

// Unwrap returns the error of the Runnable.
func (e *RunError) Unwrap() error {
	return e.Err
}

// Runner runs Runnables sharing one context. The first Runnable failing
// with anything other than context.Canceled cancels the context so the
// others stop too.
type Runner struct {
	Context context.Context

	cancel context.CancelFunc
	wg     sync.WaitGroup
	lock   sync.Mutex
	names  []string
	errs   AggregatedError
	exitCh chan struct{}
}

// NewRunner creates a runner with a background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a runner with a context derived from ctx.
func NewRunnerWith(ctx context.Context) *Runner {
	r := &Runner{exitCh: make(chan struct{})}
	r.Context, r.cancel = context.WithCancel(ctx)
	return r
}

// HandleSignals stops the runner on SIGINT/SIGTERM, and gives up
// waiting on the second one.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		glog.Infof("%v: stopping", sig)
		r.cancel()
		sig = <-sigCh
		glog.Errorf("%v: force exit", sig)
		close(r.exitCh)
	}()
	return r
}

// Go spawns Runnables with the runner context.
func (r *Runner) Go(runnables ...Runnable) *Runner {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, runnable := range runnables {
		name := NameOf(runnable, strconv.Itoa(len(r.names)))
		r.names = append(r.names, name)
		r.wg.Add(1)
		go r.run(name, runnable)
	}
	return r
}

func (r *Runner) run(name string, runnable Runnable) {
	defer r.wg.Done()
	glog.V(4).Infof("runner %s started", name)
	err := runnable.Run(r.Context)
	glog.V(4).Infof("runner %s stopped: %v", name, err)

	r.lock.Lock()
	defer r.lock.Unlock()
	if err != nil && !errors.Is(err, context.Canceled) {
		if r.errs.Len() == 0 {
			glog.Errorf("runner %s failed, stopping all: %v", name, err)
		}
		r.errs.Add(&RunError{Name: name, Err: err})
		r.cancel()
	}
}

// Names returns the names of the spawned Runnables in spawn order.
func (r *Runner) Names() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.names...)
}

// Stop cancels the runner context.
func (r *Runner) Stop() {
	r.cancel()
}

// Wait waits until all Runnables stop and returns their failures as
// RunErrors aggregated. context.Canceled is not considered a failure.
func (r *Runner) Wait() error {
	doneCh := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-r.exitCh:
		return ErrForcedExit
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.errs.Aggregate()
}

// RunWithContextCloser runs fn which blocks on closer, and closes
// closer when ctx is canceled or fn returns.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case <-ctx.Done():
		if err := closer.Close(); err != nil {
			glog.V(4).Infof("close %s: %v", NameOf(closer, fmt.Sprintf("%T", closer)), err)
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		closer.Close()
		return err
	}
}
