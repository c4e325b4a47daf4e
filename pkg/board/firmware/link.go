package firmware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"
)

var (
	// ErrNotReady indicates the link is not synchronized yet.
	ErrNotReady = errors.New("firmware link not ready")
	// ErrNoReply indicates the firmware replied a later request first,
	// so this one is considered lost.
	ErrNoReply = errors.New("no reply")
	// ErrFrameTooLong indicates the data doesn't fit in a frame.
	ErrFrameTooLong = errors.New("frame data too long")
)

// CommandError is the error code replied by the firmware.
type CommandError struct {
	Code byte
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("firmware command error %d", e.Code)
}

// Reply is the result of a request.
type Reply struct {
	Err  error
	Code byte
	Data []byte
}

// Request is a sent frame waiting for its reply.
type Request struct {
	seq     Seq
	replyCh chan Reply
	next    *Request
}

// Seq returns the sequence of the request frame.
func (r *Request) Seq() Seq {
	return r.seq
}

// ReplyChan returns the chan receiving the reply.
func (r *Request) ReplyChan() <-chan Reply {
	return r.replyCh
}

// Link exchanges frames with the firmware and matches replies
// with requests.
type Link struct {
	ReadWriter io.ReadWriter
	// SyncTimeout restarts the sync when the peer doesn't answer.
	SyncTimeout time.Duration
	// ReadTimeout must be set if ReadWriter.Read times out by itself.
	ReadTimeout bool
	// OnStateChange is called when the link state changes.
	OnStateChange func(LinkState)

	seq       Seq
	state     LinkState
	lock      sync.Mutex
	decoder   Decoder
	syncTimer <-chan time.Time

	pendingHead *Request
	pendingTail *Request
	pendingLock sync.Mutex

	eventCh chan *Frame
}

// DefaultSyncTimeout is the default SyncTimeout.
const DefaultSyncTimeout = 100 * time.Millisecond

// NewLink creates a Link.
func NewLink(rw io.ReadWriter) *Link {
	return &Link{
		ReadWriter:  rw,
		SyncTimeout: DefaultSyncTimeout,
		seq:         NewSeq(),
		eventCh:     make(chan *Frame, 16),
	}
}

// State gets the link state.
func (l *Link) State() LinkState {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.state
}

// Events returns the chan of events raised by the firmware.
func (l *Link) Events() <-chan *Frame {
	return l.eventCh
}

// Send writes a frame, assigning its sequence.
func (l *Link) Send(f *Frame) error {
	if len(f.Data) > maxDataLen {
		return ErrFrameTooLong
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	if !l.state.IsReady() {
		return ErrNotReady
	}
	f.Seq = l.seq
	if _, err := f.WriteTo(l.ReadWriter); err != nil {
		return err
	}
	l.seq = l.seq.Next()
	return nil
}

// Do sends a request frame. The reply is delivered on the
// returned Request.
func (l *Link) Do(f *Frame) *Request {
	req := &Request{replyCh: make(chan Reply, 1)}
	l.pendingLock.Lock()
	defer l.pendingLock.Unlock()
	if err := l.Send(f); err != nil {
		req.replyCh <- Reply{Err: err}
		return req
	}
	req.seq = f.Seq
	if l.pendingHead == nil {
		l.pendingHead = req
	} else {
		l.pendingTail.next = req
	}
	l.pendingTail = req
	return req
}

// Call sends a request and waits for the reply data.
func (l *Link) Call(ctx context.Context, code byte, data []byte) ([]byte, error) {
	req := l.Do(&Frame{Code: code, Data: data})
	select {
	case r := <-req.ReplyChan():
		return r.Data, r.Err
	case <-ctx.Done():
		l.drop(req)
		return nil, ctx.Err()
	}
}

func (l *Link) drop(req *Request) {
	l.pendingLock.Lock()
	defer l.pendingLock.Unlock()
	var prev *Request
	for curr := l.pendingHead; curr != nil; prev, curr = curr, curr.next {
		if curr != req {
			continue
		}
		if prev == nil {
			l.pendingHead = curr.next
		} else {
			prev.next = curr.next
		}
		if l.pendingTail == curr {
			l.pendingTail = prev
		}
		curr.next = nil
		return
	}
}

// Run reads from the stream until ctx is done or reading fails.
func (l *Link) Run(ctx context.Context) error {
	if err := l.apply(l.decoder.Reset()); err != nil {
		return err
	}
	if l.ReadTimeout {
		return l.runPolling(ctx)
	}

	byteCh, errCh := make(chan byte), make(chan error, 1)
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.readLoop(readCtx, byteCh, errCh)
	for {
		var err error
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err = <-errCh:
			return err
		case b := <-byteCh:
			err = l.apply(l.decoder.Feed(b))
		case <-l.syncTimer:
			err = l.apply(l.decoder.Timeout())
		}
		if err != nil {
			return err
		}
	}
}

func (l *Link) runPolling(ctx context.Context) error {
	buf := make([]byte, 1)
	for {
		var err error
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.syncTimer:
			err = l.apply(l.decoder.Timeout())
		default:
			var n int
			if n, err = l.ReadWriter.Read(buf); err != nil && os.IsTimeout(err) || err == nil && n == 0 {
				err = l.apply(l.decoder.Timeout())
			} else if err == nil {
				err = l.apply(l.decoder.Feed(buf[0]))
			}
		}
		if err != nil {
			return err
		}
	}
}

func (l *Link) readLoop(ctx context.Context, byteCh chan<- byte, errCh chan<- error) {
	buf := make([]byte, 1)
	for {
		if _, err := l.ReadWriter.Read(buf); err != nil {
			errCh <- err
			return
		}
		select {
		case byteCh <- buf[0]:
		case <-ctx.Done():
			return
		}
	}
}

func (l *Link) apply(s Step) (err error) {
	changed := false
	l.lock.Lock()
	if l.state != s.State {
		l.state, changed = s.State, true
	}
	if s.Sync != 0 {
		_, err = l.ReadWriter.Write([]byte{s.Sync, byte(l.seq)})
	}
	l.lock.Unlock()
	if err != nil {
		return
	}

	if l.ReadTimeout {
		if s.Sync == syncREQ {
			l.syncTimer = time.After(l.SyncTimeout)
		} else {
			l.syncTimer = nil
		}
	} else {
		switch s.Timer() {
		case TimerRestart:
			l.syncTimer = time.After(l.SyncTimeout)
		case TimerStop:
			l.syncTimer = nil
		}
	}

	if changed && l.OnStateChange != nil {
		l.OnStateChange(s.State)
	}
	if s.Frame != nil {
		l.handleFrame(s.Frame)
	}
	return
}

func (l *Link) handleFrame(f *Frame) {
	if f.IsEvent() {
		select {
		case l.eventCh <- f:
		default:
			glog.Warningf("firmware event 0x%02x dropped", f.Code)
		}
		return
	}
	if len(f.Data) == 0 {
		glog.V(2).Infof("firmware reply 0x%02x without sequence", f.Code)
		return
	}
	seq := Seq(f.Data[0])
	if !seq.IsValid() {
		return
	}

	l.pendingLock.Lock()
	head, curr := l.pendingHead, l.pendingHead
	for ; curr != nil; curr = curr.next {
		if curr.seq == seq {
			if l.pendingHead = curr.next; l.pendingHead == nil {
				l.pendingTail = nil
			}
			curr.next = nil
			break
		}
	}
	l.pendingLock.Unlock()
	if curr == nil {
		return
	}
	// earlier requests will never be replied.
	for ; head != curr; head = head.next {
		head.replyCh <- Reply{Err: ErrNoReply}
	}
	if f.Code&errorBit != 0 {
		curr.replyCh <- Reply{Err: &CommandError{Code: f.Code & replyCodeMk}}
	} else {
		curr.replyCh <- Reply{Code: f.Code & replyCodeMk, Data: f.Data[1:]}
	}
}
