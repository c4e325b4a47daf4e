package firmware

// LinkState is the synchronization state of the link.
type LinkState int

// Link states, Ready and Receiving can be combined.
const (
	StateSyncing   LinkState = 0
	StateReady     LinkState = 0x01
	StateReceiving LinkState = 0x02
)

// IsReady tells frames can be sent.
func (s LinkState) IsReady() bool {
	return s&StateReady != 0
}

// IsReceiving tells a sync or a frame is partially received.
func (s LinkState) IsReceiving() bool {
	return s&StateReceiving != 0
}

func (s LinkState) String() string {
	switch s {
	case StateSyncing:
		return "syncing"
	case StateReady:
		return "ready"
	case StateReceiving:
		return "syncing(receiving)"
	case StateReady | StateReceiving:
		return "ready(receiving)"
	}
	return "invalid"
}

// TimerAction tells what to do with the sync timer after a decode step.
type TimerAction int

// Timer actions.
const (
	TimerKeep TimerAction = iota
	TimerRestart
	TimerStop
)

// Step is the outcome of feeding the decoder.
type Step struct {
	// Sync is the sync byte to send to the peer, 0 for none.
	Sync  byte
	State LinkState
	Frame *Frame
}

// Timer decides what to do with the sync timer.
func (s Step) Timer() TimerAction {
	if s.State.IsReceiving() || s.Sync == syncREQ {
		return TimerRestart
	}
	if s.State.IsReady() {
		return TimerStop
	}
	return TimerKeep
}

const (
	syncREQ byte = 0xff
	syncACK byte = 0xfe
)

type decodeState int

const (
	waitSync      decodeState = iota // sync req sent, waiting for syncACK or syncREQ
	waitReqSeq                       // got syncREQ, waiting for peer seq
	waitAckSeq                       // got syncACK, waiting for peer seq
	waitFrameSeq                     // synced, waiting for the next frame
	waitAckRepeat                    // got syncACK while synced, validating seq
	waitFrameCode                    //
	waitFrameLen                     //
	waitFrameData                    //
)

// Decoder turns received bytes into frames and keeps the link in sync.
type Decoder struct {
	peerSeq Seq
	state   decodeState
	frame   *Frame
	recvLen int
}

// State gets the link state.
func (d *Decoder) State() LinkState {
	switch {
	case d.state == waitSync:
		return StateSyncing
	case d.state == waitFrameSeq:
		return StateReady
	case d.state > waitFrameSeq:
		return StateReady | StateReceiving
	}
	return StateSyncing | StateReceiving
}

// Reset drops any partial frame and requests a resync.
func (d *Decoder) Reset() Step {
	d.frame = nil
	return d.step(d.resync())
}

// Feed consumes one byte.
func (d *Decoder) Feed(b byte) Step {
	return d.step(d.feed(b))
}

// Timeout notifies the sync timer expired. Anything but a synced idle
// link is resynced.
func (d *Decoder) Timeout() Step {
	if d.state != waitFrameSeq {
		return d.step(d.resync())
	}
	return d.step(0, nil)
}

func (d *Decoder) step(sync byte, f *Frame) Step {
	return Step{Sync: sync, State: d.State(), Frame: f}
}

func (d *Decoder) feed(b byte) (byte, *Frame) {
	switch d.state {
	case waitSync:
		switch b {
		case syncREQ:
			d.state = waitReqSeq
		case syncACK:
			d.state = waitAckSeq
		}
	case waitReqSeq:
		if seq := Seq(b); seq.IsValid() {
			d.peerSeq, d.state = seq, waitFrameSeq
			return syncACK, nil
		}
		return d.resync()
	case waitAckSeq:
		if seq := Seq(b); seq.IsValid() {
			d.peerSeq, d.state = seq, waitFrameSeq
			return 0, nil
		}
		return d.resync()
	case waitFrameSeq:
		switch {
		case b == syncREQ:
			d.state = waitReqSeq
		case b == syncACK:
			d.state = waitAckRepeat
		case b != byte(d.peerSeq):
			return d.resync()
		default:
			d.frame = &Frame{Seq: d.peerSeq}
			d.peerSeq = d.peerSeq.Next()
			d.state = waitFrameCode
		}
	case waitAckRepeat:
		if b != byte(d.peerSeq) {
			return d.resync()
		}
		d.state = waitFrameSeq
	case waitFrameCode:
		d.frame.Code = b & codeMask
		switch l := (b & lenMask) >> 4; l {
		case 0:
			return d.complete()
		case longLen:
			d.state = waitFrameLen
		default:
			d.expect(int(l))
		}
	case waitFrameLen:
		if int(b) > maxDataLen {
			return d.resync()
		}
		if b == 0 {
			return d.complete()
		}
		d.expect(int(b))
	case waitFrameData:
		d.frame.Data[d.recvLen] = b
		if d.recvLen++; d.recvLen >= len(d.frame.Data) {
			return d.complete()
		}
	}
	return 0, nil
}

func (d *Decoder) expect(n int) {
	d.frame.Data, d.recvLen = make([]byte, n), 0
	d.state = waitFrameData
}

func (d *Decoder) resync() (byte, *Frame) {
	d.state = waitSync
	return syncREQ, nil
}

func (d *Decoder) complete() (byte, *Frame) {
	d.state = waitFrameSeq
	f := d.frame
	d.frame = nil
	return 0, f
}
