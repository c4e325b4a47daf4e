package firmware

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type decodeInput struct {
	in     []byte
	expect Step
	final  Step
}

type decodeScript struct {
	inputs []decodeInput
}

func script() *decodeScript {
	return &decodeScript{}
}

func (s *decodeScript) on(state LinkState, in ...byte) *decodeScript {
	i := decodeInput{in: in, expect: Step{State: state}}
	i.final = i.expect
	s.inputs = append(s.inputs, i)
	return s
}

func (s *decodeScript) onSyncing(in ...byte) *decodeScript {
	return s.on(StateSyncing|StateReceiving, in...)
}

func (s *decodeScript) onReceiving(in ...byte) *decodeScript {
	return s.on(StateReady|StateReceiving, in...)
}

func (s *decodeScript) timeout() *decodeScript {
	s.inputs = append(s.inputs, decodeInput{})
	return s
}

func (s *decodeScript) final(step Step) *decodeScript {
	s.inputs[len(s.inputs)-1].final = step
	return s
}

func (s *decodeScript) synced() *decodeScript {
	return s.final(Step{State: StateReady})
}

func (s *decodeScript) frame(seq, code byte, data ...byte) *decodeScript {
	return s.final(Step{State: StateReady, Frame: &Frame{Seq: Seq(seq), Code: code, Data: data}})
}

func (s *decodeScript) resync() *decodeScript {
	return s.final(Step{Sync: syncREQ, State: StateSyncing})
}

func (s *decodeScript) syncedWithAck() *decodeScript {
	return s.final(Step{Sync: syncACK, State: StateReady})
}

func TestDecoder(t *testing.T) {
	testCases := []struct {
		name   string
		script *decodeScript
	}{
		{
			"sync and receive",
			script().
				onSyncing(syncACK, 1).synced().
				onReceiving(1, 0x02).frame(1, 2).
				onReceiving(2, 0x72, 0).frame(2, 2).
				onReceiving(3, 0x92, 0x03).frame(3, 0x82, 3).
				onReceiving(4, 0x72, 0x08, 1, 2, 3, 4, 5, 6, 7, 8).frame(4, 2, 1, 2, 3, 4, 5, 6, 7, 8),
		},
		{
			"sync timeout",
			script().
				timeout().resync().
				onSyncing(syncACK).
				timeout().resync(),
		},
		{
			"skip garbage while syncing",
			script().
				on(StateSyncing, 1, 2, 3, 4, 0x80, 0x81, 0xf0, 0xf1).
				onSyncing(syncACK, 1).synced(),
		},
		{
			"sync request",
			script().
				onSyncing(syncREQ, 1).syncedWithAck(),
		},
		{
			"sync request with invalid seq",
			script().
				onSyncing(syncREQ, syncREQ).resync().
				onSyncing(syncACK, 1).synced(),
		},
		{
			"sync request when synced",
			script().
				onSyncing(syncACK, 1).synced().
				onSyncing(syncREQ, 1).syncedWithAck().
				onReceiving(1, 0x02).frame(1, 2),
		},
		{
			"sync request when synced with invalid seq",
			script().
				onSyncing(syncACK, 1).synced().
				onSyncing(syncREQ, syncACK).resync().
				onSyncing(syncACK, 1).synced(),
		},
		{
			"sync ack with invalid seq",
			script().
				onSyncing(syncACK, syncREQ).resync().
				onSyncing(syncACK, 1).synced(),
		},
		{
			"repeated sync ack",
			script().
				onSyncing(syncACK, 1).synced().
				onReceiving(syncACK, 1).synced().
				onReceiving(1, 0x02).frame(1, 2),
		},
		{
			"repeated sync ack with wrong seq",
			script().
				onSyncing(syncACK, 1).synced().
				onReceiving(syncACK, 2).resync().
				onSyncing(syncACK, 2).synced().
				onReceiving(2, 0x02).frame(2, 2),
		},
		{
			"unexpected frame seq",
			script().
				onSyncing(syncACK, 1).synced().
				onReceiving(1, 2).frame(1, 2).
				onSyncing(1).resync().
				on(StateSyncing, 0x92, 3).
				onSyncing(syncACK, 3).synced(),
		},
		{
			"data too long",
			script().
				onSyncing(syncACK, 1).synced().
				onReceiving(1, 0x70, 0x80).resync().
				on(StateSyncing, 1, 2, 3, 4).
				onSyncing(syncACK, 1).synced(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var d Decoder
			for n, input := range tc.script.inputs {
				var s Step
				if l := len(input.in); l == 0 {
					s = d.Timeout()
				} else {
					for i, b := range input.in {
						s = d.Feed(b)
						if i+1 < l {
							require.Equalf(t, input.expect, s, "input[%d][%d] mismatch", n, i)
						}
					}
				}
				require.Equalf(t, input.final, s, "input[%d] final mismatch", n)
			}
		})
	}
}

func TestDecoderReset(t *testing.T) {
	var d Decoder
	d.Feed(syncACK)
	d.Feed(1)
	require.Equal(t, StateReady, d.State())
	s := d.Reset()
	require.Equal(t, syncREQ, s.Sync)
	require.Equal(t, StateSyncing, s.State)
	require.Nil(t, s.Frame)
}

func TestLinkState(t *testing.T) {
	require.False(t, StateSyncing.IsReady())
	require.False(t, StateSyncing.IsReceiving())
	require.True(t, StateReady.IsReady())
	require.False(t, StateReady.IsReceiving())
	require.False(t, StateReceiving.IsReady())
	require.True(t, StateReceiving.IsReceiving())
	require.True(t, (StateReady | StateReceiving).IsReady())
	require.True(t, (StateReady | StateReceiving).IsReceiving())
	require.Equal(t, "ready(receiving)", (StateReady | StateReceiving).String())
}

func TestStepTimer(t *testing.T) {
	testCases := []struct {
		state  LinkState
		sync   byte
		action TimerAction
	}{
		{StateSyncing, 0, TimerKeep},
		{StateSyncing, syncACK, TimerKeep},
		{StateSyncing, syncREQ, TimerRestart},
		{StateReceiving, 0, TimerRestart},
		{StateReady, 0, TimerStop},
		{StateReady, syncACK, TimerStop},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%s %x", tc.state, tc.sync), func(t *testing.T) {
			require.Equal(t, tc.action, Step{Sync: tc.sync, State: tc.state}.Timer())
		})
	}
}
