package firmware

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeq(t *testing.T) {
	for s := byte(0xff); s >= byte(0xf0); s-- {
		require.False(t, Seq(s).IsValid())
		require.Equal(t, Seq(1), Seq(s).Next())
	}
	for s := byte(1); s < byte(0xf0); s++ {
		require.True(t, Seq(s).IsValid())
		if s+1 < 0xf0 {
			require.Equal(t, Seq(s+1), Seq(s).Next())
		} else {
			require.Equal(t, Seq(1), Seq(s).Next())
		}
	}
	require.False(t, Seq(0).IsValid())
	require.Equal(t, Seq(1), Seq(0).Next())
	require.True(t, NewSeq().IsValid())
}

func TestFrame(t *testing.T) {
	testCases := []struct {
		name   string
		frame  Frame
		expect []byte
	}{
		{"no data", Frame{Seq: 1, Code: 2}, []byte{1, 2}},
		{"small data", Frame{Seq: 1, Code: 2, Data: []byte{1}}, []byte{1, 0x12, 1}},
		{"large data", Frame{Seq: 1, Code: 2, Data: []byte{1, 2, 3, 4, 5, 6, 7}}, []byte{1, 0x72, 7, 1, 2, 3, 4, 5, 6, 7}},
		{"event no data", Frame{Seq: 1, Code: 0x82}, []byte{1, 0x82}},
		{"event small data", Frame{Seq: 1, Code: 0x82, Data: []byte{1}}, []byte{1, 0x92, 1}},
		{"event large data", Frame{Seq: 1, Code: 0x82, Data: []byte{1, 2, 3, 4, 5, 6, 7}}, []byte{1, 0xf2, 7, 1, 2, 3, 4, 5, 6, 7}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, tc.frame.Bytes())
			var buf bytes.Buffer
			n, err := tc.frame.WriteTo(&buf)
			require.NoError(t, err)
			require.Equal(t, tc.expect, buf.Bytes())
			require.EqualValues(t, len(tc.expect), n)
			require.Equal(t, tc.frame.Code&eventBit != 0, tc.frame.IsEvent())
		})
	}
}
