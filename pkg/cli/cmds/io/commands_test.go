package io

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ftl.go/pkg/node/msgs"
)

func TestParseOutputs(t *testing.T) {
	outputs, err := ParseOutputs([]string{"D-1=1", "PWM-0=-12.5", "X=0"})
	require.NoError(t, err)
	require.True(t, new(msgs.IOMsgArray).Add("D-1", 1).Add("PWM-0", -12.5).Add("X", 0).Equal(outputs))

	testCases := []string{"D-1", "=1", "D-1=on"}
	for _, arg := range testCases {
		_, err = ParseOutputs([]string{arg})
		require.Error(t, err, arg)
	}
}

func TestParsePinConfigs(t *testing.T) {
	configs, err := ParsePinConfigs([]string{"D-1=digital_out", "D-2=DIGITAL_IN_PULLUP", "D-3=999"})
	require.NoError(t, err)
	require.Equal(t, []*msgs.PinConfig{
		{Port: "D-1", Config: msgs.DigitalOut},
		{Port: "D-2", Config: msgs.DigitalInPullUp},
		{Port: "D-3", Config: msgs.PinConfigOption(999)},
	}, configs)

	testCases := []string{"D-1", "=DIGITAL_IN", "D-1=OUT"}
	for _, arg := range testCases {
		_, err = ParsePinConfigs([]string{arg})
		require.Error(t, err, arg)
	}
}
