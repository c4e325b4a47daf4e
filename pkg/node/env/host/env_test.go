package host

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ftl.go/pkg/node"
)

func TestDefaultConfig(t *testing.T) {
	if os.Getenv("FTL_NODE_ID") != "" {
		t.Skip("FTL_NODE_ID overrides the default")
	}
	conf := NewConfig()
	require.Equal(t, node.Ref{Type: DefaultType, ID: DefaultID}, conf.Info.Ref)
	require.Equal(t, "ftl/ftl_robot", conf.Info.Ref.Name())
}

func TestNewEnvErrors(t *testing.T) {
	conf := &Config{Info: node.Info{Ref: node.Ref{Type: DefaultType}}}
	_, err := conf.NewEnv()
	require.EqualError(t, err, "at least one transport is required")
	// empty ID falls back to the machine ID, or DefaultID
	require.NotEmpty(t, conf.Info.Ref.ID)

	conf = &Config{Info: node.Info{Ref: node.Ref{ID: "x"}}}
	_, err = conf.NewEnv()
	require.Error(t, err)
}
