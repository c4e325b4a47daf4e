// Package all registers all shell commands.
package all

import (
	_ "github.com/robotalks/ftl.go/pkg/cli/cmds/io"
)
