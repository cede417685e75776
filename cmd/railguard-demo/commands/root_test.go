package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommandWiresSubcommands(t *testing.T) {
	ctx := &AppContext{Version: "test"}
	root := NewRootCommand(ctx)

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "run")
	assert.Contains(t, names, "breaker-demo")
	assert.Contains(t, names, "timeout-demo")
}

func TestTimeoutDemoRunsWithoutError(t *testing.T) {
	err := runTimeoutDemo()
	require.NoError(t, err)
}
