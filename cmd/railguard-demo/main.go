// Command railguard-demo is a small showcase binary wiring the guard rail,
// the thread-pool executor, the telemetry server and the stats reporter
// together against a synthetic flaky dependency. It exists to exercise the
// library end to end, not as a component of the library itself.
package main

import (
	"fmt"
	"os"

	"github.com/chalkan3-sloth/railguard/cmd/railguard-demo/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx := &commands.AppContext{Version: version, Commit: commit, Date: date}
	if err := commands.NewRootCommand(ctx).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
