package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/chalkan3-sloth/railguard/internal/executor"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newTimeoutDemoCommand(ctx *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timeout-demo",
		Short: "Submits a slow action with a short timeout and shows the future resolve as timed out",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimeoutDemo()
		},
	}
	return cmd
}

func runTimeoutDemo() error {
	log := slog.Default()
	dr, err := buildDemoRail("reporting", 4, log)
	if err != nil {
		return err
	}

	exec := executor.New("reporting.pool", dr.Rail, executor.Options{
		Workers: 2,
		Success: dr.Success,
		Failure: dr.Failure,
		Timeout: dr.Timeout,
		Logger:  log,
	})
	defer exec.Shutdown()

	styled := StyledOutput()
	report := func(format string, args ...any) {
		if styled {
			pterm.Info.Printfln(format, args...)
		} else {
			fmt.Printf(format+"\n", args...)
		}
	}

	latch := make(chan struct{})
	started := time.Now()
	future := executor.Submit(exec, func() (string, error) {
		<-latch
		return "too late", nil
	}, 50*time.Millisecond)

	result, _ := future.Await()
	report("resolved after %s: outcome=%s cancelled=%v", time.Since(started).Round(time.Millisecond), result.Result, result.Cancelled)

	close(latch) // release the blocked worker so the demo process can exit cleanly
	time.Sleep(10 * time.Millisecond)

	if styled {
		pterm.Success.Println("timeout fired without a second completion racing it")
	} else {
		fmt.Println("timeout fired without a second completion racing it")
	}
	return nil
}
