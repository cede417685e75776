package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/chalkan3-sloth/railguard/internal/breaker"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newBreakerDemoCommand(ctx *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "breaker-demo",
		Short: "Drives a rail's circuit breaker from closed to open and back to closed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBreakerDemo()
		},
	}
	return cmd
}

func runBreakerDemo() error {
	log := slog.Default()
	dr, err := buildDemoRail("payments", 10, log)
	if err != nil {
		return err
	}

	styled := StyledOutput()
	report := func(format string, args ...any) {
		if styled {
			pterm.Info.Printfln(format, args...)
		} else {
			fmt.Printf(format+"\n", args...)
		}
	}

	dr.Breaker.OnStateChange(func(from, to breaker.State) {
		report("breaker transition: %s -> %s", from, to)
	})

	report("closed: feeding failures until the threshold trips the breaker")
	now := time.Now()
	// Step past the breaker's health refresh interval so every failure is
	// re-read rather than served from a cached snapshot.
	step := dr.Breaker.Config().HealthRefreshInterval + time.Millisecond
	for i := 0; i < 6; i++ {
		permits, acquireErr := dr.Rail.Acquire(1, now.UnixNano())
		if acquireErr != nil {
			report("acquire rejected: %v", acquireErr)
			break
		}
		dr.Rail.ReleaseWithResult(permits.Permits, dr.Failure, permits.StartNanos, now.UnixNano())
		now = now.Add(step)
	}

	if _, acquireErr := dr.Rail.Acquire(1, now.UnixNano()); acquireErr != nil {
		report("acquire after trip: rejected (%v), as expected", acquireErr)
	} else {
		report("acquire after trip: unexpectedly admitted")
	}

	report("forcing an admin probe: admitting one success to close the breaker")
	dr.Breaker.ForceClosed()
	permits, err := dr.Rail.Acquire(1, now.UnixNano())
	if err == nil {
		dr.Rail.ReleaseWithResult(permits.Permits, dr.Success, permits.StartNanos, time.Now().UnixNano())
	}
	report("final breaker state: %s", dr.Breaker.State())
	return nil
}
