package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chalkan3-sloth/railguard/internal/executor"
	"github.com/chalkan3-sloth/railguard/internal/reporter"
	"github.com/chalkan3-sloth/railguard/internal/telemetry"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newRunCommand(ctx *AppContext) *cobra.Command {
	var (
		requests      int
		workers       int
		failureRate   float64
		telemetryAddr string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit synthetic requests through a guarded executor and report on the outcome mix",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(ctx, requests, workers, failureRate, telemetryAddr)
		},
	}

	cmd.Flags().IntVar(&requests, "requests", 200, "number of synthetic requests to submit")
	cmd.Flags().IntVar(&workers, "workers", 8, "thread-pool executor worker count")
	cmd.Flags().Float64Var(&failureRate, "failure-rate", 0.15, "fraction of requests the synthetic dependency fails")
	cmd.Flags().StringVar(&telemetryAddr, "telemetry-addr", "127.0.0.1:9191", "listen address for the telemetry HTTP server")
	return cmd
}

func runRun(ctx *AppContext, requests, workers int, failureRate float64, telemetryAddr string) error {
	log := slog.Default()
	dr, err := buildDemoRail("orders", int64(workers*2), log)
	if err != nil {
		return err
	}

	hub := telemetry.NewBreakerHub()
	hub.Register(dr.Rail.Name(), dr.Breaker)
	srv := telemetry.NewServer(telemetryAddr, nil, hub, log)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("telemetry server: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Stop(stopCtx)
	}()

	rep, err := reporter.New(reporter.Options{Schedule: "@every 2s", Window: 2 * time.Second, Logger: log}, dr.Rail)
	if err != nil {
		return err
	}
	rep.Start()
	defer rep.Stop()

	exec := executor.New("orders.pool", dr.Rail, executor.Options{
		Workers: workers,
		Success: dr.Success,
		Failure: dr.Failure,
		Timeout: dr.Timeout,
		Logger:  log,
	})
	defer exec.Shutdown()

	dep := flakyDependency{failureRate: failureRate, minLatency: 5 * time.Millisecond, maxLatency: 40 * time.Millisecond}

	styled := StyledOutput()
	var bar *pterm.ProgressbarPrinter
	if styled {
		pterm.DefaultHeader.WithFullWidth().Println("railguard-demo: run")
		b, _ := pterm.DefaultProgressbar.WithTotal(requests).WithTitle("submitting requests").Start()
		bar = b
	} else {
		fmt.Printf("submitting %d requests across %d workers (failure rate %.0f%%)\n", requests, workers, failureRate*100)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var rejected, succeeded, failed, timedOut int

	for i := 0; i < requests; i++ {
		future := executor.Submit(exec, dep.call, 60*time.Millisecond)
		if _, isRejected := future.IsRejected(); isRejected {
			mu.Lock()
			rejected++
			mu.Unlock()
			if bar != nil {
				bar.Increment()
			}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			result, _ := future.Await()
			mu.Lock()
			switch {
			case result.Cancelled:
				timedOut++
			case result.Result.Failure:
				failed++
			default:
				succeeded++
			}
			mu.Unlock()
			if bar != nil {
				bar.Increment()
			}
		}()
	}
	wg.Wait()

	if bar != nil {
		pterm.Success.Printfln("done: %d succeeded, %d failed, %d timed out, %d rejected", succeeded, failed, timedOut, rejected)
		pterm.Info.Printfln("breaker state: %s", dr.Breaker.State())
		pterm.Info.Printfln("telemetry: http://%s/metrics  ws://%s/ws/breaker-events", telemetryAddr, telemetryAddr)
	} else {
		fmt.Printf("done: %d succeeded, %d failed, %d timed out, %d rejected\n", succeeded, failed, timedOut, rejected)
		fmt.Printf("breaker state: %s\n", dr.Breaker.State())
	}

	for _, snap := range rep.Snapshot() {
		reporter.Log(log, snap)
	}
	return nil
}
