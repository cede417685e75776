package commands

import (
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/chalkan3-sloth/railguard/internal/breaker"
	"github.com/chalkan3-sloth/railguard/internal/clock"
	"github.com/chalkan3-sloth/railguard/internal/gate"
	"github.com/chalkan3-sloth/railguard/internal/outcome"
	"github.com/chalkan3-sloth/railguard/internal/rail"
)

// errFlaky is returned by the synthetic dependency on its induced failures.
var errFlaky = errors.New("flaky dependency: downstream unavailable")

// demoRail bundles a built rail with the outcome handles its callers need
// to convert action results, so they don't have to re-resolve names
// through ResolveOutcome on every submit.
type demoRail struct {
	Rail    *rail.GuardRail
	Breaker *breaker.CircuitBreaker

	Success Outcome
	Failure Outcome
	Timeout Outcome
}

// Outcome is a thin alias kept local to the demo so command files don't
// need to import internal/outcome directly just to spell the type.
type Outcome = outcome.Outcome

// buildDemoRail assembles a typical rail: a semaphore gate for a cheap outer
// admission check, followed by a circuit breaker gate for the stateful one.
func buildDemoRail(name string, maxConcurrency int64, log *slog.Logger) (*demoRail, error) {
	resultClass, err := outcome.NewResultClass(
		outcome.OutcomeDef{Name: "success", Failure: false},
		outcome.OutcomeDef{Name: "error", Failure: true},
		outcome.OutcomeDef{Name: "timeout", Failure: true},
	)
	if err != nil {
		return nil, err
	}
	success, _ := resultClass.Lookup("success")
	failure, _ := resultClass.Lookup("error")
	timedOut, _ := resultClass.Lookup("timeout")

	rejectedClass, err := outcome.NewRejectionClass(outcome.ReasonMaxConcurrency, outcome.ReasonCircuitOpen)
	if err != nil {
		return nil, err
	}
	busyReason, _ := rejectedClass.Lookup(outcome.ReasonMaxConcurrency)
	openReason, _ := rejectedClass.Lookup(outcome.ReasonCircuitOpen)

	builder := rail.NewBuilder(name, resultClass, rejectedClass).
		Logger(log).
		RollingWindow(10, time.Second).
		LatencyHistogram(time.Minute, 2).
		AddBackPressure(gate.NewSemaphore(name+".sem", maxConcurrency, busyReason))

	cb := breaker.New(name+".breaker", breaker.Config{
		TrailingPeriod:             2 * time.Second,
		FailureThreshold:           5,
		FailurePercentageThreshold: 50,
		SampleSizeThreshold:        5,
		BackoffTime:                3 * time.Second,
		HealthRefreshInterval:      100 * time.Millisecond,
	}, builder.ResultCounts(), resultClass, openReason, clock.Default)
	builder.AddBackPressure(cb)

	r, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return &demoRail{Rail: r, Breaker: cb, Success: success, Failure: failure, Timeout: timedOut}, nil
}

// flakyDependency simulates a downstream call that sometimes errors and
// sometimes runs slow, so both the circuit breaker and the timeout service
// have something real to react to.
type flakyDependency struct {
	failureRate float64
	minLatency  time.Duration
	maxLatency  time.Duration
}

func (d flakyDependency) call() (string, error) {
	sleep := d.minLatency
	if d.maxLatency > d.minLatency {
		sleep += time.Duration(rand.Int63n(int64(d.maxLatency - d.minLatency)))
	}
	time.Sleep(sleep)
	if rand.Float64() < d.failureRate {
		return "", errFlaky
	}
	return "ok", nil
}
