package rail

import (
	"testing"
	"time"

	"github.com/chalkan3-sloth/railguard/internal/breaker"
	"github.com/chalkan3-sloth/railguard/internal/clock"
	"github.com/chalkan3-sloth/railguard/internal/gate"
	"github.com/chalkan3-sloth/railguard/internal/outcome"
	"github.com/chalkan3-sloth/railguard/internal/promise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRail(t *testing.T, maxConcurrency int64) (*GuardRail, *outcome.ResultClass, *clock.Fake) {
	t.Helper()
	resultClass, err := outcome.NewResultClass(
		outcome.OutcomeDef{Name: "success", Failure: false},
		outcome.OutcomeDef{Name: "error", Failure: true},
	)
	require.NoError(t, err)
	rejectedClass, err := outcome.NewRejectionClass(outcome.ReasonMaxConcurrency, outcome.ReasonCircuitOpen)
	require.NoError(t, err)

	busy, _ := rejectedClass.Lookup(outcome.ReasonMaxConcurrency)
	fc := clock.NewFake(0)
	sem := gate.NewSemaphore("rail.sem", maxConcurrency, busy)

	r, err := NewBuilder("orders", resultClass, rejectedClass).
		Clock(fc).
		AddBackPressure(sem).
		Build()
	require.NoError(t, err)
	return r, resultClass, fc
}

func TestGuardRailAcquireRelease(t *testing.T) {
	t.Run("acquire admits within capacity and release frees it", func(t *testing.T) {
		r, resultClass, fc := newTestRail(t, 1)
		res, err := r.Acquire(1, fc.NowNanos())
		require.NoError(t, err)

		success, _ := resultClass.Lookup("success")
		r.ReleaseWithResult(res.Permits, success, res.StartNanos, fc.NowNanos())

		res2, err := r.Acquire(1, fc.NowNanos())
		require.NoError(t, err)
		assert.Equal(t, int64(1), res2.Permits)
	})

	t.Run("rejection surfaces a structured RejectionError", func(t *testing.T) {
		r, _, fc := newTestRail(t, 0)
		_, err := r.Acquire(1, fc.NowNanos())
		require.Error(t, err)

		var rejErr *RejectionError
		require.ErrorAs(t, err, &rejErr)
		assert.Equal(t, "rail.sem", rejErr.Gate)
		assert.Equal(t, outcome.ReasonMaxConcurrency, rejErr.Reason.Name)
	})

	t.Run("rollback on rejection leaves no partial acquisition", func(t *testing.T) {
		resultClass, err := outcome.NewResultClass(outcome.OutcomeDef{Name: "success"})
		require.NoError(t, err)
		rejectedClass, err := outcome.NewRejectionClass(outcome.ReasonMaxConcurrency)
		require.NoError(t, err)
		busy, _ := rejectedClass.Lookup(outcome.ReasonMaxConcurrency)
		fc := clock.NewFake(0)

		outer := gate.NewSemaphore("outer", 10, busy)
		inner := gate.NewSemaphore("inner", 0, busy)

		r, err := NewBuilder("orders", resultClass, rejectedClass).
			Clock(fc).
			AddBackPressure(outer).
			AddBackPressure(inner).
			Build()
		require.NoError(t, err)

		_, err = r.Acquire(1, fc.NowNanos())
		require.Error(t, err)
		assert.Equal(t, int64(0), outer.InUse(), "outer gate's permit must be rolled back")
	})

	t.Run("raw permit release frees permits and skips result counters", func(t *testing.T) {
		r, _, fc := newTestRail(t, 1)
		res, err := r.Acquire(1, fc.NowNanos())
		require.NoError(t, err)

		r.ReleaseRawPermits(res.Permits)

		res2, err := r.Acquire(1, fc.NowNanos())
		require.NoError(t, err)
		assert.Equal(t, int64(1), res2.Permits)
		assert.Equal(t, int64(0), r.ResultCounts().Total(0))
	})
}

func TestGuardRailWithCircuitBreaker(t *testing.T) {
	resultClass, err := outcome.NewResultClass(
		outcome.OutcomeDef{Name: "success", Failure: false},
		outcome.OutcomeDef{Name: "error", Failure: true},
	)
	require.NoError(t, err)
	rejectedClass, err := outcome.NewRejectionClass(outcome.ReasonMaxConcurrency, outcome.ReasonCircuitOpen)
	require.NoError(t, err)
	circuitOpen, _ := rejectedClass.Lookup(outcome.ReasonCircuitOpen)
	fc := clock.NewFake(0)

	empty, err := NewBuilder("payments", resultClass, rejectedClass).
		Clock(fc).
		RollingWindow(10, time.Second).
		Build()
	require.Error(t, err, "a rail with no gates must fail to build")
	assert.Nil(t, empty)

	cfg := breaker.DefaultConfig()
	cfg.FailureThreshold = 1
	cfg.SampleSizeThreshold = 1_000_000
	cfg.HealthRefreshInterval = 0

	builder := NewBuilder("payments", resultClass, rejectedClass).Clock(fc).RollingWindow(10, time.Second)
	cb := breaker.New("payments.breaker", cfg, builder.ResultCounts(), resultClass, circuitOpen, fc)
	r, err := builder.AddBackPressure(cb).Build()
	require.NoError(t, err)

	success, _ := resultClass.Lookup("success")
	errOutcome, _ := resultClass.Lookup("error")

	res, err := r.Acquire(1, fc.NowNanos())
	require.NoError(t, err)
	r.ReleaseWithResult(res.Permits, errOutcome, res.StartNanos, fc.NowNanos())
	assert.Equal(t, breaker.Closed, cb.State(), "the threshold is strict: one failure leaves a threshold-1 breaker closed")

	res, err = r.Acquire(1, fc.NowNanos())
	require.NoError(t, err)
	r.ReleaseWithResult(res.Permits, errOutcome, res.StartNanos, fc.NowNanos())
	assert.Equal(t, breaker.Open, cb.State(), "a second failure trips a threshold-1 breaker")

	_, err = r.Acquire(1, fc.NowNanos())
	var rejErr *RejectionError
	require.ErrorAs(t, err, &rejErr)
	assert.Equal(t, outcome.ReasonCircuitOpen, rejErr.Reason.Name)

	fc.Advance(int64(cfg.BackoffTime))
	res, err = r.Acquire(1, fc.NowNanos())
	require.NoError(t, err, "backoff elapsed: exactly one half-open probe is admitted")
	r.ReleaseWithResult(res.Permits, success, res.StartNanos, fc.NowNanos())
	assert.Equal(t, breaker.Closed, cb.State())
}

func TestGuardRailAcquirePromise(t *testing.T) {
	t.Run("completing the promise releases the permit automatically", func(t *testing.T) {
		r, resultClass, fc := newTestRail(t, 1)
		success, _ := resultClass.Lookup("success")

		p, err := r.AcquirePromise(1)
		require.NoError(t, err)

		_, err = r.Acquire(1, fc.NowNanos())
		require.Error(t, err, "the sole permit is still held by the uncompleted promise")

		p.Complete(promise.Outcome{Result: success})

		_, err = r.Acquire(1, fc.NowNanos())
		assert.NoError(t, err, "completing the promise must have released its permit")
	})

	t.Run("rejected acquire returns an error, not a promise", func(t *testing.T) {
		r, _, _ := newTestRail(t, 0)
		p, err := r.AcquirePromise(1)
		assert.Nil(t, p)
		require.Error(t, err)
	})
}
