package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/chalkan3-sloth/railguard/internal/clock"
	"github.com/chalkan3-sloth/railguard/internal/gate"
	"github.com/chalkan3-sloth/railguard/internal/outcome"
	"github.com/chalkan3-sloth/railguard/internal/rail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoop(t *testing.T, maxConcurrency int64) (*Loop, outcome.Outcome, outcome.Outcome, outcome.Outcome) {
	t.Helper()
	resultClass, err := outcome.NewResultClass(
		outcome.OutcomeDef{Name: "success", Failure: false},
		outcome.OutcomeDef{Name: "error", Failure: true},
		outcome.OutcomeDef{Name: "timeout", Failure: true},
	)
	require.NoError(t, err)
	rejectedClass, err := outcome.NewRejectionClass(outcome.ReasonMaxConcurrency)
	require.NoError(t, err)
	busy, _ := rejectedClass.Lookup(outcome.ReasonMaxConcurrency)

	sem := gate.NewSemaphore("loop.sem", maxConcurrency, busy)
	r, err := rail.NewBuilder("batch", resultClass, rejectedClass).
		Clock(clock.Default).
		AddBackPressure(sem).
		Build()
	require.NoError(t, err)

	success, _ := resultClass.Lookup("success")
	failure, _ := resultClass.Lookup("error")
	to, _ := resultClass.Lookup("timeout")

	l := New(r, 8, to)
	go l.Run()
	t.Cleanup(l.Stop)
	return l, success, failure, to
}

func TestLoopSubmit(t *testing.T) {
	t.Run("successful action resolves the future", func(t *testing.T) {
		l, success, failure, _ := newTestLoop(t, 4)
		f := Submit(l, func() (int, error) { return 3, nil }, success, failure, 0)

		res, ok := f.Await()
		require.True(t, ok)
		assert.Equal(t, success, res.Result)
		assert.Equal(t, 3, res.Value)
	})

	t.Run("erroring action resolves with the failure outcome", func(t *testing.T) {
		l, success, failure, _ := newTestLoop(t, 4)
		boom := errors.New("boom")
		f := Submit(l, func() (int, error) { return 0, boom }, success, failure, 0)

		res, ok := f.Await()
		require.True(t, ok)
		assert.Equal(t, failure, res.Result)
		assert.Equal(t, boom, res.Value)
	})

	t.Run("rejected acquire returns an already-rejected future", func(t *testing.T) {
		l, success, failure, _ := newTestLoop(t, 0)
		f := Submit(l, func() (int, error) { return 1, nil }, success, failure, 0)

		reason, rejected := f.IsRejected()
		assert.True(t, rejected)
		assert.Equal(t, outcome.ReasonMaxConcurrency, reason.Name)
	})

	t.Run("a slow action is cancelled at its deadline", func(t *testing.T) {
		l, success, failure, to := newTestLoop(t, 4)
		f := Submit(l, func() (int, error) {
			time.Sleep(500 * time.Millisecond)
			return 1, nil
		}, success, failure, 20*time.Millisecond)

		res, ok := f.Await()
		require.True(t, ok)
		assert.Equal(t, to, res.Result)
		assert.True(t, res.Cancelled)
	})
}

func TestLoopEmptyCycleIsANoOp(t *testing.T) {
	l, _, _, _ := newTestLoop(t, 4)
	assert.False(t, l.scheduleStep())
	assert.False(t, l.returnStep())
	assert.False(t, l.timeoutStep())
}
