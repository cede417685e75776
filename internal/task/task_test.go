package task

import (
	"errors"
	"testing"

	"github.com/chalkan3-sloth/railguard/internal/outcome"
	"github.com/chalkan3-sloth/railguard/internal/promise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOutcomes(t *testing.T) (success, failure outcome.Outcome) {
	t.Helper()
	rc, err := outcome.NewResultClass(
		outcome.OutcomeDef{Name: "success", Failure: false},
		outcome.OutcomeDef{Name: "error", Failure: true},
	)
	require.NoError(t, err)
	s, _ := rc.Lookup("success")
	f, _ := rc.Lookup("error")
	return s, f
}

func TestCancellableTaskRun(t *testing.T) {
	success, failure := testOutcomes(t)

	t.Run("successful action completes with the converted success outcome", func(t *testing.T) {
		p := promise.New()
		tk := New(
			func() (int, error) { return 42, nil },
			func(v int) outcome.Outcome { return success },
			func(error) outcome.Outcome { return failure },
			promise.NewCompletable(p),
		)
		tk.Run()

		res, ok := p.Result()
		require.True(t, ok)
		assert.Equal(t, success, res.Result)
		assert.Equal(t, 42, res.Value)
	})

	t.Run("erroring action completes with the converted failure outcome", func(t *testing.T) {
		p := promise.New()
		boom := errors.New("boom")
		tk := New(
			func() (int, error) { return 0, boom },
			func(v int) outcome.Outcome { return success },
			func(error) outcome.Outcome { return failure },
			promise.NewCompletable(p),
		)
		tk.Run()

		res, ok := p.Result()
		require.True(t, ok)
		assert.Equal(t, failure, res.Result)
		assert.Equal(t, boom, res.Value)
	})

	t.Run("run after cancel does not overwrite the cancellation outcome", func(t *testing.T) {
		p := promise.New()
		tk := New(
			func() (int, error) { return 99, nil },
			func(v int) outcome.Outcome { return success },
			func(error) outcome.Outcome { return failure },
			promise.NewCompletable(p),
		)

		timeoutErr := &TimeoutError{}
		assert.True(t, tk.Cancel(failure, timeoutErr))
		tk.Run()

		res, ok := p.Result()
		require.True(t, ok)
		assert.Equal(t, failure, res.Result)
		assert.True(t, res.Cancelled)
		assert.Equal(t, timeoutErr, res.Value)
	})
}

func TestCancellableTaskCancel(t *testing.T) {
	_, failure := testOutcomes(t)

	t.Run("cancel wins the race exactly once", func(t *testing.T) {
		p := promise.New()
		tk := New(
			func() (int, error) { return 1, nil },
			func(int) outcome.Outcome { return failure },
			func(error) outcome.Outcome { return failure },
			promise.NewCompletable(p),
		)

		assert.True(t, tk.Cancel(failure, nil))
		assert.False(t, tk.Cancel(failure, nil))
		assert.True(t, tk.IsCancelled())
	})
}
