package timeout

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTask struct {
	cancelled atomic.Bool
	onCancel  func()
}

func (f *fakeTask) Cancel() bool {
	won := f.cancelled.CompareAndSwap(false, true)
	if won && f.onCancel != nil {
		f.onCancel()
	}
	return won
}

func TestService(t *testing.T) {
	t.Run("fires a task once its deadline elapses", func(t *testing.T) {
		svc := New()
		defer svc.Shutdown()

		fired := make(chan struct{})
		tk := &fakeTask{onCancel: func() { close(fired) }}
		svc.Arm(time.Now().Add(20*time.Millisecond), tk)

		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatal("timeout task never fired")
		}
		assert.True(t, tk.cancelled.Load())
	})

	t.Run("removing an entry before its deadline prevents it from firing", func(t *testing.T) {
		svc := New()
		defer svc.Shutdown()

		tk := &fakeTask{}
		remove := svc.Arm(time.Now().Add(200*time.Millisecond), tk)
		remove()

		time.Sleep(300 * time.Millisecond)
		assert.False(t, tk.cancelled.Load())
	})

	t.Run("an earlier deadline added after a later one still fires on time", func(t *testing.T) {
		svc := New()
		defer svc.Shutdown()

		lateFired := make(chan struct{})
		earlyFired := make(chan struct{})
		late := &fakeTask{onCancel: func() { close(lateFired) }}
		early := &fakeTask{onCancel: func() { close(earlyFired) }}

		svc.Arm(time.Now().Add(500*time.Millisecond), late)
		svc.Arm(time.Now().Add(20*time.Millisecond), early)

		select {
		case <-earlyFired:
		case <-lateFired:
			t.Fatal("late task fired before the early one")
		case <-time.After(2 * time.Second):
			t.Fatal("early task never fired")
		}
	})

	t.Run("shutdown is idempotent", func(t *testing.T) {
		svc := New()
		svc.Shutdown()
		require.NotPanics(t, svc.Shutdown)
	})
}
