package gate

import (
	"testing"

	"github.com/chalkan3-sloth/railguard/internal/outcome"
	"github.com/stretchr/testify/assert"
)

func TestSemaphore(t *testing.T) {
	busy := outcome.Reason{Index: 0, Name: "max-concurrency"}

	t.Run("admits up to capacity", func(t *testing.T) {
		s := NewSemaphore("rail.sem", 2, busy)

		_, ok := s.TryAcquire(1)
		assert.True(t, ok)
		_, ok = s.TryAcquire(1)
		assert.True(t, ok)
		assert.Equal(t, int64(2), s.InUse())
	})

	t.Run("rejects once over capacity", func(t *testing.T) {
		s := NewSemaphore("rail.sem", 1, busy)
		_, ok := s.TryAcquire(1)
		assert.True(t, ok)

		reason, ok := s.TryAcquire(1)
		assert.False(t, ok)
		assert.Equal(t, busy, reason)
	})

	t.Run("release frees permits for a later acquire", func(t *testing.T) {
		s := NewSemaphore("rail.sem", 1, busy)
		_, _ = s.TryAcquire(1)
		s.Release(1)

		_, ok := s.TryAcquire(1)
		assert.True(t, ok)
		assert.Equal(t, int64(1), s.InUse())
	})

	t.Run("release underflow panics", func(t *testing.T) {
		s := NewSemaphore("rail.sem", 1, busy)
		assert.Panics(t, func() { s.Release(1) })
	})
}
