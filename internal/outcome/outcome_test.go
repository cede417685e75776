package outcome

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultClass(t *testing.T) {
	t.Run("indexes in definition order", func(t *testing.T) {
		rc, err := NewResultClass(
			OutcomeDef{Name: "success", Failure: false},
			OutcomeDef{Name: "error", Failure: true},
			OutcomeDef{Name: "timeout", Failure: true},
		)
		require.NoError(t, err)
		assert.Equal(t, 3, rc.Len())

		success, ok := rc.Lookup("success")
		require.True(t, ok)
		assert.Equal(t, 0, success.Index)
		assert.False(t, success.Failure)
		assert.True(t, success.IsSuccess())

		timeout, ok := rc.Lookup("timeout")
		require.True(t, ok)
		assert.Equal(t, 2, timeout.Index)
		assert.True(t, timeout.Failure)
		assert.Equal(t, timeout, rc.At(2))
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		_, err := NewResultClass(
			OutcomeDef{Name: "success"},
			OutcomeDef{Name: "success"},
		)
		assert.Error(t, err)
	})

	t.Run("rejects empty definition list", func(t *testing.T) {
		_, err := NewResultClass()
		assert.Error(t, err)
	})

	t.Run("unknown lookup", func(t *testing.T) {
		rc, err := NewResultClass(OutcomeDef{Name: "success"})
		require.NoError(t, err)
		_, ok := rc.Lookup("nope")
		assert.False(t, ok)
	})

	t.Run("names in index order", func(t *testing.T) {
		rc, err := NewResultClass(
			OutcomeDef{Name: "a"},
			OutcomeDef{Name: "b"},
		)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, rc.Names())
	})
}

func TestRejectionClass(t *testing.T) {
	t.Run("indexes in definition order", func(t *testing.T) {
		rc, err := NewRejectionClass(ReasonMaxConcurrency, ReasonCircuitOpen)
		require.NoError(t, err)
		assert.Equal(t, 2, rc.Len())

		r, ok := rc.Lookup(ReasonCircuitOpen)
		require.True(t, ok)
		assert.Equal(t, 1, r.Index)
		assert.Equal(t, ReasonCircuitOpen, r.String())
	})

	t.Run("rejects duplicate reasons", func(t *testing.T) {
		_, err := NewRejectionClass("busy", "busy")
		assert.Error(t, err)
	})
}
