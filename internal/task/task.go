// Package task wraps a unit of admitted work with its cancellation and
// outcome-conversion rules, the layer between a guard rail's promise and the
// actual user action a thread-pool worker runs.
package task

import (
	"sync/atomic"

	"github.com/chalkan3-sloth/railguard/internal/outcome"
	"github.com/chalkan3-sloth/railguard/internal/promise"
	"github.com/google/uuid"
)

// TimeoutError is delivered as the value of a timed-out task's outcome.
type TimeoutError struct {
	// Elapsed is left for the caller to fill in from its own clock; the
	// task itself has no timing concept beyond "cancel was called".
}

func (e *TimeoutError) Error() string { return "task: timed out before completion" }

// ResultConverter maps a successful action result to a rail outcome.
type ResultConverter[V any] func(V) outcome.Outcome

// ErrorConverter maps an action error to a rail outcome.
type ErrorConverter func(error) outcome.Outcome

// CancellableTask wraps action so that a timeout or an external caller can
// cancel it: cancellation only affects what gets reported to the target
// promise, since a running goroutine can't be preempted — the action keeps
// running to completion in the background, its result simply discarded.
type CancellableTask[V any] struct {
	action      func() (V, error)
	resultToOut ResultConverter[V]
	errorToOut  ErrorConverter
	target      promise.Completable
	cancelled   atomic.Bool
}

// ID returns the correlation id of the task's target promise, stable across
// acquire, Run/Cancel and the rail's release chain so a log line from any of
// those stages can be joined on the same id.
func (t *CancellableTask[V]) ID() uuid.UUID { return t.target.ID() }

// New builds a CancellableTask whose target promise will be completed
// exactly once, either by Run or by Cancel — whichever gets there first.
func New[V any](action func() (V, error), resultToOut ResultConverter[V], errorToOut ErrorConverter, target promise.Completable) *CancellableTask[V] {
	return &CancellableTask[V]{
		action:      action,
		resultToOut: resultToOut,
		errorToOut:  errorToOut,
		target:      target,
	}
}

// Run executes action and completes the target promise with the converted
// outcome. If the task was already cancelled, the action's return value is
// computed (there is no way to abort a running function in Go) but
// discarded: the target promise was already completed by Cancel.
func (t *CancellableTask[V]) Run() {
	v, err := t.action()
	if t.cancelled.Load() {
		return
	}
	if err != nil {
		t.target.Complete(promise.Outcome{Result: t.errorToOut(err), Value: err})
		return
	}
	t.target.Complete(promise.Outcome{Result: t.resultToOut(v), Value: v})
}

// Cancel marks the task cancelled and completes the target promise with the
// given outcome (typically a timeout outcome). It is a no-op if the task has
// already completed naturally or was already cancelled — the first caller
// to flip the flag owns the completion.
func (t *CancellableTask[V]) Cancel(o outcome.Outcome, cause error) bool {
	if !t.cancelled.CompareAndSwap(false, true) {
		return false
	}
	return t.target.Complete(promise.Outcome{Result: o, Value: cause, Cancelled: true})
}

// IsCancelled reports whether Cancel has already won the race.
func (t *CancellableTask[V]) IsCancelled() bool { return t.cancelled.Load() }
