// Package gate defines the back-pressure mechanisms a guard rail composes in
// registration order: each gate can deny an acquire with a structured
// rejection reason, or admit it and later observe the outcome of the work it
// admitted.
package gate

import "github.com/chalkan3-sloth/railguard/internal/outcome"

// Gate is a back-pressure mechanism. TryAcquire must never block. Release
// and Observe are called from the guard rail's release path, in reverse
// registration order, and must also never block.
type Gate interface {
	// Name identifies the gate for logging/diagnostics.
	Name() string
	// TryAcquire attempts to admit n permits. On rejection it returns the
	// reason this gate denies the request; ok is false.
	TryAcquire(n int64) (reason outcome.Reason, ok bool)
	// Release gives back n permits previously admitted by TryAcquire.
	Release(n int64)
	// Observe reports the outcome of work this gate admitted, so stateful
	// gates (e.g. a circuit breaker) can update their own bookkeeping. Gates
	// that don't need outcome feedback (e.g. a bare semaphore) may no-op.
	Observe(o outcome.Outcome, nowNanos int64)
}
