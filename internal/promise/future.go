package promise

import (
	"github.com/chalkan3-sloth/railguard/internal/outcome"
	"github.com/google/uuid"
)

// Future is the read-side view external bindings consume: a structural
// view over a Promise (pending?/result/value/failure?/success?), plus the
// already-rejected variant the executor returns when a guard rail denies an
// acquire before any work is ever submitted. A rejected Future never
// transitions — there is no promise underneath it to complete.
type Future struct {
	p              *Promise
	rejected       bool
	rejectedReason outcome.Reason
}

// FromPromise wraps a live promise as a Future.
func FromPromise(p *Promise) Future {
	return Future{p: p}
}

// Rejected returns an already-rejected Future carrying reason. It never
// transitions: IsPending is always false, IsRejected is always true.
func Rejected(reason outcome.Reason) Future {
	return Future{rejected: true, rejectedReason: reason}
}

// ID returns the correlation id of the underlying promise, or the zero
// UUID for a rejected Future that never had one.
func (f Future) ID() uuid.UUID {
	if f.rejected {
		return uuid.UUID{}
	}
	return f.p.ID()
}

// IsRejected reports whether this Future was rejected at acquire time,
// along with the reason.
func (f Future) IsRejected() (outcome.Reason, bool) {
	return f.rejectedReason, f.rejected
}

// IsPending reports whether the underlying promise has not completed yet.
// A rejected Future is never pending.
func (f Future) IsPending() bool {
	if f.rejected {
		return false
	}
	return !f.p.IsDone()
}

// Result returns the completion outcome, if any. Always false for a
// rejected Future.
func (f Future) Result() (Outcome, bool) {
	if f.rejected {
		return Outcome{}, false
	}
	return f.p.Result()
}

// Await blocks until the underlying promise completes and returns its
// outcome. A rejected Future returns immediately with ok=false.
func (f Future) Await() (Outcome, bool) {
	if f.rejected {
		return Outcome{}, false
	}
	return f.p.Await(), true
}

// OnComplete registers cb to run once the underlying promise completes.
// It is a no-op on a rejected Future, since a rejected Future never
// transitions and has no promise to subscribe to.
func (f Future) OnComplete(cb Callback) {
	if f.rejected {
		return
	}
	f.p.OnComplete(cb)
}
