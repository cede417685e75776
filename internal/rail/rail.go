// Package rail implements the guard rail: the single acquire/release surface
// that composes a rail's back-pressure gates and metrics into an ordered,
// user-configurable gate chain around a closed outcome/rejection taxonomy.
package rail

import (
	"log/slog"
	"time"

	"github.com/chalkan3-sloth/railguard/internal/clock"
	"github.com/chalkan3-sloth/railguard/internal/gate"
	"github.com/chalkan3-sloth/railguard/internal/metrics"
	"github.com/chalkan3-sloth/railguard/internal/outcome"
	"github.com/chalkan3-sloth/railguard/internal/promise"
)

// AcquireResult is returned by Acquire on success.
type AcquireResult struct {
	Permits    int64
	StartNanos int64
}

// GuardRail is the immutable, built rail. Construct with NewBuilder.
type GuardRail struct {
	name           string
	resultClass    *outcome.ResultClass
	rejectedClass  *outcome.RejectionClass
	resultCounts   *metrics.ResultCounts
	rejectedCounts *metrics.RejectedCounts
	latency        *metrics.LatencyRecorder
	gates          []gate.Gate
	clock          clock.Clock
	log            *slog.Logger
	sink           *metrics.PrometheusSink
}

// Name returns the rail's name.
func (r *GuardRail) Name() string { return r.name }

// ResultClass returns the rail's closed outcome set.
func (r *GuardRail) ResultClass() *outcome.ResultClass { return r.resultClass }

// RejectedClass returns the rail's closed rejection-reason set.
func (r *GuardRail) RejectedClass() *outcome.RejectionClass { return r.rejectedClass }

// ResultCounts exposes the rail's rolling result counters, e.g. for a
// circuit breaker gate built against this same rail, or for reporting.
func (r *GuardRail) ResultCounts() *metrics.ResultCounts { return r.resultCounts }

// RejectedCounts exposes the rail's lifetime rejection counters, e.g. for
// reporting.
func (r *GuardRail) RejectedCounts() *metrics.RejectedCounts { return r.rejectedCounts }

// Gates returns the rail's configured gates in registration order, e.g. so a
// reporter can find a CircuitBreaker among them without the rail needing to
// know about breakers specifically.
func (r *GuardRail) Gates() []gate.Gate { return r.gates }

// Latency exposes the rail's latency recorder, if one was configured.
func (r *GuardRail) Latency() *metrics.LatencyRecorder { return r.latency }

// Acquire evaluates every gate in registration order. The first gate that
// rejects returns its reason; permits already committed by earlier gates in
// this call are rolled back before returning, so a caller never observes a
// partial acquisition. On success, every gate's side effect is committed.
func (r *GuardRail) Acquire(n int64, nowNanos int64) (AcquireResult, error) {
	committed := make([]gate.Gate, 0, len(r.gates))
	for _, g := range r.gates {
		reason, ok := g.TryAcquire(n)
		if !ok {
			for i := len(committed) - 1; i >= 0; i-- {
				committed[i].Release(n)
			}
			r.recordRejection(reason)
			return AcquireResult{}, &RejectionError{Rail: r.name, Gate: g.Name(), Reason: reason}
		}
		committed = append(committed, g)
	}
	return AcquireResult{Permits: n, StartNanos: nowNanos}, nil
}

func (r *GuardRail) recordRejection(reason outcome.Reason) {
	r.rejectedCounts.Add(reason.Index)
	if r.sink != nil {
		r.sink.ObserveRejection(reason.Name)
	}
}

// ReleaseWithResult performs the full release chain: (1) update the result
// counter, (2) record latency, (3) inform every gate in reverse registration
// order, (4) release permits in reverse order. Every step runs even if an
// earlier step panics; the first panic is re-raised only after the whole
// chain has completed.
func (r *GuardRail) ReleaseWithResult(permits int64, o outcome.Outcome, startNanos, nowNanos int64) {
	var firstPanic any

	safely := func(fn func()) {
		defer func() {
			if p := recover(); p != nil && firstPanic == nil {
				firstPanic = p
			}
		}()
		fn()
	}

	safely(func() {
		r.resultCounts.Add(o.Index, 1, nowNanos)
	})
	safely(func() {
		if r.latency != nil {
			r.latency.Record(o.Index, time.Duration(nowNanos-startNanos))
		}
	})
	safely(func() {
		if r.sink != nil {
			r.sink.ObserveResult(o.Name, time.Duration(nowNanos-startNanos))
		}
	})
	for i := len(r.gates) - 1; i >= 0; i-- {
		g := r.gates[i]
		safely(func() { g.Observe(o, nowNanos) })
	}
	for i := len(r.gates) - 1; i >= 0; i-- {
		g := r.gates[i]
		safely(func() { g.Release(permits) })
	}

	if firstPanic != nil {
		panic(firstPanic)
	}
}

// ReleaseWithoutResult releases permits and informs gates with a caller
// chosen outcome but skips the result-counter/latency recording — used when
// the caller wants breaker feedback without polluting result metrics.
func (r *GuardRail) ReleaseWithoutResult(permits int64, o outcome.Outcome, nowNanos int64) {
	for i := len(r.gates) - 1; i >= 0; i-- {
		r.gates[i].Observe(o, nowNanos)
	}
	for i := len(r.gates) - 1; i >= 0; i-- {
		r.gates[i].Release(permits)
	}
}

// ReleaseRawPermits releases permits without any metric update or breaker
// notification at all. It exists for callers that acquired permits
// speculatively and need to give them back without the release counting as
// an observed outcome.
func (r *GuardRail) ReleaseRawPermits(permits int64) {
	for i := len(r.gates) - 1; i >= 0; i-- {
		r.gates[i].Release(permits)
	}
}

// AcquirePromise acquires n permits and, on success, returns a Promise
// pre-wired so that its completion automatically triggers
// ReleaseWithResult exactly once. On rejection it returns an already-rejected
// Future-compatible error instead.
func (r *GuardRail) AcquirePromise(n int64) (*promise.Promise, error) {
	now := r.clock.NowNanos()
	res, err := r.Acquire(n, now)
	if err != nil {
		return nil, err
	}
	p := promise.New()
	p.OnComplete(func(o promise.Outcome) {
		if o.Cancelled && o.Result.Index < 0 {
			// Cancelled with no rail-recognized outcome: release permits
			// only, exactly like ReleaseRawPermits.
			r.ReleaseRawPermits(res.Permits)
			return
		}
		r.ReleaseWithResult(res.Permits, o.Result, res.StartNanos, r.clock.NowNanos())
	})
	return p, nil
}

// AcquireCompletable is AcquirePromise's single-writer counterpart.
func (r *GuardRail) AcquireCompletable(n int64) (promise.Completable, error) {
	p, err := r.AcquirePromise(n)
	if err != nil {
		return promise.Completable{}, err
	}
	return promise.NewCompletable(p), nil
}

// ResolveOutcome is a convenience used by external bindings: it resolves
// a string outcome name against the rail's result class, raising
// InvalidResultError synchronously if the name is unknown, instead of
// silently corrupting metrics with an unindexed outcome.
func (r *GuardRail) ResolveOutcome(name string) (outcome.Outcome, error) {
	o, ok := r.resultClass.Lookup(name)
	if !ok {
		return outcome.Outcome{}, &InvalidResultError{Rail: r.name, Got: name, Allowed: r.resultClass.Names()}
	}
	return o, nil
}
