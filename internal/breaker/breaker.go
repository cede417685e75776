// Package breaker implements the circuit breaker state machine: a gate that
// trips to "open" when a rail's recent outcome mix crosses a failure
// threshold, and probes for recovery after a backoff. It reads its health
// from the rail's own rolling counters, passed in by reference at
// construction, instead of keeping a private success/failure tally.
package breaker

import (
	"sync"
	"sync/atomic"

	"github.com/chalkan3-sloth/railguard/internal/clock"
	"github.com/chalkan3-sloth/railguard/internal/gate"
	"github.com/chalkan3-sloth/railguard/internal/metrics"
	"github.com/chalkan3-sloth/railguard/internal/outcome"
)

// State is one of closed/open/half-open.
type State int32

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// healthView is the subset of a rail's counters the breaker needs to judge
// health, kept as an interface so tests can fake it without a real rail.
type healthView interface {
	TrailingSum(outcomeIdx int, now, period int64) int64
}

type healthSnapshot struct {
	valid      bool
	computedAt int64
	failures   int64
	total      int64
}

// CircuitBreaker is a back-pressure Gate (via gate.Gate) whose admission
// decision depends on its own state, and whose Observe hook is the only
// place state transitions happen.
type CircuitBreaker struct {
	name   string
	cfg    atomic.Pointer[Config]
	state  atomic.Int32
	openAt atomic.Int64

	probeClaimed atomic.Bool

	counts      healthView
	resultClass *outcome.ResultClass
	clock       clock.Clock
	reason      outcome.Reason

	snapMu   sync.Mutex
	snapshot healthSnapshot

	onStateChange func(from, to State)
}

var _ gate.Gate = (*CircuitBreaker)(nil)

// New creates a breaker bound to counts (typically a rail's own ResultCounts)
// and the result class those counts are indexed by, so the breaker knows
// which outcome indices are failures.
func New(name string, cfg Config, counts *metrics.ResultCounts, resultClass *outcome.ResultClass, reason outcome.Reason, c clock.Clock) *CircuitBreaker {
	if c == nil {
		c = clock.Default
	}
	b := &CircuitBreaker{
		name:        name,
		counts:      counts,
		resultClass: resultClass,
		clock:       c,
		reason:      reason,
	}
	b.cfg.Store(ptr(cfg.withDefaults()))
	b.state.Store(int32(Closed))
	return b
}

func ptr[T any](v T) *T { return &v }

// OnStateChange registers a callback invoked (synchronously, from whichever
// goroutine triggers the transition) whenever the state changes.
func (b *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	b.onStateChange = fn
}

func (b *CircuitBreaker) Name() string { return b.name }

// Config returns the currently active configuration.
func (b *CircuitBreaker) Config() Config { return *b.cfg.Load() }

// SetConfig hot-swaps the configuration.
func (b *CircuitBreaker) SetConfig(cfg Config) { b.cfg.Store(ptr(cfg.withDefaults())) }

// State returns the current state.
func (b *CircuitBreaker) State() State { return State(b.state.Load()) }

// TryAcquire implements gate.Gate: closed admits everything, open admits
// nothing until the backoff elapses (at which point it flips itself to
// half-open and admits exactly the request that observed the elapsed
// backoff), half-open admits exactly one in-flight probe.
func (b *CircuitBreaker) TryAcquire(int64) (outcome.Reason, bool) {
	now := b.clock.NowNanos()
	switch State(b.state.Load()) {
	case Closed:
		return outcome.Reason{}, true
	case Open:
		cfg := *b.cfg.Load()
		if now-b.openAt.Load() < int64(cfg.BackoffTime) {
			return b.reason, false
		}
		if !b.state.CompareAndSwap(int32(Open), int32(HalfOpen)) {
			// Another goroutine already flipped it; fall through to the
			// half-open admission check below.
			return b.tryClaimProbe()
		}
		b.probeClaimed.Store(false)
		b.notifyTransition(Open, HalfOpen)
		return b.tryClaimProbe()
	case HalfOpen:
		return b.tryClaimProbe()
	default:
		return b.reason, false
	}
}

func (b *CircuitBreaker) tryClaimProbe() (outcome.Reason, bool) {
	if b.probeClaimed.CompareAndSwap(false, true) {
		return outcome.Reason{}, true
	}
	return b.reason, false
}

// Release is a no-op: the breaker does not hold permits of its own.
func (b *CircuitBreaker) Release(int64) {}

// Observe is the breaker's "inform" hook, called by the guard rail on every
// release. This is the only place state transitions originate.
func (b *CircuitBreaker) Observe(o outcome.Outcome, nowNanos int64) {
	switch State(b.state.Load()) {
	case Closed:
		if o.Failure {
			b.evaluateFromClosed(nowNanos)
		}
	case HalfOpen:
		if o.Failure {
			b.toOpen(nowNanos)
		} else {
			b.toClosed()
		}
	case Open:
		// A release can race a backoff-driven transition out of Open; the
		// observation simply has no effect on an already-open breaker.
	}
}

func (b *CircuitBreaker) evaluateFromClosed(now int64) {
	snap := b.health(now)
	cfg := *b.cfg.Load()
	tripByCount := snap.failures > cfg.FailureThreshold
	tripByRatio := snap.total >= cfg.SampleSizeThreshold &&
		float64(snap.failures)/float64(snap.total)*100 >= cfg.FailurePercentageThreshold
	if tripByCount || tripByRatio {
		b.toOpen(now)
	}
}

func (b *CircuitBreaker) toOpen(now int64) {
	prev := State(b.state.Swap(int32(Open)))
	b.openAt.Store(now)
	if prev != Open {
		b.probeClaimed.Store(false)
		b.notifyTransition(prev, Open)
	}
}

func (b *CircuitBreaker) toClosed() {
	if b.state.Swap(int32(Closed)) != int32(Closed) {
		b.notifyTransition(HalfOpen, Closed)
	}
}

// ForceOpen is an admin override that sets the state unconditionally.
func (b *CircuitBreaker) ForceOpen() {
	prev := State(b.state.Swap(int32(Open)))
	b.openAt.Store(b.clock.NowNanos())
	b.probeClaimed.Store(false)
	if prev != Open {
		b.notifyTransition(prev, Open)
	}
}

// ForceClosed is an admin override that sets the state unconditionally.
func (b *CircuitBreaker) ForceClosed() {
	prev := State(b.state.Swap(int32(Closed)))
	if prev != Closed {
		b.notifyTransition(prev, Closed)
	}
}

func (b *CircuitBreaker) notifyTransition(from, to State) {
	if b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}

// health returns a (possibly cached) failure/total snapshot over the
// trailing period, bounding how often the rolling counters are actually
// summed.
func (b *CircuitBreaker) health(now int64) healthSnapshot {
	cfg := *b.cfg.Load()

	b.snapMu.Lock()
	defer b.snapMu.Unlock()

	if b.snapshot.valid && now-b.snapshot.computedAt < int64(cfg.HealthRefreshInterval) {
		return b.snapshot
	}

	var failures, total int64
	for _, o := range b.resultClass.All() {
		sum := b.counts.TrailingSum(o.Index, now, int64(cfg.TrailingPeriod))
		total += sum
		if o.Failure {
			failures += sum
		}
	}
	b.snapshot = healthSnapshot{valid: true, computedAt: now, failures: failures, total: total}
	return b.snapshot
}

// Snapshot exposes the current (possibly cached) health read, for reporting.
func (b *CircuitBreaker) Snapshot() (failures, total int64) {
	s := b.health(b.clock.NowNanos())
	return s.failures, s.total
}
