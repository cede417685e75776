package gate

import (
	"sync/atomic"

	"github.com/chalkan3-sloth/railguard/internal/outcome"
)

// Semaphore is a non-blocking permit counter, the minimal back-pressure
// mechanism every rail has: a single in_use word CAS'd against a fixed max.
// Acquire never blocks, even when the semaphore is at capacity.
type Semaphore struct {
	name    string
	inUse   atomic.Int64
	max     int64
	reason  outcome.Reason
}

var _ Gate = (*Semaphore)(nil)

// NewSemaphore creates a semaphore gate admitting at most max concurrent
// permits, rejecting with reason once exceeded.
func NewSemaphore(name string, max int64, reason outcome.Reason) *Semaphore {
	return &Semaphore{name: name, max: max, reason: reason}
}

func (s *Semaphore) Name() string { return s.name }

// TryAcquire admits n permits iff in_use+n <= max, via CAS loop.
func (s *Semaphore) TryAcquire(n int64) (outcome.Reason, bool) {
	for {
		cur := s.inUse.Load()
		next := cur + n
		if next > s.max {
			return s.reason, false
		}
		if s.inUse.CompareAndSwap(cur, next) {
			return outcome.Reason{}, true
		}
	}
}

// Release returns n permits. Underflow (releasing more than was acquired)
// indicates a caller bug in the at-most-once release chain and panics in
// all builds — it can only happen if release bookkeeping is already broken.
func (s *Semaphore) Release(n int64) {
	next := s.inUse.Add(-n)
	if next < 0 {
		panic("gate: semaphore released more permits than were acquired")
	}
}

// Observe is a no-op: a bare semaphore has no outcome-dependent state.
func (s *Semaphore) Observe(outcome.Outcome, int64) {}

// InUse returns the current permit count, for diagnostics/tests.
func (s *Semaphore) InUse() int64 { return s.inUse.Load() }

// Max returns the configured capacity.
func (s *Semaphore) Max() int64 { return s.max }
