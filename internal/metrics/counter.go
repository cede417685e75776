// Package metrics implements the bucketed rolling counters and latency
// histograms the guard rail and circuit breaker read from. Counters are
// lock-free on the write path (a CAS per bucket) and wait-free on the read
// path (a plain sum over a fixed-size slice), matching the write-heavy,
// read-occasional access pattern of a hot acquire/release loop.
package metrics

import (
	"sync/atomic"
)

// bucket is one time-windowed slot of a BucketedCounter. windowStart and
// count are updated independently; a writer that observes a stale
// windowStart resets the bucket (CAS on windowStart, then a plain store of
// count) before adding its delta, so at most one writer per stale window
// performs the reset and late writers simply add into the now-current window.
type bucket struct {
	windowStart atomic.Int64
	count       atomic.Int64
}

// BucketedCounter is a ring of B buckets of width W nanoseconds recording a
// single outcome's occurrences over a rolling window. Buckets older than
// B*W are recycled lazily, on the next write that lands on them — there is
// no background sweep.
type BucketedCounter struct {
	buckets []bucket
	width   int64
}

// NewBucketedCounter creates a counter with the given bucket count and
// per-bucket width. Both must be positive.
func NewBucketedCounter(bucketCount int, width int64) *BucketedCounter {
	if bucketCount <= 0 {
		bucketCount = 1
	}
	if width <= 0 {
		width = 1
	}
	return &BucketedCounter{
		buckets: make([]bucket, bucketCount),
		width:   width,
	}
}

func (c *BucketedCounter) slot(t int64) int {
	idx := (t / c.width) % int64(len(c.buckets))
	if idx < 0 {
		idx += int64(len(c.buckets))
	}
	return int(idx)
}

// Add records n (must be >= 0) at time t, recycling the target bucket first
// if it belongs to an earlier window.
func (c *BucketedCounter) Add(n int64, t int64) {
	if n < 0 {
		panic("metrics: bucketed counter delta must not be negative")
	}
	b := &c.buckets[c.slot(t)]
	windowStart := (t / c.width) * c.width

	for {
		cur := b.windowStart.Load()
		if cur == windowStart {
			break
		}
		// Stale or uninitialized bucket: try to claim it for the new window.
		if b.windowStart.CompareAndSwap(cur, windowStart) {
			b.count.Store(0)
			break
		}
		// Lost the race; re-check — the winner may have set exactly our window,
		// or a still-newer write may have moved on again.
	}
	if n > 0 {
		b.count.Add(n)
	}
}

// Sum aggregates all buckets whose window intersects [since, until].
// Buckets whose window has rotated out of range contribute nothing, which
// is how the "trailing period" read is approximated without a sweep.
func (c *BucketedCounter) Sum(since, until int64) int64 {
	var total int64
	for i := range c.buckets {
		b := &c.buckets[i]
		ws := b.windowStart.Load()
		if ws == 0 && b.count.Load() == 0 {
			continue
		}
		if ws+c.width > since && ws <= until {
			total += b.count.Load()
		}
	}
	return total
}

// Total sums every bucket regardless of age, used for lifetime counts.
func (c *BucketedCounter) Total() int64 {
	var total int64
	for i := range c.buckets {
		total += c.buckets[i].count.Load()
	}
	return total
}

// ResultCounts composes one BucketedCounter per outcome index, forming the
// rail's result counter. The outcome count is fixed at construction,
// mirroring the closed result class it indexes.
type ResultCounts struct {
	perOutcome []*BucketedCounter
	bucketN    int
	bucketW    int64
}

// NewResultCounts allocates one counter per outcome slot.
func NewResultCounts(outcomeCount, bucketCount int, bucketWidthNanos int64) *ResultCounts {
	rc := &ResultCounts{
		perOutcome: make([]*BucketedCounter, outcomeCount),
		bucketN:    bucketCount,
		bucketW:    bucketWidthNanos,
	}
	for i := range rc.perOutcome {
		rc.perOutcome[i] = NewBucketedCounter(bucketCount, bucketWidthNanos)
	}
	return rc
}

// Add records one occurrence of outcomeIdx at time t.
func (rc *ResultCounts) Add(outcomeIdx int, n int64, t int64) {
	rc.perOutcome[outcomeIdx].Add(n, t)
}

// TrailingSum returns the count for outcomeIdx over [now-period, now].
func (rc *ResultCounts) TrailingSum(outcomeIdx int, now, period int64) int64 {
	return rc.perOutcome[outcomeIdx].Sum(now-period, now)
}

// Total returns the lifetime count for outcomeIdx, ignoring window age.
func (rc *ResultCounts) Total(outcomeIdx int) int64 {
	return rc.perOutcome[outcomeIdx].Total()
}

// Count returns the number of outcome slots this ResultCounts was built for.
func (rc *ResultCounts) Count() int { return len(rc.perOutcome) }

// RejectedCounts is a simpler lifetime-only counter keyed by rejection
// reason index — rejections don't participate in breaker health windows,
// so no rolling window is needed, just monotonic totals.
type RejectedCounts struct {
	counts []atomic.Int64
}

// NewRejectedCounts allocates one counter per rejection reason slot.
func NewRejectedCounts(reasonCount int) *RejectedCounts {
	return &RejectedCounts{counts: make([]atomic.Int64, reasonCount)}
}

// Add increments the counter for reasonIdx.
func (r *RejectedCounts) Add(reasonIdx int) {
	r.counts[reasonIdx].Add(1)
}

// Total returns the lifetime count for reasonIdx.
func (r *RejectedCounts) Total(reasonIdx int) int64 {
	return r.counts[reasonIdx].Load()
}

func (r *RejectedCounts) Count() int { return len(r.counts) }
