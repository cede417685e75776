package clock

import "sync/atomic"

// Fake is a manually advanced Clock for deterministic tests.
type Fake struct {
	nanos atomic.Int64
}

// NewFake creates a Fake clock starting at startNanos.
func NewFake(startNanos int64) *Fake {
	f := &Fake{}
	f.nanos.Store(startNanos)
	return f
}

func (f *Fake) NowNanos() int64  { return f.nanos.Load() }
func (f *Fake) NowMillis() int64 { return f.nanos.Load() / 1_000_000 }

// Advance moves the clock forward by d nanoseconds.
func (f *Fake) Advance(d int64) { f.nanos.Add(d) }

// Set pins the clock to an absolute nanosecond value.
func (f *Fake) Set(nanos int64) { f.nanos.Store(nanos) }

var _ Clock = (*Fake)(nil)
