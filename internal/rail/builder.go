package rail

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/chalkan3-sloth/railguard/internal/clock"
	"github.com/chalkan3-sloth/railguard/internal/gate"
	"github.com/chalkan3-sloth/railguard/internal/metrics"
	"github.com/chalkan3-sloth/railguard/internal/outcome"
	"github.com/prometheus/client_golang/prometheus"
)

// Builder assembles a GuardRail. Gates are added in the order they should be
// evaluated on acquire and released in reverse on release, so the first gate
// added is the outermost check (typically a cheap semaphore) and the last is
// the innermost (typically a circuit breaker).
type Builder struct {
	name          string
	resultClass   *outcome.ResultClass
	rejectedClass *outcome.RejectionClass
	gates         []gate.Gate
	clock         clock.Clock
	log           *slog.Logger
	registry      *prometheus.Registry

	bucketCount int
	bucketWidth time.Duration
	histHighest time.Duration
	histDigits  int

	resultCounts *metrics.ResultCounts
}

// NewBuilder starts a GuardRail builder for the given name and closed
// outcome/rejection sets.
func NewBuilder(name string, resultClass *outcome.ResultClass, rejectedClass *outcome.RejectionClass) *Builder {
	return &Builder{
		name:          name,
		resultClass:   resultClass,
		rejectedClass: rejectedClass,
		clock:         clock.Default,
		bucketCount:   10,
		bucketWidth:   time.Second,
		histHighest:   time.Minute,
		histDigits:    2,
	}
}

// AddBackPressure registers a gate, appended after any already registered.
func (b *Builder) AddBackPressure(g gate.Gate) *Builder {
	b.gates = append(b.gates, g)
	return b
}

// Clock overrides the clock used for acquire timestamps and breaker windows.
// Intended for deterministic tests.
func (b *Builder) Clock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

// Logger attaches a structured logger to the built rail.
func (b *Builder) Logger(l *slog.Logger) *Builder {
	b.log = l
	return b
}

// PrometheusRegistry enables Prometheus mirroring of this rail's results and
// rejections, registered against registry.
func (b *Builder) PrometheusRegistry(registry *prometheus.Registry) *Builder {
	b.registry = registry
	return b
}

// RollingWindow configures the result counter's bucket count and width. The
// product, bucketCount*bucketWidth, is the longest trailing period any gate
// reading these counters (e.g. a circuit breaker) can observe.
func (b *Builder) RollingWindow(bucketCount int, bucketWidth time.Duration) *Builder {
	b.bucketCount = bucketCount
	b.bucketWidth = bucketWidth
	return b
}

// LatencyHistogram configures the per-outcome latency histograms.
func (b *Builder) LatencyHistogram(highest time.Duration, significantDigits int) *Builder {
	b.histHighest = highest
	b.histDigits = significantDigits
	return b
}

// ResultCounts returns the rolling result counter this builder will give the
// built rail, constructing it on first call from the current window
// settings. Call this before constructing a gate (e.g. a circuit breaker)
// that needs to read the rail's own counters, then register that gate with
// AddBackPressure — this lets a gate observe the rail's counters without a
// forward-reference to the not-yet-built rail.
func (b *Builder) ResultCounts() *metrics.ResultCounts {
	if b.resultCounts == nil {
		b.resultCounts = metrics.NewResultCounts(b.resultClass.Len(), b.bucketCount, int64(b.bucketWidth))
	}
	return b.resultCounts
}

// Build finalizes the rail. It is an error to build with no registered
// back-pressure gates or an empty name.
func (b *Builder) Build() (*GuardRail, error) {
	if b.name == "" {
		return nil, fmt.Errorf("rail: name must not be empty")
	}
	if len(b.gates) == 0 {
		return nil, fmt.Errorf("rail: %q must have at least one back-pressure gate", b.name)
	}

	r := &GuardRail{
		name:           b.name,
		resultClass:    b.resultClass,
		rejectedClass:  b.rejectedClass,
		resultCounts:   b.ResultCounts(),
		rejectedCounts: metrics.NewRejectedCounts(b.rejectedClass.Len()),
		latency:        metrics.NewLatencyRecorder(b.resultClass.Len(), b.histHighest, b.histDigits),
		gates:          b.gates,
		clock:          b.clock,
		log:            b.log,
	}
	if b.registry != nil {
		r.sink = metrics.NewPrometheusSink(b.registry, b.name)
	}
	return r, nil
}
