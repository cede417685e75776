package breaker

import "time"

// Config holds the tunables of a CircuitBreaker's health evaluation and
// recovery timing. It is held behind an atomic.Pointer on the breaker so it
// can be hot-swapped without stopping traffic.
type Config struct {
	// TrailingPeriod is the rolling window read when evaluating health.
	TrailingPeriod time.Duration
	// FailureThreshold trips the breaker once failures in the trailing
	// window strictly exceed this count, independent of volume.
	FailureThreshold int64
	// FailurePercentageThreshold trips the breaker once the failure ratio
	// in the trailing window meets or exceeds this percentage (0-100), but
	// only once SampleSizeThreshold requests have been observed.
	FailurePercentageThreshold float64
	// SampleSizeThreshold is the minimum volume before the percentage
	// threshold is evaluated at all.
	SampleSizeThreshold int64
	// BackoffTime is how long the breaker stays open before admitting a
	// single half-open probe.
	BackoffTime time.Duration
	// HealthRefreshInterval bounds how often the rolling window is
	// actually re-read; snapshots are cached for this long.
	HealthRefreshInterval time.Duration
}

// DefaultConfig returns reasonable defaults. withDefaults fills them in for
// fields left at zero or below, except FailureThreshold and
// HealthRefreshInterval, where zero is meaningful (trip on the first failure;
// no snapshot caching) and only a negative value takes the default.
func DefaultConfig() Config {
	return Config{
		TrailingPeriod:             10 * time.Second,
		FailureThreshold:           5,
		FailurePercentageThreshold: 50,
		SampleSizeThreshold:        10,
		BackoffTime:                60 * time.Second,
		HealthRefreshInterval:      500 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TrailingPeriod <= 0 {
		c.TrailingPeriod = d.TrailingPeriod
	}
	if c.FailureThreshold < 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.FailurePercentageThreshold <= 0 {
		c.FailurePercentageThreshold = d.FailurePercentageThreshold
	}
	if c.SampleSizeThreshold <= 0 {
		c.SampleSizeThreshold = d.SampleSizeThreshold
	}
	if c.BackoffTime <= 0 {
		c.BackoffTime = d.BackoffTime
	}
	if c.HealthRefreshInterval < 0 {
		c.HealthRefreshInterval = d.HealthRefreshInterval
	}
	return c
}
