// Package telemetry exposes the runtime's ambient process metrics and the
// HTTP surface a rail-hosting process serves them over: /metrics for
// Prometheus scraping, /health and /info for basic liveness checks, and a
// websocket feed of circuit breaker transitions for a live dashboard. Rail
// and breaker metrics themselves live in internal/metrics; this package is
// strictly the process-wide ambient layer (goroutine count, heap
// allocation, uptime).
package telemetry

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RuntimeMetrics tracks process-wide stats independent of any single rail.
type RuntimeMetrics struct {
	goroutines prometheus.Gauge
	memAlloc   prometheus.Gauge
	uptime     prometheus.Gauge
	info       *prometheus.GaugeVec

	startTime time.Time
}

// NewRuntimeMetrics creates and registers the runtime metrics with registry.
func NewRuntimeMetrics(registry *prometheus.Registry) *RuntimeMetrics {
	m := &RuntimeMetrics{
		startTime: time.Now(),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "railguard_goroutines",
			Help: "Number of goroutines currently running.",
		}),
		memAlloc: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "railguard_memory_allocated_bytes",
			Help: "Heap memory allocated, in bytes.",
		}),
		uptime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "railguard_process_uptime_seconds",
			Help: "Seconds since the process started.",
		}),
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "railguard_build_info",
			Help: "Build version and platform information.",
		}, []string{"version", "os", "arch"}),
	}
	registry.MustRegister(m.goroutines, m.memAlloc, m.uptime, m.info)
	return m
}

// SetBuildInfo records the version/platform info series, set once at
// startup.
func (m *RuntimeMetrics) SetBuildInfo(version, os, arch string) {
	m.info.WithLabelValues(version, os, arch).Set(1)
}

// Refresh updates the goroutine/memory/uptime gauges from the current
// runtime state.
func (m *RuntimeMetrics) Refresh() {
	m.goroutines.Set(float64(runtime.NumGoroutine()))

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	m.memAlloc.Set(float64(mem.Alloc))

	m.uptime.Set(time.Since(m.startTime).Seconds())
}
