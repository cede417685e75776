// Package reporter periodically logs a rail's health as a structured
// snapshot: result counts, rejection counts, latency percentiles, and the
// state of any circuit breaker gate it carries. Cadence is configured via a
// robfig/cron/v3 schedule rather than a bespoke interval field.
package reporter

import (
	"log/slog"
	"time"

	"github.com/chalkan3-sloth/railguard/internal/breaker"
	"github.com/chalkan3-sloth/railguard/internal/clock"
	"github.com/chalkan3-sloth/railguard/internal/rail"
	"github.com/robfig/cron/v3"
)

// LatencyStats is the per-outcome percentile read surfaced in a Snapshot.
type LatencyStats struct {
	P50 time.Duration `json:"p50"`
	P99 time.Duration `json:"p99"`
	Max time.Duration `json:"max"`
}

// Snapshot is one point-in-time read of a rail's rolling health, shaped for
// structured logging or JSON serialization.
type Snapshot struct {
	Rail         string                  `json:"rail"`
	At           time.Time               `json:"at"`
	Results      map[string]int64        `json:"results"`
	Rejections   map[string]int64        `json:"rejections,omitempty"`
	Latency      map[string]LatencyStats `json:"latency,omitempty"`
	BreakerState string                  `json:"breaker_state,omitempty"`
}

// Take assembles a point-in-time health read of r. window bounds how far
// back the result counts look (0 disables windowing and reports lifetime
// totals instead).
func Take(r *rail.GuardRail, c clock.Clock, window time.Duration) Snapshot {
	if c == nil {
		c = clock.Default
	}
	now := c.NowNanos()

	results := make(map[string]int64)
	for _, o := range r.ResultClass().All() {
		if window > 0 {
			results[o.Name] = r.ResultCounts().TrailingSum(o.Index, now, int64(window))
		} else {
			results[o.Name] = r.ResultCounts().Total(o.Index)
		}
	}

	var rejections map[string]int64
	if rc := r.RejectedClass(); rc != nil && r.RejectedCounts() != nil {
		rejections = make(map[string]int64, rc.Len())
		for _, reason := range rc.All() {
			rejections[reason.Name] = r.RejectedCounts().Total(reason.Index)
		}
	}

	snap := Snapshot{
		Rail:       r.Name(),
		At:         time.UnixMilli(c.NowMillis()),
		Results:    results,
		Rejections: rejections,
	}

	if lat := r.Latency(); lat != nil {
		snap.Latency = make(map[string]LatencyStats, len(r.ResultClass().All()))
		for _, o := range r.ResultClass().All() {
			h := lat.For(o.Index)
			if h.Count() == 0 {
				continue
			}
			snap.Latency[o.Name] = LatencyStats{
				P50: time.Duration(h.Percentile(50)),
				P99: time.Duration(h.Percentile(99)),
				Max: time.Duration(h.Max()),
			}
		}
	}

	for _, g := range r.Gates() {
		if cb, ok := g.(*breaker.CircuitBreaker); ok {
			snap.BreakerState = cb.State().String()
			break
		}
	}

	return snap
}

// Log writes a Snapshot to log as a single structured record.
func Log(log *slog.Logger, snap Snapshot) {
	if log == nil {
		log = slog.Default()
	}
	args := []any{
		"rail", snap.Rail,
		"results", snap.Results,
	}
	if snap.Rejections != nil {
		args = append(args, "rejections", snap.Rejections)
	}
	if snap.BreakerState != "" {
		args = append(args, "breaker_state", snap.BreakerState)
	}
	if len(snap.Latency) > 0 {
		args = append(args, "latency", snap.Latency)
	}
	log.Info("rail snapshot", args...)
}

// Reporter runs Take+Log against one or more rails on a cron schedule.
type Reporter struct {
	cron   *cron.Cron
	rails  []*rail.GuardRail
	clock  clock.Clock
	window time.Duration
	log    *slog.Logger
}

// Options configures a Reporter.
type Options struct {
	// Schedule is a standard five-field cron expression, e.g. "*/30 * * * *"
	// for every 30 minutes, or a descriptor like "@every 30s".
	Schedule string
	Window   time.Duration
	Clock    clock.Clock
	Logger   *slog.Logger
}

// New builds a Reporter over rails, scheduled per opts. Call Start to begin
// emitting snapshots and Stop to end them; New itself performs no I/O.
func New(opts Options, rails ...*rail.GuardRail) (*Reporter, error) {
	c := opts.Clock
	if c == nil {
		c = clock.Default
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	engine := cron.New(cron.WithParser(cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)))
	r := &Reporter{cron: engine, rails: rails, clock: c, window: opts.Window, log: log}

	schedule := opts.Schedule
	if schedule == "" {
		schedule = "@every 1m"
	}
	if _, err := engine.AddFunc(schedule, r.emitAll); err != nil {
		return nil, err
	}
	return r, nil
}

// Start begins the cron schedule in the background. It never blocks.
func (r *Reporter) Start() { r.cron.Start() }

// Stop halts the schedule and waits for any in-flight emission to finish.
func (r *Reporter) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// Snapshot reports the current health of every registered rail without
// waiting for the schedule to fire, e.g. for an on-demand admin endpoint.
func (r *Reporter) Snapshot() []Snapshot {
	snaps := make([]Snapshot, 0, len(r.rails))
	for _, rl := range r.rails {
		snaps = append(snaps, Take(rl, r.clock, r.window))
	}
	return snaps
}

func (r *Reporter) emitAll() {
	for _, rl := range r.rails {
		Log(r.log, Take(rl, r.clock, r.window))
	}
}
