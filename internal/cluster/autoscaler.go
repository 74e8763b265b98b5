package cluster

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// StatsSource reports the rolling CPU/memory statistics the autoscaler
// decides on. internal/cpumonitor implements this.
type StatsSource interface {
	AverageCPUPercent() float64
	AverageMemoryPercent() float64
}

// AutoscalerConfig controls the scaling control loop (spec.md §4.5).
type AutoscalerConfig struct {
	Interval     time.Duration
	CPUThreshold float64
	MemThreshold float64
	MinWorkers   int
	MaxWorkers   int
}

// DefaultAutoscalerConfig matches the spec's stated default interval.
func DefaultAutoscalerConfig() AutoscalerConfig {
	return AutoscalerConfig{
		Interval:     30 * time.Second,
		CPUThreshold: 75,
		MemThreshold: 80,
		MinWorkers:   1,
		MaxWorkers:   8,
	}
}

// Autoscaler runs the scale up/down control loop against a Supervisor,
// scheduled as a cron job rather than a bare ticker so the same job engine
// that would drive any other periodic maintenance task in this process
// drives scaling decisions too.
type Autoscaler struct {
	cfg        AutoscalerConfig
	supervisor *Supervisor
	stats      StatsSource

	cpuHighStreak int
	cpuLowStreak  int
	memHighStreak int
	memLowStreak  int

	cron    *cron.Cron
	entryID cron.EntryID
}

// NewAutoscaler builds an Autoscaler driving supervisor from stats.
func NewAutoscaler(cfg AutoscalerConfig, supervisor *Supervisor, stats StatsSource) *Autoscaler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultAutoscalerConfig().Interval
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultAutoscalerConfig().MaxWorkers
	}
	if cfg.MinWorkers <= 0 {
		cfg.MinWorkers = DefaultAutoscalerConfig().MinWorkers
	}
	return &Autoscaler{cfg: cfg, supervisor: supervisor, stats: stats, cron: cron.New()}
}

// Start schedules the control loop as an "@every <interval>" cron job and
// starts the underlying cron engine; it runs until Stop is called.
func (a *Autoscaler) Start(ctx context.Context) {
	entryID, err := a.cron.AddFunc("@every "+a.cfg.Interval.String(), func() {
		a.tick(ctx)
	})
	if err != nil {
		// "@every <duration>" only fails to parse for a malformed duration
		// string, which can't happen given a time.Duration built from a
		// valid interval; fall back to the default rather than never
		// scaling at all.
		entryID, _ = a.cron.AddFunc("@every "+DefaultAutoscalerConfig().Interval.String(), func() {
			a.tick(ctx)
		})
	}
	a.entryID = entryID
	a.cron.Start()

	go func() {
		<-ctx.Done()
		a.Stop()
	}()
}

// Stop halts the control loop and drains any in-flight tick.
func (a *Autoscaler) Stop() {
	a.cron.Remove(a.entryID)
	<-a.cron.Stop().Done()
}

// tick evaluates one control loop interval's scale decision. Kept as a
// separate method (not inlined into Start) so tests can drive it
// deterministically without waiting on the cron schedule.
func (a *Autoscaler) tick(ctx context.Context) {
	cpu := a.stats.AverageCPUPercent()
	mem := a.stats.AverageMemoryPercent()
	workers := a.supervisor.Count()

	a.updateStreaks(cpu, mem)

	if (a.cpuHighStreak >= 2 || a.memHighStreak >= 2) && workers < a.cfg.MaxWorkers {
		a.supervisor.SpawnOne(ctx)
		a.resetStreaks()
		return
	}

	if (a.cpuLowStreak >= 3 || a.memLowStreak >= 3) && workers > a.cfg.MinWorkers {
		a.supervisor.TerminateNewestIdle()
		a.resetStreaks()
	}
}

func (a *Autoscaler) updateStreaks(cpu, mem float64) {
	if cpu > a.cfg.CPUThreshold {
		a.cpuHighStreak++
	} else {
		a.cpuHighStreak = 0
	}
	if cpu < a.cfg.CPUThreshold/2 {
		a.cpuLowStreak++
	} else {
		a.cpuLowStreak = 0
	}
	if mem > a.cfg.MemThreshold {
		a.memHighStreak++
	} else {
		a.memHighStreak = 0
	}
	if mem < a.cfg.MemThreshold/2 {
		a.memLowStreak++
	} else {
		a.memLowStreak = 0
	}
}

func (a *Autoscaler) resetStreaks() {
	a.cpuHighStreak = 0
	a.cpuLowStreak = 0
	a.memHighStreak = 0
	a.memLowStreak = 0
}
