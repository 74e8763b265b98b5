package cpumonitor

import (
	"context"
	"sync"
	"time"

	"github.com/xypriss/xypriss/infrastructure/logging"
)

// Thresholds gate alert severity against the smoothed aggregate.
type Thresholds struct {
	Warning  float64
	Critical float64
}

// DefaultThresholds matches the spec's 75%/90% defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{Warning: 75, Critical: 90}
}

// Config controls a Monitor's sampling cadence, history depth, and smoothing.
type Config struct {
	Interval        time.Duration
	HistorySize     int
	SmoothingFactor float64
	Thresholds      Thresholds
}

// DefaultConfig returns the spec's defaults: 0.3 smoothing factor, 100-sample
// ring buffer.
func DefaultConfig() Config {
	return Config{
		Interval:        5 * time.Second,
		HistorySize:     100,
		SmoothingFactor: 0.3,
		Thresholds:      DefaultThresholds(),
	}
}

// workerSampler pairs a worker's identity with its process sampler so
// Monitor can sum per-worker usage into the cluster aggregate.
type workerSampler struct {
	id      string
	sampler *ProcessSampler
}

// Monitor owns a system sampler plus a set of per-worker process samplers,
// keeps a smoothed and ring-buffered history of the cluster aggregate, and
// implements cluster.StatsSource so the Autoscaler can consume it directly.
type Monitor struct {
	cfg    Config
	log    *logging.Logger
	system *SystemSampler

	mu           sync.Mutex
	workers      map[string]*workerSampler
	history      *ringBuffer
	smoothedAgg  float64
	smoothedInit bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// New builds a Monitor. log may be nil, in which case a default logger is
// used (cold-boot fallback, matching the teacher's own pattern of falling
// back to a bare logger before the application logger exists).
func New(cfg Config, log *logging.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logging.New("cpumonitor", "info", "text")
	}
	return &Monitor{
		cfg:     cfg,
		log:     log,
		system:  NewSystemSampler(),
		workers: make(map[string]*workerSampler),
		history: newRingBuffer(cfg.HistorySize),
		stop:    make(chan struct{}),
	}
}

// Watch attaches a worker's PID for per-worker sampling. Replaces any
// existing sampler registered under the same id.
func (m *Monitor) Watch(id string, pid int32) error {
	sampler, err := NewProcessSampler(pid)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.workers[id] = &workerSampler{id: id, sampler: sampler}
	m.mu.Unlock()
	return nil
}

// Unwatch stops tracking a worker, e.g. after it's respawned under a new PID.
func (m *Monitor) Unwatch(id string) {
	m.mu.Lock()
	delete(m.workers, id)
	m.mu.Unlock()
}

// Start launches the periodic sampling loop.
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case <-ticker.C:
				m.sampleOnce(ctx)
			}
		}
	}()
}

// Stop halts the sampling loop and waits for it to exit.
func (m *Monitor) Stop() {
	close(m.stop)
	m.wg.Wait()
}

func (m *Monitor) sampleOnce(ctx context.Context) {
	sysSample, err := m.system.Sample(ctx)
	if err != nil {
		m.log.Warn(ctx, "cpumonitor: system sample failed", map[string]interface{}{"error": err.Error()})
	}

	m.mu.Lock()
	var workerCPUSum, workerMemSum float64
	for id, w := range m.workers {
		if !w.sampler.Running() {
			continue
		}
		ws, err := w.sampler.Sample(ctx)
		if err != nil {
			m.log.Warn(ctx, "cpumonitor: worker sample failed", map[string]interface{}{"worker": id, "error": err.Error()})
			continue
		}
		workerCPUSum += ws.CPUPercent
		workerMemSum += ws.MemPercent
	}

	agg := aggregate(sysSample.CPUPercent, clampPercent(workerCPUSum))
	if !m.smoothedInit {
		m.smoothedAgg = agg
		m.smoothedInit = true
	} else {
		m.smoothedAgg = exponentialSmooth(m.smoothedAgg, agg, m.cfg.SmoothingFactor)
	}

	entry := Sample{
		Timestamp:  time.Now(),
		CPUPercent: m.smoothedAgg,
		MemPercent: clampPercent(0.4*sysSample.MemPercent + 0.6*workerMemSum),
		CoreCount:  sysSample.CoreCount,
	}
	m.history.push(entry)
	smoothed := m.smoothedAgg
	thresholds := m.cfg.Thresholds
	m.mu.Unlock()

	m.raiseAlert(ctx, smoothed, thresholds)
}

func (m *Monitor) raiseAlert(ctx context.Context, smoothed float64, t Thresholds) {
	fields := map[string]interface{}{"smoothed_cpu_percent": smoothed}
	switch {
	case smoothed >= t.Critical:
		m.log.Error(ctx, "cpumonitor: critical CPU threshold exceeded", nil, fields)
	case smoothed >= t.Warning:
		m.log.Warn(ctx, "cpumonitor: warning CPU threshold exceeded", fields)
	}
}

// History returns the ring-buffered aggregate samples, oldest first.
func (m *Monitor) History() []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.snapshot()
}

// AverageCPUPercent implements cluster.StatsSource: the current smoothed
// aggregate is itself already an exponential average, so it's returned as-is
// rather than re-averaging the ring buffer.
func (m *Monitor) AverageCPUPercent() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.smoothedAgg
}

// AverageMemoryPercent implements cluster.StatsSource, averaging memory
// percent across the retained history (memory isn't separately smoothed).
func (m *Monitor) AverageMemoryPercent() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	samples := m.history.snapshot()
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s.MemPercent
	}
	return sum / float64(len(samples))
}
