package cpumonitor

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessSampler samples one OS process, identified by PID, via gopsutil.
// Mirrors the PeerNode.Status() idiom of wrapping process.Process to
// produce a plain-struct snapshot rather than exposing the library type.
type ProcessSampler struct {
	pid int32
	p   *process.Process

	clockTicks int
	prevCPUMS  float64
	prevWall   time.Time
}

// NewProcessSampler attaches to an already-running process by PID.
func NewProcessSampler(pid int32) (*ProcessSampler, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("cpumonitor: attach to pid %d: %w", pid, err)
	}
	return &ProcessSampler{pid: pid, p: p}, nil
}

// Sample reads instantaneous CPU and memory usage for the attached process.
// gopsutil's CPUPercent already computes a delta-over-wall-clock internally
// between calls; the first call against a freshly attached process returns 0.
// Falls back to a manual /proc/[pid]/stat reader if gopsutil's own query
// fails (e.g. a restricted container without /proc/[pid]/stat access via
// the usual syscalls but with the file itself still readable).
func (s *ProcessSampler) Sample(ctx context.Context) (Sample, error) {
	cpuPct, err := s.p.PercentWithContext(ctx, 0)
	if err != nil {
		cpuPct, err = s.procFallback()
		if err != nil {
			return Sample{}, fmt.Errorf("cpumonitor: cpu percent pid %d: %w", s.pid, err)
		}
	}
	memPct, err := s.p.MemoryPercentWithContext(ctx)
	if err != nil {
		memPct = 0
	}
	return Sample{CPUPercent: clampPercent(cpuPct), MemPercent: clampPercent(float64(memPct))}, nil
}

// procFallback reads /proc/[pid]/stat fields 14 (utime) and 15 (stime) in
// clock ticks, converts to ms via the discovered (or assumed 100) clock
// rate, and derives a delta-over-wall-clock percentage against the previous
// sample. The first call has no previous sample and returns 0.
func (s *ProcessSampler) procFallback() (float64, error) {
	if s.clockTicks == 0 {
		ticks, ok := readClockTicksFromGetconf()
		if !ok {
			ticks = defaultClockTicks
		}
		s.clockTicks = ticks
	}

	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", s.pid))
	if err != nil {
		return 0, fmt.Errorf("proc fallback unavailable: %w", err)
	}
	fields := statFields(string(data))
	if len(fields) < 15 {
		return 0, fmt.Errorf("proc fallback: short stat line for pid %d", s.pid)
	}
	utime, _ := strconv.ParseFloat(fields[13], 64)
	stime, _ := strconv.ParseFloat(fields[14], 64)
	cpuMS := (utime + stime) * 1000 / float64(s.clockTicks)

	now := time.Now()
	if s.prevWall.IsZero() {
		s.prevCPUMS, s.prevWall = cpuMS, now
		return 0, nil
	}

	wallDeltaMS := float64(now.Sub(s.prevWall).Milliseconds())
	cpuDeltaMS := cpuMS - s.prevCPUMS
	s.prevCPUMS, s.prevWall = cpuMS, now
	if wallDeltaMS <= 0 {
		return 0, nil
	}
	return clampPercent(100 * cpuDeltaMS / wallDeltaMS), nil
}

// statFields splits a /proc/[pid]/stat line, tolerating the process-name
// field (comm, in parentheses) containing spaces by operating on whatever
// follows the closing paren.
func statFields(line string) []string {
	closeParen := strings.LastIndex(line, ")")
	if closeParen < 0 || closeParen+1 >= len(line) {
		return nil
	}
	// fields[0]=pid, fields[1]=comm are consumed by the "(pid) (comm)"
	// prefix; what remains after ")" starts at field 3 (state).
	rest := strings.Fields(line[closeParen+1:])
	return append([]string{"", ""}, rest...)
}

// Running reports whether the attached process still exists.
func (s *ProcessSampler) Running() bool {
	ok, err := s.p.IsRunning()
	return err == nil && ok
}

// PID returns the sampled process id.
func (s *ProcessSampler) PID() int32 { return s.pid }
