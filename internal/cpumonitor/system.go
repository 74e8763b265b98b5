package cpumonitor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	gopsutilcpu "github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// defaultClockTicks is the fallback when the platform doesn't expose
// its configured clock-ticks-per-second (spec.md open question 2).
const defaultClockTicks = 100

// SystemSampler reports system-wide CPU/memory usage and core count,
// preferring gopsutil/v3 and falling back to a manual /proc/stat reader
// on Linux if the library query fails.
type SystemSampler struct{}

// NewSystemSampler constructs a sampler. No platform probing happens here;
// probing occurs lazily on first fallback so the library path stays cheap.
func NewSystemSampler() *SystemSampler {
	return &SystemSampler{}
}

// Sample reads overall CPU percent, memory percent, and core count.
func (s *SystemSampler) Sample(ctx context.Context) (Sample, error) {
	cores := runtime.NumCPU()

	percents, err := gopsutilcpu.PercentWithContext(ctx, 0, false)
	var cpuPct float64
	if err != nil || len(percents) == 0 {
		cpuPct, err = s.procFallback()
		if err != nil {
			return Sample{}, fmt.Errorf("cpumonitor: system cpu sample: %w", err)
		}
	} else {
		cpuPct = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	memPct := 0.0
	if err == nil {
		memPct = vm.UsedPercent
	}

	return Sample{CPUPercent: clampPercent(cpuPct), MemPercent: clampPercent(memPct), CoreCount: cores}, nil
}

// procFallback parses /proc/stat's aggregate line directly, used only when
// gopsutil's own sampling fails (e.g. unreadable /proc/stat permissions or
// an unsupported platform quirk). Single-shot: returns instantaneous idle
// ratio rather than a delta, since it has no access to a previous sample.
func (s *SystemSampler) procFallback() (float64, error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return 0, fmt.Errorf("proc fallback unavailable: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return 0, fmt.Errorf("proc fallback: empty /proc/stat")
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0, fmt.Errorf("proc fallback: unexpected /proc/stat format")
	}

	var total, idle float64
	for i, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			continue
		}
		total += v
		if i == 3 || i == 4 { // idle, iowait
			idle += v
		}
	}
	if total == 0 {
		return 0, nil
	}
	return clampPercent(100 * (1 - idle/total)), nil
}
