package sysinfo

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// CPUTimes is an aggregate of the CPU time counters since boot, in seconds.
type CPUTimes struct {
	Busy  float64
	Total float64
}

// CPUInfo describes the processor package. Frequency is the current
// average clock in MHz; the other fields do not change while running.
type CPUInfo struct {
	Frequency     float64
	Vendor        string
	LogicalCores  int
	PhysicalCores int
}

// MemoryInfo holds RAM and swap counters in bytes.
type MemoryInfo struct {
	Total     uint64
	Free      uint64
	Used      uint64
	SwapTotal uint64
	SwapFree  uint64
	SwapUsed  uint64
}

// Probe reads raw OS counters. Implementations need not be safe for
// concurrent use; Snapshot serializes every call.
type Probe interface {
	CPUTimes(ctx context.Context) (CPUTimes, error)
	CPUInfo(ctx context.Context) (CPUInfo, error)
	CPUFrequency(ctx context.Context) (float64, error)
	Memory(ctx context.Context) (MemoryInfo, error)
}

type gopsutilProbe struct{}

// NewProbe returns the default Probe backed by gopsutil.
func NewProbe() Probe {
	return gopsutilProbe{}
}

func (gopsutilProbe) CPUTimes(ctx context.Context) (CPUTimes, error) {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return CPUTimes{}, err
	}
	if len(times) == 0 {
		return CPUTimes{}, errEmptyCPUTimes
	}

	t := times[0]
	total := t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal
	idle := t.Idle + t.Iowait

	return CPUTimes{Busy: total - idle, Total: total}, nil
}

func (gopsutilProbe) CPUInfo(ctx context.Context) (CPUInfo, error) {
	info := CPUInfo{}

	stats, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return info, err
	}
	if len(stats) > 0 {
		info.Frequency = stats[0].Mhz
		info.Vendor = strings.TrimSpace(stats[0].VendorID)
	}

	if info.LogicalCores, err = cpu.CountsWithContext(ctx, true); err != nil {
		return info, err
	}
	if info.PhysicalCores, err = cpu.CountsWithContext(ctx, false); err != nil {
		return info, err
	}

	return info, nil
}

// cpufreqGlob matches the per-core current frequency files, in kHz.
var cpufreqGlob = "/sys/devices/system/cpu/cpu[0-9]*/cpufreq/scaling_cur_freq"

// CPUFrequency averages the current per-core clocks. gopsutil reports the
// maximum frequency where cpufreq exists, so the scaling files are read
// first and gopsutil is the fallback.
func (gopsutilProbe) CPUFrequency(ctx context.Context) (float64, error) {
	if mhz, ok := scalingFrequency(cpufreqGlob); ok {
		return mhz, nil
	}

	stats, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return 0, err
	}
	if len(stats) == 0 {
		return 0, nil
	}

	return stats[0].Mhz, nil
}

func scalingFrequency(pattern string) (float64, bool) {
	paths, err := filepath.Glob(pattern)
	if err != nil || len(paths) == 0 {
		return 0, false
	}

	var sum float64
	var n int
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		khz, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
		if err != nil {
			continue
		}
		sum += khz / 1000
		n++
	}
	if n == 0 {
		return 0, false
	}

	return sum / float64(n), true
}

func (gopsutilProbe) Memory(ctx context.Context) (MemoryInfo, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryInfo{}, err
	}

	swap, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return MemoryInfo{}, err
	}

	return MemoryInfo{
		Total:     vm.Total,
		Free:      vm.Available,
		Used:      vm.Used,
		SwapTotal: swap.Total,
		SwapFree:  swap.Free,
		SwapUsed:  swap.Used,
	}, nil
}
