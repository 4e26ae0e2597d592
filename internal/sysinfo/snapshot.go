package sysinfo

import (
	"context"
	"sync"
	"time"
)

// CPU is the CPU field group of a snapshot.
type CPU struct {
	Info      CPUInfo
	Usage     float64
	UpdatedAt time.Time
}

// Memory is the memory field group of a snapshot.
type Memory struct {
	Info      MemoryInfo
	UpdatedAt time.Time
}

// Snapshot is a shared, mutually exclusive system probe. CPU and Memory
// providers hold it jointly and refresh only their own field group.
type Snapshot struct {
	mu   sync.Mutex
	refs int
	view View
}

// View is the state reachable while a Snapshot is held. It must not be
// retained after the Use callback returns.
type View struct {
	probe    Probe
	now      func() time.Time
	cpu      CPU
	memory   Memory
	baseline *CPUTimes
	cpuInfo  *CPUInfo
}

// New creates a snapshot over probe with no holders.
func New(probe Probe) *Snapshot {
	return &Snapshot{
		view: View{
			probe: probe,
			now:   time.Now,
		},
	}
}

// Retain registers a holder and returns the snapshot.
func (s *Snapshot) Retain() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refs++

	return s
}

// Release drops a holder. When the last holder releases, the CPU usage
// baseline is discarded so a later holder does not measure across the gap.
func (s *Snapshot) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refs == 0 {
		return
	}
	s.refs--
	if s.refs == 0 {
		s.view.baseline = nil
	}
}

// Holders returns the number of current holders.
func (s *Snapshot) Holders() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.refs
}

// Use runs fn with exclusive access to the snapshot.
func (s *Snapshot) Use(fn func(*View) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(&s.view)
}

// RefreshCPU re-reads the CPU field group. Usage is the busy share of CPU
// time since the previous RefreshCPU, or since boot on the first call.
// Vendor and core counts are read once; frequency is read every time.
func (v *View) RefreshCPU(ctx context.Context) error {
	if v.cpuInfo == nil {
		info, err := v.probe.CPUInfo(ctx)
		if err != nil {
			return err
		}
		v.cpuInfo = &info
	}

	frequency, err := v.probe.CPUFrequency(ctx)
	if err != nil {
		return err
	}
	info := *v.cpuInfo
	info.Frequency = frequency

	times, err := v.probe.CPUTimes(ctx)
	if err != nil {
		return err
	}

	busy, total := times.Busy, times.Total
	if v.baseline != nil {
		busy -= v.baseline.Busy
		total -= v.baseline.Total
	}

	usage := 0.0
	if total > 0 {
		usage = busy / total * 100
	}
	v.baseline = &times

	v.cpu = CPU{
		Info:      info,
		Usage:     clampPercent(usage),
		UpdatedAt: v.now(),
	}

	return nil
}

// RefreshMemory re-reads the memory field group.
func (v *View) RefreshMemory(ctx context.Context) error {
	info, err := v.probe.Memory(ctx)
	if err != nil {
		return err
	}

	v.memory = Memory{
		Info:      info,
		UpdatedAt: v.now(),
	}

	return nil
}

// CPU returns the CPU field group as of the last RefreshCPU.
func (v *View) CPU() CPU {
	return v.cpu
}

// Memory returns the memory field group as of the last RefreshMemory.
func (v *View) Memory() Memory {
	return v.memory
}

func clampPercent(value float64) float64 {
	switch {
	case value < 0:
		return 0
	case value > 100:
		return 100
	default:
		return value
	}
}
