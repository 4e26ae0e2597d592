package provider

import (
	"context"

	"codeberg.org/mutker/sysfeed/internal/sysinfo"
)

type cpuProvider struct {
	base
	snapshot *sysinfo.Snapshot
}

func newCPUProvider(b base, snapshot *sysinfo.Snapshot) *cpuProvider {
	return &cpuProvider{base: b, snapshot: snapshot.Retain()}
}

func (p *cpuProvider) Refresh(ctx context.Context) (Output, error) {
	var out CPUOutput

	err := p.snapshot.Use(func(v *sysinfo.View) error {
		if err := v.RefreshCPU(ctx); err != nil {
			return err
		}

		cpu := v.CPU()
		out = CPUOutput{
			Frequency:         cpu.Info.Frequency,
			Usage:             round2(cpu.Usage),
			LogicalCoreCount:  cpu.Info.LogicalCores,
			PhysicalCoreCount: cpu.Info.PhysicalCores,
			Vendor:            cpu.Info.Vendor,
		}

		return nil
	})
	if err != nil {
		return nil, refreshFailed(err)
	}

	return out, nil
}

func (p *cpuProvider) Close() error {
	p.snapshot.Release()
	return nil
}
