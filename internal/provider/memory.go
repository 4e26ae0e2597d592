package provider

import (
	"context"

	"codeberg.org/mutker/sysfeed/internal/sysinfo"
)

type memoryProvider struct {
	base
	snapshot *sysinfo.Snapshot
}

func newMemoryProvider(b base, snapshot *sysinfo.Snapshot) *memoryProvider {
	return &memoryProvider{base: b, snapshot: snapshot.Retain()}
}

func (p *memoryProvider) Refresh(ctx context.Context) (Output, error) {
	var out MemoryOutput

	err := p.snapshot.Use(func(v *sysinfo.View) error {
		if err := v.RefreshMemory(ctx); err != nil {
			return err
		}

		mem := v.Memory().Info
		out = MemoryOutput{
			Usage:       percent(mem.Used, mem.Total),
			FreeMemory:  mem.Free,
			UsedMemory:  mem.Used,
			TotalMemory: mem.Total,
			FreeSwap:    mem.SwapFree,
			UsedSwap:    mem.SwapUsed,
			TotalSwap:   mem.SwapTotal,
		}

		return nil
	})
	if err != nil {
		return nil, refreshFailed(err)
	}

	return out, nil
}

func (p *memoryProvider) Close() error {
	p.snapshot.Release()
	return nil
}
