package provider

import (
	"context"

	"codeberg.org/mutker/sysfeed/internal/gpu"
)

type gpuProvider struct {
	base
	device gpu.Device
}

func newGPUProvider(b base, device gpu.Device) *gpuProvider {
	return &gpuProvider{base: b, device: device}
}

func (p *gpuProvider) Refresh(context.Context) (Output, error) {
	r, err := p.device.Read()
	if err != nil {
		return nil, refreshFailed(err)
	}

	fans := make([]int, len(r.FanSpeeds))
	for i, speed := range r.FanSpeeds {
		fans[i] = int(speed)
	}

	return GPUOutput{
		Name:        r.Name,
		Temperature: int(r.Temperature),
		FanSpeeds:   fans,
		PowerUsage:  round2(float64(r.PowerUsage)),
		PowerLimit:  round2(float64(r.PowerLimit)),
		Utilization: r.Utilization,
		MemoryUsed:  r.MemoryUsed,
		MemoryTotal: r.MemoryTotal,
	}, nil
}

func (p *gpuProvider) Close() error {
	return p.device.Close()
}
