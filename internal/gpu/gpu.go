package gpu

import (
	"sync"

	"codeberg.org/mutker/sysfeed/internal/errors"
	"codeberg.org/mutker/sysfeed/internal/logger"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const milliWattsToWatts = 1000

type gpuDevice struct {
	lib      nvmlController
	device   nvmlDevice
	index    int
	name     string
	fanCount int
	closed   bool
	mu       sync.Mutex
}

// Open initializes NVML and opens the device at index. Open is an Opener.
func Open(index int) (Device, error) {
	return open(library, index)
}

func open(lib nvmlController, index int) (*gpuDevice, error) {
	errFactory := errors.New()

	if err := lib.Initialize(); err != nil {
		return nil, err
	}

	device, err := lib.GetDevice(index)
	if err != nil {
		_ = lib.Shutdown()
		return nil, err
	}

	g := &gpuDevice{lib: lib, device: device, index: index}

	name, ret := device.GetName()
	if !IsNVMLSuccess(ret) {
		_ = lib.Shutdown()
		return nil, errFactory.Wrap(ErrDeviceInfoFailed, newNVMLError(ret))
	}
	g.name = name

	if g.fanCount, err = fanCount(device); err != nil {
		_ = lib.Shutdown()
		return nil, err
	}

	logger.Info().Int("index", index).Str("name", name).Int("fans", g.fanCount).Msg("Opened GPU")

	return g, nil
}

// Read samples temperature, fans, power, utilization and memory.
func (g *gpuDevice) Read() (Reading, error) {
	errFactory := errors.New()
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return Reading{}, errFactory.WithData(ErrDeviceClosed, g.index)
	}

	r := Reading{Name: g.name}

	temp, ret := g.device.GetTemperature(nvml.TEMPERATURE_GPU)
	if !IsNVMLSuccess(ret) {
		return Reading{}, errFactory.Wrap(ErrTemperatureReadFailed, newNVMLError(ret))
	}
	r.Temperature = Temperature(temp)

	var err error
	if r.FanSpeeds, err = fanSpeeds(g.device, g.fanCount); err != nil {
		return Reading{}, err
	}

	if r.PowerUsage, err = powerUsage(g.device); err != nil {
		return Reading{}, err
	}
	if r.PowerLimit, err = powerLimit(g.device); err != nil {
		return Reading{}, err
	}

	util, ret := g.device.GetUtilizationRates()
	if !IsNVMLSuccess(ret) {
		return Reading{}, errFactory.Wrap(ErrUtilizationFailed, newNVMLError(ret))
	}
	r.Utilization = int(util.Gpu)

	mem, ret := g.device.GetMemoryInfo()
	if !IsNVMLSuccess(ret) {
		return Reading{}, errFactory.Wrap(ErrMemoryInfoFailed, newNVMLError(ret))
	}
	r.MemoryUsed = mem.Used
	r.MemoryTotal = mem.Total

	return r, nil
}

// Close releases the device and, for the last open device, NVML itself.
func (g *gpuDevice) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true

	return g.lib.Shutdown()
}
