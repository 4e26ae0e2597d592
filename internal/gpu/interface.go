package gpu

import "github.com/NVIDIA/go-nvml/pkg/nvml"

// Device is a read-only handle to one GPU.
type Device interface {
	Read() (Reading, error)
	Close() error
}

// Opener opens the GPU at a given index.
type Opener func(index int) (Device, error)

// Reading is one sample of device state.
type Reading struct {
	Name        string
	Temperature Temperature
	FanSpeeds   []FanSpeed
	PowerUsage  Watts
	PowerLimit  Watts
	Utilization int
	MemoryUsed  uint64
	MemoryTotal uint64
}

// Domain types for type safety and validation
type (
	Temperature int
	FanSpeed    int
	Watts       float64
)

// nvmlDevice is the subset of nvml.Device the probe reads from.
type nvmlDevice interface {
	GetName() (string, nvml.Return)
	GetTemperature(nvml.TemperatureSensors) (uint32, nvml.Return)
	GetNumFans() (int, nvml.Return)
	GetFanSpeed_v2(int) (uint32, nvml.Return)
	GetPowerUsage() (uint32, nvml.Return)
	GetPowerManagementLimit() (uint32, nvml.Return)
	GetUtilizationRates() (nvml.Utilization, nvml.Return)
	GetMemoryInfo() (nvml.Memory, nvml.Return)
}

// nvmlController abstracts NVML library operations for testing
type nvmlController interface {
	Initialize() error
	Shutdown() error
	GetDevice(index int) (nvmlDevice, error)
}
