package provider_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/sysfeed/internal/errors"
	"codeberg.org/mutker/sysfeed/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfig(t *testing.T) {
	tests := []struct {
		name     string
		raw      map[string]any
		expected provider.Config
	}{
		{
			name:     "cpu snake case",
			raw:      map[string]any{"type": "cpu", "refresh_interval": 1000},
			expected: provider.CPUConfig{Common: provider.Common{RefreshInterval: 1000}},
		},
		{
			name:     "memory camel case from JSON",
			raw:      map[string]any{"type": "memory", "refreshInterval": float64(5000)},
			expected: provider.MemoryConfig{Common: provider.Common{RefreshInterval: 5000}},
		},
		{
			name:     "kind alias and weak typing",
			raw:      map[string]any{"kind": "Disk", "refresh_interval": "60000"},
			expected: provider.DiskConfig{Common: provider.Common{RefreshInterval: 60000}},
		},
		{
			name: "weather with coordinates",
			raw: map[string]any{
				"type": "weather", "refresh_interval": 3600000,
				"latitude": 48.8566, "longitude": 2.3522,
			},
			expected: provider.WeatherConfig{
				Common:    provider.Common{RefreshInterval: 3600000},
				Latitude:  ptr(48.8566),
				Longitude: ptr(2.3522),
			},
		},
		{
			name: "gpu device index",
			raw:  map[string]any{"type": "gpu", "refresh_interval": 2000, "deviceIndex": 1},
			expected: provider.GPUConfig{
				Common:      provider.Common{RefreshInterval: 2000},
				DeviceIndex: 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := provider.DecodeConfig(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg)
		})
	}
}

func TestDecodeConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		code errors.ErrorCode
	}{
		{"nil map", nil, errors.ErrMissingConfig},
		{"missing type", map[string]any{"refresh_interval": 1000}, errors.ErrMissingConfig},
		{"unknown kind", map[string]any{"type": "audio", "refresh_interval": 1000}, errors.ErrUnknownProviderKind},
		{"missing interval", map[string]any{"type": "cpu"}, errors.ErrMissingConfig},
		{"zero interval", map[string]any{"type": "cpu", "refresh_interval": 0}, errors.ErrInvalidInterval},
		{"negative interval", map[string]any{"type": "ip", "refresh_interval": -5}, errors.ErrInvalidInterval},
		{"unknown key", map[string]any{"type": "cpu", "refresh_interval": 1000, "colour": "red"}, errors.ErrInvalidConfig},
		{"wrong type", map[string]any{"type": "cpu", "refresh_interval": map[string]any{"ms": 1}}, errors.ErrInvalidConfig},
		{"half coordinates", map[string]any{"type": "weather", "refresh_interval": 1000, "latitude": 10.0}, errors.ErrInvalidConfig},
		{"latitude out of range", map[string]any{"type": "weather", "refresh_interval": 1000, "latitude": 91.0, "longitude": 0.0}, errors.ErrInvalidConfig},
		{"negative device", map[string]any{"type": "gpu", "refresh_interval": 1000, "device_index": -1}, errors.ErrInvalidConfig},
		{"type and kind", map[string]any{"type": "cpu", "kind": "cpu", "refresh_interval": 1000}, errors.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := provider.DecodeConfig(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
			assert.True(t, errors.IsConfigError(err))
		})
	}
}

func TestConfigInterval(t *testing.T) {
	cfg := provider.CPUConfig{Common: provider.Common{RefreshInterval: 1500}}
	assert.Equal(t, 1500*time.Millisecond, cfg.Interval())
	assert.Equal(t, provider.KindCPU, cfg.Kind())
}

func TestKindTraits(t *testing.T) {
	for _, k := range []provider.Kind{provider.KindIP, provider.KindWeather} {
		assert.Equal(t, provider.Async, provider.RuntimeOf(k), k)
	}
	for _, k := range []provider.Kind{
		provider.KindCPU, provider.KindMemory, provider.KindDisk, provider.KindNetwork,
		provider.KindBattery, provider.KindHost, provider.KindGPU,
	} {
		assert.Equal(t, provider.Sync, provider.RuntimeOf(k), k)
	}

	assert.True(t, provider.AllowsIdenticalEmits(provider.KindCPU))
	assert.False(t, provider.AllowsIdenticalEmits(provider.KindWeather))
	assert.False(t, provider.AllowsIdenticalEmits(provider.KindDisk))
	assert.False(t, provider.Kind("audio").Valid())
	assert.Len(t, provider.Kinds, 9)
}

func ptr[T any](v T) *T {
	return &v
}
