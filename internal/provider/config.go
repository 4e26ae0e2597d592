package provider

import (
	"strings"
	"time"

	"codeberg.org/mutker/sysfeed/internal/errors"
	"github.com/mitchellh/mapstructure"
)

// Config is the immutable configuration of one provider instance.
type Config interface {
	Kind() Kind
	Interval() time.Duration
	Validate() error
}

// Common holds the fields every provider config carries.
type Common struct {
	// RefreshInterval is the tick period in milliseconds.
	RefreshInterval int64 `mapstructure:"refresh_interval" cbor:"refresh_interval"`
}

func (c Common) Interval() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Millisecond
}

func (c Common) validate() error {
	if c.RefreshInterval <= 0 {
		return errors.New().WithData(errors.ErrInvalidInterval, c.RefreshInterval)
	}
	return nil
}

type CPUConfig struct {
	Common `mapstructure:",squash"`
}

type MemoryConfig struct {
	Common `mapstructure:",squash"`
}

type DiskConfig struct {
	Common `mapstructure:",squash"`
}

type NetworkConfig struct {
	Common `mapstructure:",squash"`
}

type BatteryConfig struct {
	Common `mapstructure:",squash"`
}

type HostConfig struct {
	Common `mapstructure:",squash"`
}

type IPConfig struct {
	Common `mapstructure:",squash"`
}

type WeatherConfig struct {
	Common    `mapstructure:",squash"`
	Latitude  *float64 `mapstructure:"latitude" cbor:"latitude,omitempty"`
	Longitude *float64 `mapstructure:"longitude" cbor:"longitude,omitempty"`
}

type GPUConfig struct {
	Common      `mapstructure:",squash"`
	DeviceIndex int `mapstructure:"device_index" cbor:"device_index"`
}

func (CPUConfig) Kind() Kind     { return KindCPU }
func (MemoryConfig) Kind() Kind  { return KindMemory }
func (DiskConfig) Kind() Kind    { return KindDisk }
func (NetworkConfig) Kind() Kind { return KindNetwork }
func (BatteryConfig) Kind() Kind { return KindBattery }
func (HostConfig) Kind() Kind    { return KindHost }
func (IPConfig) Kind() Kind      { return KindIP }
func (WeatherConfig) Kind() Kind { return KindWeather }
func (GPUConfig) Kind() Kind     { return KindGPU }

func (c CPUConfig) Validate() error     { return c.validate() }
func (c MemoryConfig) Validate() error  { return c.validate() }
func (c DiskConfig) Validate() error    { return c.validate() }
func (c NetworkConfig) Validate() error { return c.validate() }
func (c BatteryConfig) Validate() error { return c.validate() }
func (c HostConfig) Validate() error    { return c.validate() }
func (c IPConfig) Validate() error      { return c.validate() }

func (c WeatherConfig) Validate() error {
	errFactory := errors.New()
	if err := c.validate(); err != nil {
		return err
	}

	if (c.Latitude == nil) != (c.Longitude == nil) {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "latitude and longitude must be set together")
	}
	if c.Latitude != nil && (*c.Latitude < -90 || *c.Latitude > 90) {
		return errFactory.WithData(errors.ErrInvalidConfig, "latitude out of range")
	}
	if c.Longitude != nil && (*c.Longitude < -180 || *c.Longitude > 180) {
		return errFactory.WithData(errors.ErrInvalidConfig, "longitude out of range")
	}

	return nil
}

func (c GPUConfig) Validate() error {
	if err := c.validate(); err != nil {
		return err
	}
	if c.DeviceIndex < 0 {
		return errors.New().WithData(errors.ErrInvalidConfig, "device_index must not be negative")
	}
	return nil
}

func newConfig(k Kind) (Config, bool) {
	switch k {
	case KindCPU:
		return &CPUConfig{}, true
	case KindMemory:
		return &MemoryConfig{}, true
	case KindDisk:
		return &DiskConfig{}, true
	case KindNetwork:
		return &NetworkConfig{}, true
	case KindBattery:
		return &BatteryConfig{}, true
	case KindHost:
		return &HostConfig{}, true
	case KindIP:
		return &IPConfig{}, true
	case KindWeather:
		return &WeatherConfig{}, true
	case KindGPU:
		return &GPUConfig{}, true
	default:
		return nil, false
	}
}

// DecodeConfig builds a Config from structured key/value data. The "type"
// key (or its alias "kind") selects the variant. Keys match field names
// case-insensitively with or without underscores, so both refresh_interval
// and refreshInterval are accepted.
func DecodeConfig(raw map[string]any) (Config, error) {
	errFactory := errors.New()

	if raw == nil {
		return nil, errFactory.WithMessage(errors.ErrMissingConfig, "provider configuration is empty")
	}

	fields := make(map[string]any, len(raw))
	var kindValue any
	for key, value := range raw {
		switch key {
		case "type", "kind":
			if kindValue != nil {
				return nil, errFactory.WithMessage(errors.ErrInvalidConfig, "both type and kind are set")
			}
			kindValue = value
		default:
			fields[key] = value
		}
	}

	name, ok := kindValue.(string)
	if !ok || name == "" {
		return nil, errFactory.WithMessage(errors.ErrMissingConfig, "provider type is missing")
	}

	target, ok := newConfig(Kind(strings.ToLower(name)))
	if !ok {
		return nil, errFactory.WithData(errors.ErrUnknownProviderKind, name)
	}

	if !hasKey(fields, "refresh_interval") {
		return nil, errFactory.WithMessage(errors.ErrMissingConfig, "refresh_interval is required")
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		MatchName:        matchName,
	})
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInternal, err)
	}
	if err := decoder.Decode(fields); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	cfg := deref(target)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func hasKey(fields map[string]any, name string) bool {
	for key := range fields {
		if matchName(key, name) {
			return true
		}
	}
	return false
}

func matchName(mapKey, fieldName string) bool {
	return normalizeKey(mapKey) == normalizeKey(fieldName)
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", ""))
}

// deref returns the value form so callers can never mutate a spawned
// provider's config through a shared pointer.
func deref(c Config) Config {
	switch v := c.(type) {
	case *CPUConfig:
		return *v
	case *MemoryConfig:
		return *v
	case *DiskConfig:
		return *v
	case *NetworkConfig:
		return *v
	case *BatteryConfig:
		return *v
	case *HostConfig:
		return *v
	case *IPConfig:
		return *v
	case *WeatherConfig:
		return *v
	case *GPUConfig:
		return *v
	default:
		return c
	}
}
