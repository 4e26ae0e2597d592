package provider

import (
	"context"
	"net/http"
	"time"

	"codeberg.org/mutker/sysfeed/internal/errors"
	"codeberg.org/mutker/sysfeed/internal/gpu"
	"codeberg.org/mutker/sysfeed/internal/sysinfo"
)

// Provider produces one kind of output on demand. Refresh is only ever
// called from the provider's own loop, so implementations may keep state
// between calls without locking.
type Provider interface {
	Kind() Kind
	RuntimeType() RuntimeType
	Interval() time.Duration
	AllowIdenticalEmits() bool
	Refresh(ctx context.Context) (Output, error)
	Close() error
}

// Deps are the collaborators shared by every provider a Factory builds.
type Deps struct {
	Snapshot        *sysinfo.Snapshot
	HTTPClient      *http.Client
	OpenGPU         gpu.Opener
	IPEndpoint      string
	WeatherEndpoint string
	PowerSupplyPath string
	ProcNetRoute    string
	Now             func() time.Time
}

const (
	defaultIPEndpoint      = "https://ipinfo.io/json"
	defaultWeatherEndpoint = "https://api.open-meteo.com/v1/forecast"
	defaultPowerSupplyPath = "/sys/class/power_supply"
	defaultProcNetRoute    = "/proc/net/route"
)

// Factory builds providers from validated configs.
type Factory struct {
	deps Deps
}

// NewFactory fills unset dependencies with their defaults.
func NewFactory(deps Deps) *Factory {
	if deps.Snapshot == nil {
		deps.Snapshot = sysinfo.New(sysinfo.NewProbe())
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{}
	}
	if deps.OpenGPU == nil {
		deps.OpenGPU = gpu.Open
	}
	if deps.IPEndpoint == "" {
		deps.IPEndpoint = defaultIPEndpoint
	}
	if deps.WeatherEndpoint == "" {
		deps.WeatherEndpoint = defaultWeatherEndpoint
	}
	if deps.PowerSupplyPath == "" {
		deps.PowerSupplyPath = defaultPowerSupplyPath
	}
	if deps.ProcNetRoute == "" {
		deps.ProcNetRoute = defaultProcNetRoute
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Factory{deps: deps}
}

// New constructs the provider for cfg. A config that fails validation is a
// configuration error; a provider whose underlying handle cannot be opened
// is a spawn error.
func (f *Factory) New(cfg Config) (Provider, error) {
	errFactory := errors.New()

	if cfg == nil {
		return nil, errFactory.WithMessage(errors.ErrMissingConfig, "provider configuration is empty")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := base{kind: cfg.Kind(), interval: cfg.Interval()}

	switch c := deref(cfg).(type) {
	case CPUConfig:
		return newCPUProvider(b, f.deps.Snapshot), nil
	case MemoryConfig:
		return newMemoryProvider(b, f.deps.Snapshot), nil
	case DiskConfig:
		return newDiskProvider(b), nil
	case NetworkConfig:
		return newNetworkProvider(b, f.deps.ProcNetRoute, f.deps.Now), nil
	case BatteryConfig:
		return newBatteryProvider(b, f.deps.PowerSupplyPath), nil
	case HostConfig:
		return newHostProvider(b), nil
	case IPConfig:
		return newIPProvider(b, f.deps.HTTPClient, f.deps.IPEndpoint), nil
	case WeatherConfig:
		ip := newIPProvider(b, f.deps.HTTPClient, f.deps.IPEndpoint)
		return newWeatherProvider(b, c, f.deps.HTTPClient, f.deps.WeatherEndpoint, ip), nil
	case GPUConfig:
		device, err := f.deps.OpenGPU(c.DeviceIndex)
		if err != nil {
			return nil, errFactory.Wrap(errors.ErrSpawnFailed, err)
		}
		return newGPUProvider(b, device), nil
	default:
		return nil, errFactory.WithData(errors.ErrUnknownProviderKind, cfg.Kind())
	}
}

type base struct {
	kind     Kind
	interval time.Duration
}

func (b base) Kind() Kind                { return b.kind }
func (b base) RuntimeType() RuntimeType  { return RuntimeOf(b.kind) }
func (b base) Interval() time.Duration   { return b.interval }
func (b base) AllowIdenticalEmits() bool { return AllowsIdenticalEmits(b.kind) }
func (base) Close() error                { return nil }

func refreshFailed(err error) error {
	return errors.New().Wrap(errors.ErrRefreshFailed, err)
}

func refreshFailedMsg(msg string) error {
	return errors.New().WithMessage(errors.ErrRefreshFailed, msg)
}
