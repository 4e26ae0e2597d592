package manager

import (
	"time"

	"codeberg.org/mutker/sysfeed/internal/clock"
	"codeberg.org/mutker/sysfeed/internal/metrics"
	"codeberg.org/mutker/sysfeed/internal/provider"
	"codeberg.org/mutker/sysfeed/internal/scheduler"
)

// Option configures a Manager.
type Option func(*Manager)

func WithDispatcher(d Dispatcher) Option {
	return func(m *Manager) { m.dispatcher = d }
}

func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

func WithFactory(f ProviderFactory) Option {
	return func(m *Manager) { m.factory = f }
}

func WithMetrics(c metrics.MetricsCollector) Option {
	return func(m *Manager) { m.metrics = c }
}

// WithRefreshTimeout bounds each refresh of Async providers.
func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) { m.refreshTimeout = d }
}

func defaults(m *Manager) {
	if m.dispatcher == nil {
		m.dispatcher = DispatcherFunc(func(string, Emission) error { return nil })
	}
	if m.clock == nil {
		m.clock = clock.Real()
	}
	if m.factory == nil {
		m.factory = provider.NewFactory(provider.Deps{})
	}
	if m.metrics == nil {
		m.metrics = metrics.NewService(metrics.Config{Enabled: false})
	}
	if m.refreshTimeout <= 0 {
		m.refreshTimeout = scheduler.DefaultRefreshTimeout
	}
}
