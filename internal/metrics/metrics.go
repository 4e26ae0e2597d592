package metrics

import (
	"sync"
	"time"

	"codeberg.org/mutker/sysfeed/internal/logger"
)

type service struct {
	mu       sync.Mutex
	counters map[string]*MetricsSnapshot
}

// No-op implementation
type noopMetricsCollector struct{}

func NewService(cfg Config) MetricsCollector {
	// If metrics is disabled, return a no-op collector
	if !cfg.Enabled {
		logger.Debug().Msg("Metrics collection disabled, using no-op collector")
		return &noopMetricsCollector{}
	}

	return &service{
		counters: make(map[string]*MetricsSnapshot),
	}
}

func (s *service) update(fingerprint string, fn func(*MetricsSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[fingerprint]
	if !ok {
		c = &MetricsSnapshot{}
		s.counters[fingerprint] = c
	}
	fn(c)
}

func (s *service) RefreshSucceeded(fingerprint string) {
	s.update(fingerprint, func(c *MetricsSnapshot) { c.Refreshes++ })
}

func (s *service) RefreshFailed(fingerprint string) {
	s.update(fingerprint, func(c *MetricsSnapshot) { c.RefreshErrors++ })
}

func (s *service) EmissionSuppressed(fingerprint string) {
	s.update(fingerprint, func(c *MetricsSnapshot) { c.Suppressed++ })
}

func (s *service) Emitted(fingerprint string, at time.Time) {
	s.update(fingerprint, func(c *MetricsSnapshot) {
		c.Emissions++
		c.LastEmission = at
	})
}

func (s *service) Delivered(fingerprint string) {
	s.update(fingerprint, func(c *MetricsSnapshot) { c.Deliveries++ })
}

func (s *service) DeliveryFailed(fingerprint string) {
	s.update(fingerprint, func(c *MetricsSnapshot) { c.DeliveryFailures++ })
}

// Forget drops the counters of a fingerprint that is no longer active.
func (s *service) Forget(fingerprint string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.counters, fingerprint)
}

func (s *service) Snapshot(fingerprint string) (MetricsSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[fingerprint]
	if !ok {
		return MetricsSnapshot{}, false
	}
	return *c, true
}

func (s *service) Snapshots() map[string]MetricsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]MetricsSnapshot, len(s.counters))
	for fingerprint, c := range s.counters {
		out[fingerprint] = *c
	}
	return out
}

// No-op implementation
func (*noopMetricsCollector) RefreshSucceeded(string)   {}
func (*noopMetricsCollector) RefreshFailed(string)      {}
func (*noopMetricsCollector) EmissionSuppressed(string) {}
func (*noopMetricsCollector) Emitted(string, time.Time) {}
func (*noopMetricsCollector) Delivered(string)          {}
func (*noopMetricsCollector) DeliveryFailed(string)     {}
func (*noopMetricsCollector) Forget(string)             {}
func (*noopMetricsCollector) Snapshots() map[string]MetricsSnapshot {
	return map[string]MetricsSnapshot{}
}

func (*noopMetricsCollector) Snapshot(string) (MetricsSnapshot, bool) {
	return MetricsSnapshot{}, false
}
