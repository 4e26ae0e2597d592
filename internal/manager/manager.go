package manager

import (
	"context"
	"sort"
	"sync"
	"time"

	"codeberg.org/mutker/sysfeed/internal/clock"
	"codeberg.org/mutker/sysfeed/internal/errors"
	"codeberg.org/mutker/sysfeed/internal/logger"
	"codeberg.org/mutker/sysfeed/internal/metrics"
	"codeberg.org/mutker/sysfeed/internal/provider"
	"codeberg.org/mutker/sysfeed/internal/scheduler"
)

// Manager keeps at most one provider loop per fingerprint and fans its
// emissions out to every subscriber of that fingerprint.
type Manager struct {
	dispatcher     Dispatcher
	clock          clock.Clock
	factory        ProviderFactory
	metrics        metrics.MetricsCollector
	refreshTimeout time.Duration

	mu       sync.Mutex
	refs     map[string]*ref
	stopping map[string]*ref
	closed   bool
}

func New(opts ...Option) *Manager {
	m := &Manager{
		refs:     make(map[string]*ref),
		stopping: make(map[string]*ref),
	}
	for _, opt := range opts {
		opt(m)
	}
	defaults(m)

	return m
}

// Create subscribes subscriberID to fingerprint, spawning the provider loop
// if no subscriber holds it yet. A subscriber joining a running loop gets
// the last output replayed. Subscribing twice is a no-op.
func (m *Manager) Create(ctx context.Context, fingerprint string, cfg provider.Config, subscriberID string) error {
	errFactory := errors.New()

	if fingerprint == "" || subscriberID == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "fingerprint and subscriber are required")
	}
	if cfg == nil {
		return errFactory.WithMessage(errors.ErrMissingConfig, "no provider config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return errFactory.New(errors.ErrManagerClosed)
		}

		if r, ok := m.refs[fingerprint]; ok {
			joined := r.addSubscriber(subscriberID)
			m.mu.Unlock()
			if joined {
				logger.Debug().
					Str("fingerprint", fingerprint).
					Str("subscriber", subscriberID).
					Msg("Subscriber joined running provider")
			}
			return nil
		}

		// A previous instance is still winding down; the new one must not
		// overlap it.
		if old, ok := m.stopping[fingerprint]; ok {
			m.mu.Unlock()
			if err := old.runner.Wait(ctx); err != nil {
				return err
			}
			m.mu.Lock()
			if m.stopping[fingerprint] == old {
				delete(m.stopping, fingerprint)
			}
			m.mu.Unlock()
			continue
		}

		if err := ctx.Err(); err != nil {
			m.mu.Unlock()
			return errFactory.Wrap(errors.ErrTimeout, err)
		}

		err := m.spawn(fingerprint, cfg, subscriberID)
		m.mu.Unlock()

		return err
	}
}

// CreateFromMap decodes a raw provider config and subscribes to it. An empty
// fingerprint is computed from the decoded config.
func (m *Manager) CreateFromMap(ctx context.Context, fingerprint string, raw map[string]any, subscriberID string) (string, error) {
	cfg, err := provider.DecodeConfig(raw)
	if err != nil {
		return "", err
	}

	if fingerprint == "" {
		if fingerprint, err = provider.Fingerprint(cfg); err != nil {
			return "", err
		}
	}

	return fingerprint, m.Create(ctx, fingerprint, cfg, subscriberID)
}

// spawn builds and starts a provider loop. Called with m.mu held.
func (m *Manager) spawn(fingerprint string, cfg provider.Config, subscriberID string) error {
	p, err := m.factory.New(cfg)
	if err != nil {
		if errors.IsConfigError(err) || errors.IsSpawnError(err) {
			return err
		}
		return errors.New().Wrap(errors.ErrSpawnFailed, err)
	}

	r := newRef(fingerprint, cfg.Kind(), subscriberID, m.dispatcher, m.metrics)

	runner, err := scheduler.Start(p, scheduler.Env{
		Fingerprint:    fingerprint,
		Emitter:        r,
		Observer:       m.metrics,
		Clock:          m.clock,
		RefreshTimeout: m.refreshTimeout,
	})
	if err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.ErrorWithContext(appErr, "manager", "spawn").
				Str("fingerprint", fingerprint).
				Str("kind", string(cfg.Kind())).
				Msg("Failed to start provider")
		} else {
			logger.Error().
				Err(err).
				Str("fingerprint", fingerprint).
				Msg("Failed to start provider")
		}
		return err
	}

	r.runner = runner
	m.refs[fingerprint] = r

	logger.Info().
		Str("fingerprint", fingerprint).
		Str("kind", string(cfg.Kind())).
		Str("runtime", runner.RuntimeType().String()).
		Str("subscriber", subscriberID).
		Msg("Provider started")

	return nil
}

// Destroy unsubscribes subscriberID from fingerprint. When the last
// subscriber leaves, the loop is stopped and Destroy waits for it to exit,
// bounded by ctx.
func (m *Manager) Destroy(ctx context.Context, fingerprint, subscriberID string) error {
	m.mu.Lock()

	r, ok := m.refs[fingerprint]
	if !ok {
		m.mu.Unlock()
		return errors.New().WithData(errors.ErrResourceNotFound, fingerprint)
	}

	found, remaining := r.removeSubscriber(subscriberID)
	if !found {
		m.mu.Unlock()
		return errors.New().WithData(errors.ErrResourceNotFound, subscriberID)
	}
	if remaining > 0 {
		m.mu.Unlock()
		return nil
	}

	m.retire(r)
	m.mu.Unlock()

	r.runner.Stop()

	return m.await(ctx, r)
}

// DestroySubscriber removes subscriberID from every fingerprint it holds,
// stopping loops left without subscribers.
func (m *Manager) DestroySubscriber(ctx context.Context, subscriberID string) error {
	m.mu.Lock()
	var retired []*ref
	for _, r := range m.refs {
		found, remaining := r.removeSubscriber(subscriberID)
		if found && remaining == 0 {
			m.retire(r)
			retired = append(retired, r)
		}
	}
	m.mu.Unlock()

	return m.stopAll(ctx, retired)
}

// Shutdown stops every loop and rejects later Create calls.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	retired := make([]*ref, 0, len(m.refs))
	for _, r := range m.refs {
		m.retire(r)
		retired = append(retired, r)
	}
	m.mu.Unlock()

	logger.Info().Int("providers", len(retired)).Msg("Shutting down provider manager")

	return m.stopAll(ctx, retired)
}

// Fingerprints returns the active fingerprints in sorted order.
func (m *Manager) Fingerprints() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	fps := make([]string, 0, len(m.refs))
	for fp := range m.refs {
		fps = append(fps, fp)
	}
	sort.Strings(fps)

	return fps
}

// Subscribers returns the subscribers of fingerprint in sorted order.
func (m *Manager) Subscribers(fingerprint string) ([]string, error) {
	r, err := m.lookup(fingerprint)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.subscriberList(), nil
}

// LastOutput returns the last emitted output of fingerprint and the time of
// its last successful refresh. The output is nil until the first emission.
func (m *Manager) LastOutput(fingerprint string) (provider.Output, time.Time, error) {
	r, err := m.lookup(fingerprint)
	if err != nil {
		return nil, time.Time{}, err
	}

	out, at := r.snapshot()

	return out, at, nil
}

func (m *Manager) lookup(fingerprint string) (*ref, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.refs[fingerprint]
	if !ok {
		return nil, errors.New().WithData(errors.ErrResourceNotFound, fingerprint)
	}

	return r, nil
}

// retire moves r from the active registry to the stopping set. Called with
// m.mu held.
func (m *Manager) retire(r *ref) {
	delete(m.refs, r.fingerprint)
	m.stopping[r.fingerprint] = r
}

func (m *Manager) stopAll(ctx context.Context, refs []*ref) error {
	for _, r := range refs {
		r.runner.Stop()
	}

	var firstErr error
	for _, r := range refs {
		if err := m.await(ctx, r); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// await waits for a retired loop to exit. If ctx expires first the loop
// keeps stopping in the background and is cleared once it exits.
func (m *Manager) await(ctx context.Context, r *ref) error {
	if err := r.runner.Wait(ctx); err != nil {
		logger.Warn().
			Err(err).
			Str("fingerprint", r.fingerprint).
			Msg("Provider still stopping")
		go func() {
			<-r.runner.Done()
			m.clear(r)
		}()
		return err
	}

	m.clear(r)

	return nil
}

func (m *Manager) clear(r *ref) {
	m.mu.Lock()
	if m.stopping[r.fingerprint] == r {
		delete(m.stopping, r.fingerprint)
	}
	// A replacement instance keeps the counters.
	if _, ok := m.refs[r.fingerprint]; !ok {
		m.metrics.Forget(r.fingerprint)
	}
	m.mu.Unlock()

	logger.Info().
		Str("fingerprint", r.fingerprint).
		Str("kind", string(r.kind)).
		Msg("Provider stopped")
}
