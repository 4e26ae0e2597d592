package scheduler

import (
	"context"
	"time"

	"codeberg.org/mutker/sysfeed/internal/clock"
	"codeberg.org/mutker/sysfeed/internal/errors"
	"codeberg.org/mutker/sysfeed/internal/provider"
)

// DefaultRefreshTimeout bounds a single Async refresh.
const DefaultRefreshTimeout = 30 * time.Second

// Emitter receives the results of one provider loop. Calls come from the
// loop goroutine only, in order.
type Emitter interface {
	// Emit delivers a new output refreshed at the given time.
	Emit(out provider.Output, at time.Time)
	// Touch records a successful refresh whose output was suppressed as
	// identical to the previous emission.
	Touch(at time.Time)
}

// Observer is notified of loop events for accounting. Optional.
type Observer interface {
	RefreshSucceeded(fingerprint string)
	RefreshFailed(fingerprint string)
	EmissionSuppressed(fingerprint string)
}

// Env is everything a loop needs besides the provider itself.
type Env struct {
	Fingerprint    string
	Emitter        Emitter
	Observer       Observer
	Clock          clock.Clock
	RefreshTimeout time.Duration
}

// Runner is the handle to one running loop. Both runtime types expose the
// same contract so callers never branch on the model.
type Runner interface {
	// Stop signals the loop to exit at its next safe point. Idempotent.
	Stop()
	// Done is closed once the loop has exited and the provider is closed.
	Done() <-chan struct{}
	// Wait blocks until Done or ctx expires.
	Wait(ctx context.Context) error
	// RuntimeType reports the model the loop runs under.
	RuntimeType() provider.RuntimeType
}

// Start spawns the loop for p under its runtime type and returns once the
// loop has started. On failure the provider is closed.
func Start(p provider.Provider, env Env) (Runner, error) {
	errFactory := errors.New()

	if p == nil {
		return nil, errFactory.WithMessage(errors.ErrSpawnFailed, "no provider")
	}
	if env.Emitter == nil {
		_ = p.Close()
		return nil, errFactory.WithMessage(errors.ErrSpawnFailed, "no emitter")
	}
	if p.Interval() <= 0 {
		_ = p.Close()
		return nil, errFactory.WithData(errors.ErrSpawnFailed, "non-positive interval")
	}
	if env.Clock == nil {
		env.Clock = clock.Real()
	}
	if env.RefreshTimeout <= 0 {
		env.RefreshTimeout = DefaultRefreshTimeout
	}

	l := newLoop(p, env)

	var (
		runner Runner
		err    error
	)
	switch p.RuntimeType() {
	case provider.Sync:
		runner, err = startSync(l)
	case provider.Async:
		runner, err = startAsync(l)
	default:
		_ = p.Close()
		return nil, errFactory.WithData(errors.ErrSpawnFailed, p.RuntimeType().String())
	}
	if err != nil {
		return nil, err
	}

	return runner, nil
}

func wait(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.New().Wrap(errors.ErrTimeout, ctx.Err())
	}
}
