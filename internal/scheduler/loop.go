package scheduler

import (
	"bytes"
	"context"
	"fmt"

	"codeberg.org/mutker/sysfeed/internal/codec"
	"codeberg.org/mutker/sysfeed/internal/errors"
	"codeberg.org/mutker/sysfeed/internal/logger"
	"codeberg.org/mutker/sysfeed/internal/provider"
)

// loop is the interval state machine of one provider instance. It is
// Running from spawn until stop is observed, then Stopped for good.
type loop struct {
	provider provider.Provider
	env      Env
	last     []byte
}

func newLoop(p provider.Provider, env Env) *loop {
	return &loop{provider: p, env: env}
}

// run refreshes once immediately, then once per tick until stop closes.
// Ticks that arrive while a refresh is in flight are dropped by the
// ticker, so a delayed loop catches up with a single refresh.
func (l *loop) run(stop <-chan struct{}, refreshContext func() (context.Context, context.CancelFunc)) {
	if stopped(stop) {
		return
	}
	l.tick(stop, refreshContext)

	ticker := l.env.Clock.NewTicker(l.provider.Interval())
	defer ticker.Stop()

	for {
		if stopped(stop) {
			return
		}

		select {
		case <-stop:
			return
		case <-ticker.C:
			l.tick(stop, refreshContext)
		}
	}
}

func (l *loop) tick(stop <-chan struct{}, refreshContext func() (context.Context, context.CancelFunc)) {
	ctx, cancel := refreshContext()
	out, err := l.refresh(ctx)
	cancel()

	// A stop that arrived during the refresh wins over its result.
	if stopped(stop) {
		return
	}

	now := l.env.Clock.Now()

	if err == nil && out == nil {
		err = errors.New().WithMessage(errors.ErrRefreshFailed, "provider returned no output")
	}
	if err != nil {
		l.logFailure(err)
		if l.env.Observer != nil {
			l.env.Observer.RefreshFailed(l.env.Fingerprint)
		}
		return
	}

	if l.env.Observer != nil {
		l.env.Observer.RefreshSucceeded(l.env.Fingerprint)
	}

	data, err := codec.Marshal(out)
	if err != nil {
		l.logFailure(errors.New().Wrap(errors.ErrRefreshFailed, err))
		return
	}

	if !l.provider.AllowIdenticalEmits() && l.last != nil && bytes.Equal(data, l.last) {
		l.env.Emitter.Touch(now)
		if l.env.Observer != nil {
			l.env.Observer.EmissionSuppressed(l.env.Fingerprint)
		}
		return
	}

	l.last = data
	l.env.Emitter.Emit(out, now)
}

// refresh calls the provider, converting a panic into a refresh error.
func (l *loop) refresh(ctx context.Context) (out provider.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = errors.New().WithData(errors.ErrRefreshFailed, fmt.Sprintf("panic: %v", r))
		}
	}()

	return l.provider.Refresh(ctx)
}

func (l *loop) logFailure(err error) {
	var event *logger.LogEvent
	var appErr errors.Error
	if errors.As(err, &appErr) {
		event = logger.ErrorWithCode(appErr)
	} else {
		event = logger.Error()
		event.Err(err)
	}

	event.
		Str("fingerprint", l.env.Fingerprint).
		Str("kind", string(l.provider.Kind())).
		Str("runtime", l.provider.RuntimeType().String()).
		Msg("Provider refresh failed, keeping previous output")
}

func (l *loop) close() {
	if err := l.provider.Close(); err != nil {
		logger.Warn().
			Err(err).
			Str("fingerprint", l.env.Fingerprint).
			Str("kind", string(l.provider.Kind())).
			Msg("Failed to close provider")
	}
}

func stopped(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
