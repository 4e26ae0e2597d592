package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"codeberg.org/mutker/sysfeed/internal/errors"
	"codeberg.org/mutker/sysfeed/internal/logger"
	"codeberg.org/mutker/sysfeed/internal/provider"
)

// syncRunner runs a loop on a goroutine locked to its own OS thread, so
// blocking probes never stall other loops' goroutines.
type syncRunner struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func startSync(l *loop) (*syncRunner, error) {
	r := &syncRunner{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	started := make(chan error, 1)

	go func() {
		defer close(r.done)
		defer l.close()
		defer recoverLoop(l, started)

		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		started <- nil

		l.run(r.stop, func() (context.Context, context.CancelFunc) {
			return context.Background(), func() {}
		})
	}()

	if err := <-started; err != nil {
		<-r.done
		return nil, err
	}

	return r, nil
}

func (r *syncRunner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *syncRunner) Done() <-chan struct{} {
	return r.done
}

func (r *syncRunner) Wait(ctx context.Context) error {
	return wait(ctx, r.done)
}

func (r *syncRunner) RuntimeType() provider.RuntimeType {
	return provider.Sync
}

// recoverLoop turns a panic outside of refresh into a spawn error if the
// handshake has not happened yet, and logs it either way.
func recoverLoop(l *loop, started chan<- error) {
	rec := recover()
	if rec == nil {
		return
	}

	err := errors.New().WithData(errors.ErrSpawnFailed, fmt.Sprintf("panic: %v", rec))
	select {
	case started <- err:
	default:
	}

	logger.Error().
		Err(err).
		Str("fingerprint", l.env.Fingerprint).
		Str("kind", string(l.provider.Kind())).
		Msg("Provider loop crashed")
}
