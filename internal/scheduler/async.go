package scheduler

import (
	"context"

	"codeberg.org/mutker/sysfeed/internal/provider"
)

// asyncRunner runs a loop as a goroutine driven by a cancellable context.
// Each refresh gets its own timeout, detached from stop so a call already
// in flight completes.
type asyncRunner struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func startAsync(l *loop) (*asyncRunner, error) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &asyncRunner{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	started := make(chan error, 1)
	timeout := l.env.RefreshTimeout

	go func() {
		defer close(r.done)
		defer l.close()
		defer recoverLoop(l, started)

		started <- nil

		l.run(ctx.Done(), func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.WithoutCancel(ctx), timeout)
		})
	}()

	if err := <-started; err != nil {
		cancel()
		<-r.done
		return nil, err
	}

	return r, nil
}

func (r *asyncRunner) Stop() {
	r.cancel()
}

func (r *asyncRunner) Done() <-chan struct{} {
	return r.done
}

func (r *asyncRunner) Wait(ctx context.Context) error {
	return wait(ctx, r.done)
}

func (r *asyncRunner) RuntimeType() provider.RuntimeType {
	return provider.Async
}
