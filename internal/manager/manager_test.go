package manager_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/sysfeed/internal/clock"
	"codeberg.org/mutker/sysfeed/internal/errors"
	"codeberg.org/mutker/sysfeed/internal/manager"
	"codeberg.org/mutker/sysfeed/internal/metrics"
	"codeberg.org/mutker/sysfeed/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type fakeProvider struct {
	kind     provider.Kind
	interval time.Duration
	calls    atomic.Int32
	onClose  func()

	closeOnce sync.Once
	closed    chan struct{}
}

func (p *fakeProvider) Kind() provider.Kind               { return p.kind }
func (p *fakeProvider) RuntimeType() provider.RuntimeType { return provider.RuntimeOf(p.kind) }
func (p *fakeProvider) Interval() time.Duration           { return p.interval }
func (p *fakeProvider) AllowIdenticalEmits() bool         { return false }

func (p *fakeProvider) Refresh(context.Context) (provider.Output, error) {
	n := p.calls.Add(1)
	return provider.CPUOutput{Usage: float64(n)}, nil
}

func (p *fakeProvider) Close() error {
	p.closeOnce.Do(func() {
		if p.onClose != nil {
			p.onClose()
		}
		close(p.closed)
	})
	return nil
}

type fakeFactory struct {
	err error

	mu      sync.Mutex
	created []*fakeProvider
	live    atomic.Int32
	maxLive atomic.Int32
}

func (f *fakeFactory) New(cfg provider.Config) (provider.Provider, error) {
	if f.err != nil {
		return nil, f.err
	}

	live := f.live.Add(1)
	for {
		peak := f.maxLive.Load()
		if live <= peak || f.maxLive.CompareAndSwap(peak, live) {
			break
		}
	}

	p := &fakeProvider{
		kind:     cfg.Kind(),
		interval: cfg.Interval(),
		onClose:  func() { f.live.Add(-1) },
		closed:   make(chan struct{}),
	}

	f.mu.Lock()
	f.created = append(f.created, p)
	f.mu.Unlock()

	return p, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeFactory) provider(i int) *fakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[i]
}

type delivery struct {
	subscriber string
	emission   manager.Emission
}

type recordingDispatcher struct {
	err        error
	deliveries chan delivery
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{deliveries: make(chan delivery, 256)}
}

func (d *recordingDispatcher) Deliver(subscriberID string, e manager.Emission) error {
	d.deliveries <- delivery{subscriber: subscriberID, emission: e}
	return d.err
}

func cpuConfig(intervalMs int64) provider.Config {
	return provider.CPUConfig{Common: provider.Common{RefreshInterval: intervalMs}}
}

func newManager(t *testing.T, factory *fakeFactory, dispatcher manager.Dispatcher, opts ...manager.Option) *manager.Manager {
	t.Helper()

	opts = append([]manager.Option{
		manager.WithFactory(factory),
		manager.WithDispatcher(dispatcher),
		manager.WithClock(clock.Fake(time.Unix(0, 0))),
	}, opts...)
	m := manager.New(opts...)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	return m
}

func receive(t *testing.T, ch <-chan delivery) delivery {
	t.Helper()

	select {
	case d := <-ch:
		return d
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for delivery")
		return delivery{}
	}
}

func assertQuiet(t *testing.T, ch <-chan delivery) {
	t.Helper()

	select {
	case d := <-ch:
		t.Fatalf("unexpected delivery to %s", d.subscriber)
	case <-time.After(50 * time.Millisecond):
	}
}

func assertClosed(t *testing.T, p *fakeProvider) {
	t.Helper()

	select {
	case <-p.closed:
	case <-time.After(waitFor):
		t.Fatal("provider was not closed")
	}
}

func TestCreateSharesOneProviderPerFingerprint(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{}
	dispatcher := newRecordingDispatcher()
	m := newManager(t, factory, dispatcher)

	require.NoError(t, m.Create(ctx, "fp", cpuConfig(1000), "s1"))
	require.NoError(t, m.Create(ctx, "fp", cpuConfig(1000), "s2"))

	assert.Equal(t, 1, factory.count())
	assert.Equal(t, []string{"fp"}, m.Fingerprints())

	subscribers, err := m.Subscribers("fp")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, subscribers)

	got := map[string]provider.Output{}
	for i := 0; i < 2; i++ {
		d := receive(t, dispatcher.deliveries)
		assert.Equal(t, "fp", d.emission.ConfigHash)
		got[d.subscriber] = d.emission.Output
	}
	assert.Equal(t, map[string]provider.Output{
		"s1": provider.CPUOutput{Usage: 1},
		"s2": provider.CPUOutput{Usage: 1},
	}, got)
	assertQuiet(t, dispatcher.deliveries)
}

func TestCreateTwiceIsNoop(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{}
	dispatcher := newRecordingDispatcher()
	m := newManager(t, factory, dispatcher)

	require.NoError(t, m.Create(ctx, "fp", cpuConfig(1000), "s1"))
	receive(t, dispatcher.deliveries)

	require.NoError(t, m.Create(ctx, "fp", cpuConfig(1000), "s1"))
	assertQuiet(t, dispatcher.deliveries)

	subscribers, err := m.Subscribers("fp")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, subscribers)
}

func TestLateSubscriberGetsReplay(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{}
	dispatcher := newRecordingDispatcher()
	m := newManager(t, factory, dispatcher)

	require.NoError(t, m.Create(ctx, "fp", cpuConfig(1000), "s1"))
	first := receive(t, dispatcher.deliveries)
	assert.Equal(t, "s1", first.subscriber)

	require.NoError(t, m.Create(ctx, "fp", cpuConfig(1000), "s2"))
	replay := receive(t, dispatcher.deliveries)
	assert.Equal(t, "s2", replay.subscriber)
	assert.Equal(t, first.emission, replay.emission)

	assertQuiet(t, dispatcher.deliveries)
	assert.Equal(t, 1, factory.count())
}

func TestDestroyStopsAfterLastSubscriber(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{}
	m := newManager(t, factory, newRecordingDispatcher())

	require.NoError(t, m.Create(ctx, "fp", cpuConfig(1000), "s1"))
	require.NoError(t, m.Create(ctx, "fp", cpuConfig(1000), "s2"))
	p := factory.provider(0)

	require.NoError(t, m.Destroy(ctx, "fp", "s1"))
	assert.Equal(t, []string{"fp"}, m.Fingerprints())
	select {
	case <-p.closed:
		t.Fatal("provider closed while still subscribed")
	default:
	}

	require.NoError(t, m.Destroy(ctx, "fp", "s2"))
	assertClosed(t, p)
	assert.Empty(t, m.Fingerprints())

	_, err := m.Subscribers("fp")
	assert.True(t, errors.IsNotFound(err))
}

func TestDestroyUnknown(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, &fakeFactory{}, newRecordingDispatcher())

	err := m.Destroy(ctx, "missing", "s1")
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, m.Create(ctx, "fp", cpuConfig(1000), "s1"))
	err = m.Destroy(ctx, "fp", "nobody")
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, []string{"fp"}, m.Fingerprints())
}

func TestRecreateAfterDestroySpawnsFreshInstance(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{}
	dispatcher := newRecordingDispatcher()
	m := newManager(t, factory, dispatcher)

	require.NoError(t, m.Create(ctx, "fp", cpuConfig(1000), "s1"))
	receive(t, dispatcher.deliveries)
	require.NoError(t, m.Destroy(ctx, "fp", "s1"))

	require.NoError(t, m.Create(ctx, "fp", cpuConfig(1000), "s1"))
	d := receive(t, dispatcher.deliveries)

	assert.Equal(t, 2, factory.count())
	assert.Equal(t, provider.CPUOutput{Usage: 1}, d.emission.Output)
}

func TestDestroySubscriber(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{}
	m := newManager(t, factory, newRecordingDispatcher())

	require.NoError(t, m.Create(ctx, "a", cpuConfig(1000), "s1"))
	require.NoError(t, m.Create(ctx, "b", cpuConfig(2000), "s1"))
	require.NoError(t, m.Create(ctx, "b", cpuConfig(2000), "s2"))

	require.NoError(t, m.DestroySubscriber(ctx, "s1"))

	assertClosed(t, factory.provider(0))
	assert.Equal(t, []string{"b"}, m.Fingerprints())

	subscribers, err := m.Subscribers("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, subscribers)
}

func TestShutdown(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{}
	m := newManager(t, factory, newRecordingDispatcher())

	require.NoError(t, m.Create(ctx, "a", cpuConfig(1000), "s1"))
	require.NoError(t, m.Create(ctx, "b", cpuConfig(2000), "s2"))

	require.NoError(t, m.Shutdown(ctx))

	assertClosed(t, factory.provider(0))
	assertClosed(t, factory.provider(1))
	assert.Empty(t, m.Fingerprints())

	err := m.Create(ctx, "a", cpuConfig(1000), "s1")
	assert.True(t, errors.IsSpawnError(err))
	assert.True(t, errors.HasCode(err, errors.ErrManagerClosed))
}

func TestCreateRejectsInvalidConfig(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{}
	m := newManager(t, factory, newRecordingDispatcher())

	err := m.Create(ctx, "fp", cpuConfig(0), "s1")
	assert.True(t, errors.IsConfigError(err))

	err = m.Create(ctx, "fp", nil, "s1")
	assert.True(t, errors.IsConfigError(err))

	err = m.Create(ctx, "", cpuConfig(1000), "s1")
	assert.True(t, errors.IsConfigError(err))

	assert.Zero(t, factory.count())
	assert.Empty(t, m.Fingerprints())
}

func TestCreateWrapsFactoryFailure(t *testing.T) {
	factory := &fakeFactory{err: fmt.Errorf("no device")}
	m := newManager(t, factory, newRecordingDispatcher())

	err := m.Create(context.Background(), "fp", cpuConfig(1000), "s1")
	assert.True(t, errors.IsSpawnError(err))
	assert.Empty(t, m.Fingerprints())
}

func TestCreateFromMapComputesFingerprint(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, &fakeFactory{}, newRecordingDispatcher())

	fp, err := m.CreateFromMap(ctx, "", map[string]any{
		"type":             "cpu",
		"refresh_interval": 1000,
	}, "s1")
	require.NoError(t, err)

	want, err := provider.Fingerprint(cpuConfig(1000))
	require.NoError(t, err)
	assert.Equal(t, want, fp)
	assert.Equal(t, []string{want}, m.Fingerprints())

	_, err = m.CreateFromMap(ctx, "", map[string]any{"type": "toaster"}, "s1")
	assert.True(t, errors.IsConfigError(err))
}

func TestLastOutput(t *testing.T) {
	ctx := context.Background()
	dispatcher := newRecordingDispatcher()
	m := newManager(t, &fakeFactory{}, dispatcher)

	_, _, err := m.LastOutput("fp")
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, m.Create(ctx, "fp", cpuConfig(1000), "s1"))
	d := receive(t, dispatcher.deliveries)

	out, at, err := m.LastOutput("fp")
	require.NoError(t, err)
	assert.Equal(t, d.emission.Output, out)
	assert.Equal(t, time.Unix(0, 0), at)
}

func TestDeliveryFailuresAreCounted(t *testing.T) {
	ctx := context.Background()
	collector := metrics.NewService(metrics.DefaultConfig())
	dispatcher := newRecordingDispatcher()
	dispatcher.err = fmt.Errorf("queue full")
	m := newManager(t, &fakeFactory{}, dispatcher, manager.WithMetrics(collector))

	require.NoError(t, m.Create(ctx, "fp", cpuConfig(1000), "s1"))
	receive(t, dispatcher.deliveries)

	assert.Eventually(t, func() bool {
		snap, ok := collector.Snapshot("fp")
		return ok && snap.DeliveryFailures == 1 && snap.Emissions == 1
	}, waitFor, 10*time.Millisecond)

	// The loop survives a failed delivery.
	assert.Equal(t, []string{"fp"}, m.Fingerprints())
}

func TestConcurrentChurnKeepsOneInstance(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{}
	m := newManager(t, factory, manager.DispatcherFunc(func(string, manager.Emission) error { return nil }))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if err := m.Create(ctx, "fp", cpuConfig(1000), id); err != nil {
					t.Errorf("create: %v", err)
					return
				}
				if err := m.Destroy(ctx, "fp", id); err != nil {
					t.Errorf("destroy: %v", err)
					return
				}
			}
		}(fmt.Sprintf("s%d", i))
	}
	wg.Wait()

	assert.Empty(t, m.Fingerprints())
	assert.LessOrEqual(t, factory.maxLive.Load(), int32(1))
	assert.Zero(t, factory.live.Load())
}
