package metrics_test

import (
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/sysfeed/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceCounts(t *testing.T) {
	collector := metrics.NewService(metrics.DefaultConfig())
	at := time.Unix(1700000000, 0)

	collector.RefreshSucceeded("a")
	collector.RefreshSucceeded("a")
	collector.RefreshFailed("a")
	collector.EmissionSuppressed("a")
	collector.Emitted("a", at)
	collector.Delivered("a")
	collector.DeliveryFailed("a")
	collector.Emitted("b", at)

	snap, ok := collector.Snapshot("a")
	require.True(t, ok)
	assert.Equal(t, metrics.MetricsSnapshot{
		Refreshes:        2,
		RefreshErrors:    1,
		Emissions:        1,
		Suppressed:       1,
		Deliveries:       1,
		DeliveryFailures: 1,
		LastEmission:     at,
	}, snap)

	assert.Len(t, collector.Snapshots(), 2)

	collector.Forget("a")
	_, ok = collector.Snapshot("a")
	assert.False(t, ok)
}

func TestServiceConcurrentUpdates(t *testing.T) {
	collector := metrics.NewService(metrics.DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.Delivered("fp")
		}()
	}
	wg.Wait()

	snap, ok := collector.Snapshot("fp")
	require.True(t, ok)
	assert.Equal(t, uint64(50), snap.Deliveries)
}

func TestDisabledCollectorIsNoop(t *testing.T) {
	collector := metrics.NewService(metrics.Config{Enabled: false})

	collector.Emitted("fp", time.Now())
	_, ok := collector.Snapshot("fp")
	assert.False(t, ok)
	assert.Empty(t, collector.Snapshots())
}
