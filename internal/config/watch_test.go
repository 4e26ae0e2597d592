package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sysfeed.toml")
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "info"`), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Provider, 1)
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, path, 20*time.Millisecond, func(p Provider) {
			select {
			case reloaded <- p:
			default:
			}
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "debug"`), 0o600))

	select {
	case p := <-reloaded:
		assert.Equal(t, "debug", p.GetLogLevel())
	case <-time.After(5 * time.Second):
		t.Fatal("configuration was not reloaded")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatchKeepsPreviousOnInvalidChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sysfeed.toml")
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "info"`), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Provider, 1)
	go func() {
		_ = watch(ctx, path, 20*time.Millisecond, func(p Provider) {
			reloaded <- p
		})
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "loud"`), 0o600))

	select {
	case <-reloaded:
		t.Fatal("invalid configuration must not be delivered")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	err := Watch(context.Background(), "/nonexistent/dir/sysfeed.toml", func(Provider) {})
	require.Error(t, err)
}
