package config

import (
	"context"
	"path/filepath"
	"time"

	"codeberg.org/mutker/sysfeed/internal/errors"
	"codeberg.org/mutker/sysfeed/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce collapses the burst of events editors produce on save.
const DefaultWatchDebounce = 500 * time.Millisecond

// Watch reloads the file at path whenever it changes and passes the new
// settings to callback. It blocks until ctx is done. A reload that fails
// to parse or validate is logged and the previous settings stay in effect.
func Watch(ctx context.Context, path string, callback func(Provider), opts ...Option) error {
	return watch(ctx, path, DefaultWatchDebounce, callback, opts...)
}

func watch(ctx context.Context, path string, debounce time.Duration, callback func(Provider), opts ...Option) error {
	errFactory := errors.New()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errFactory.Wrap(errors.ErrWatchConfig, err)
	}
	defer watcher.Close()

	// The directory is watched so atomic renames by editors are seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return errFactory.Wrap(errors.ErrWatchConfig, err)
	}

	absPath, _ := filepath.Abs(path)
	baseName := filepath.Base(path)
	loadOpts := append([]Option{WithConfigFile(path), WithArgs(nil)}, opts...)

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			eventAbs, _ := filepath.Abs(event.Name)
			if filepath.Base(event.Name) != baseName && eventAbs != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(debounce)
			debounceCh = debounceTimer.C

		case <-debounceCh:
			debounceTimer = nil
			debounceCh = nil

			cfg, err := Load(loadOpts...)
			if err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("Ignoring invalid configuration change")
				continue
			}
			logger.Info().Str("path", path).Msg("Configuration reloaded")
			callback(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Str("path", path).Msg("Configuration watcher error")
		}
	}
}
