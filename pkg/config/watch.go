package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// settle is how long the file must stay quiet before it is reloaded.
var settle = 150 * time.Millisecond

// Watch reloads path once writes to it settle and hands valid settings to
// onChange. Invalid and empty files are logged and skipped. It blocks until
// ctx is done.
func Watch(ctx context.Context, fs afero.Fs, path string, onChange func(*Settings)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Errorf("creating config watcher: %w", err)
	}
	defer watcher.Close()

	path = filepath.Clean(path)

	// editors often replace the file instead of writing it, so watch the directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return errors.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	logger := zerolog.Ctx(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(settle)
			} else {
				timer.Reset(settle)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if s, ok := reload(ctx, fs, path); ok {
				onChange(s)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func reload(ctx context.Context, fs afero.Fs, path string) (*Settings, bool) {
	logger := zerolog.Ctx(ctx)

	// a truncating write is seen before the new content lands
	if info, err := fs.Stat(path); err == nil && info.Size() == 0 {
		logger.Debug().Str("path", path).Msg("ignoring empty config")
		return nil, false
	}

	s, err := Load(fs, path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("ignoring invalid config")
		return nil, false
	}
	logger.Info().Str("path", path).Msg("config reloaded")
	return s, true
}
