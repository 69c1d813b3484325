package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/comalice/synchsm/internal/logx"
)

const defaultDebounce = 150 * time.Millisecond

// Watcher reloads a config file when it changes on disk and hands every
// valid result to a callback. Invalid edits are logged and ignored, so the
// running configuration stays in effect.
type Watcher struct {
	path     string
	log      logx.Logger
	debounce time.Duration
	onChange func(*Config)
}

// NewWatcher watches path. onChange runs on the watcher goroutine.
func NewWatcher(path string, log logx.Logger, onChange func(*Config)) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		log:      log,
		debounce: defaultDebounce,
		onChange: onChange,
	}
}

// SetDebounce changes the quiet time required before a reload.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Run watches until ctx is done. The parent directory is watched rather than
// the file so editors that replace the file on save are handled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "config watch init")
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return errors.Wrapf(err, "config watch %s", dir)
	}

	fire := make(chan struct{}, 1)
	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()
	debounce := func() {
		if pending != nil {
			pending.Stop()
		}
		pending = time.AfterFunc(w.debounce, func() {
			select {
			case fire <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("config watch error", logx.Err(err), logx.String("dir", dir))
		case <-fire:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("config reload rejected", logx.Err(err), logx.String("path", w.path))
		return
	}
	w.log.Info("config reloaded", logx.String("path", w.path))
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
