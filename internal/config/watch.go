package config

import (
	"context"
	"errors"
	"hash/fnv"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/warpdl/deadline/pkg/logger"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher reloads a config file whenever it changes on disk. Reads go through
// fs; change detection uses fsnotify on the file's directory, so fs must be
// backed by the OS filesystem for Watch to see edits.
type Watcher struct {
	fs       afero.Fs
	path     string
	getenv   func(string) string
	log      logger.Logger
	debounce time.Duration

	mu       sync.Mutex
	lastHash uint64
}

// NewWatcher creates a Watcher for path. getenv may be nil to skip env
// overrides on reload.
func NewWatcher(fs afero.Fs, path string, getenv func(string) string, log logger.Logger) *Watcher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Watcher{
		fs:       fs,
		path:     path,
		getenv:   getenv,
		log:      log,
		debounce: defaultDebounce,
	}
}

// SetLogger replaces the logger used by Watch.
func (w *Watcher) SetLogger(log logger.Logger) {
	if log != nil {
		w.log = log
	}
}

// Load reads the file and remembers its content so that Watch only reports
// later changes.
func (w *Watcher) Load() (*Config, error) {
	cfg, _, err := w.reload()
	return cfg, err
}

// reload parses the file and reports whether its bytes differ from the last
// successful load.
func (w *Watcher) reload() (*Config, bool, error) {
	data, err := afero.ReadFile(w.fs, w.path)
	if err != nil {
		return nil, false, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, false, err
	}
	if w.getenv != nil {
		cfg.ApplyEnv(w.getenv)
	}

	h := fnv.New64a()
	_, _ = h.Write(data)
	sum := h.Sum64()

	w.mu.Lock()
	changed := sum != w.lastHash
	w.lastHash = sum
	w.mu.Unlock()
	return cfg, changed, nil
}

// Watch blocks until ctx is done, calling onChange with every successfully
// parsed new version of the file. Parse errors are logged and the previous
// config stays in effect.
func (w *Watcher) Watch(ctx context.Context, onChange func(*Config)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)
	if err := fw.Add(dir); err != nil {
		return err
	}
	w.log.Debug("watching config %s", w.path)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	schedule := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			if ctx.Err() != nil {
				return
			}
			cfg, changed, err := w.reload()
			if err != nil {
				w.log.Warning("config reload failed: %v", err)
				return
			}
			if !changed {
				return
			}
			w.log.Info("config reloaded from %s", w.path)
			onChange(cfg)
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("config watcher closed")
			}
			if !strings.EqualFold(filepath.Base(ev.Name), file) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				schedule()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("config watcher closed")
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				schedule()
				continue
			}
			w.log.Warning("config watch error: %v", err)
		}
	}
}
