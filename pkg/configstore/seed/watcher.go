package seed

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig contains configuration for the seed file watcher.
type WatcherConfig struct {
	// Path is the seed file to watch.
	Path string

	// DebounceInterval is the time to wait after the last file event
	// before re-applying the seed file (default: 100ms). Editors tend to
	// emit several events per save; re-applying once per burst is enough.
	DebounceInterval time.Duration
}

// Watcher re-applies a seed file whenever it changes on disk. Because
// registration is idempotent and defaults never overwrite publications,
// re-application is always safe.
type Watcher struct {
	loader   *Loader
	watcher  *fsnotify.Watcher
	config   *WatcherConfig
	logger   *slog.Logger
	debounce *debouncer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for the configured seed file.
func NewWatcher(loader *Loader, config *WatcherConfig) (*Watcher, error) {
	if config == nil || config.Path == "" {
		return nil, fmt.Errorf("seed watcher requires a path")
	}
	if config.DebounceInterval == 0 {
		config.DebounceInterval = 100 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		loader:   loader,
		watcher:  fsw,
		config:   config,
		logger:   slog.Default().With("component", "configstore.seed.watcher"),
		debounce: newDebouncer(config.DebounceInterval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine. The seed file is applied
// once immediately, then again after each change.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	// Watching the directory rather than the file survives the
	// rename-and-replace dance editors and config management tools do.
	dir := filepath.Dir(w.config.Path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	if err := w.loader.LoadAndApply(ctx, w.config.Path); err != nil {
		w.logger.Error("initial seed application failed", "path", w.config.Path, "error", err)
	}

	go w.loop(ctx)

	w.logger.Info("seed watcher started",
		"path", w.config.Path,
		"debounce_interval", w.config.DebounceInterval,
	)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)
	target := filepath.Clean(w.config.Path)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.debounce.trigger(func() {
				w.logger.Debug("seed file changed, re-applying", "path", w.config.Path)
				if err := w.loader.LoadAndApply(ctx, w.config.Path); err != nil {
					w.logger.Error("seed re-application failed", "path", w.config.Path, "error", err)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("seed watcher error", "error", err)
		}
	}
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
	w.watcher.Close()
	<-w.doneCh
	w.debounce.stop()
	w.logger.Info("seed watcher stopped")
}

// debouncer coalesces a burst of triggers into one callback after a quiet
// interval.
type debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

func (d *debouncer) trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, fn)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
