package patterns

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/miradorstack/mirador-classify/internal/metrics"
)

const defaultDebounce = 500 * time.Millisecond

// ReloadFunc receives every successfully reloaded dictionary.
type ReloadFunc func(ctx context.Context, dict *Dictionary)

// Watcher reloads the dictionary when its file changes on disk. The parent
// directory is watched so editors that replace the file by rename are seen.
type Watcher struct {
	path     string
	debounce time.Duration
	loader   Loader
	onReload ReloadFunc
	logger   *slog.Logger
	fsw      *fsnotify.Watcher

	stopOnce sync.Once
	done     chan struct{}
}

// NewWatcher creates a watcher for path. loader defaults to a FileLoader on path.
func NewWatcher(path string, debounce time.Duration, loader Loader, onReload ReloadFunc, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if loader == nil {
		loader = FileLoader{Path: path, Logger: logger}
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		loader:   loader,
		onReload: onReload,
		logger:   logger,
		fsw:      fsw,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. The event loop exits when ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = w.fsw.Close()
		close(w.done)
		return err
	}
	go w.loop(ctx)
	w.logger.Info("pattern watcher started", slog.String("path", w.path), slog.Duration("debounce", w.debounce))
	return nil
}

// Stop closes the underlying watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.fsw.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("pattern watcher error", slog.Any("error", err))
		case <-fire:
			fire = nil
			w.reload(ctx)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	dict, err := w.loader.LoadDictionary(ctx)
	if err != nil {
		metrics.ObserveDictionaryReload(metrics.OutcomeError)
		w.logger.Warn("pattern reload failed, keeping previous dictionary", slog.Any("error", err))
		return
	}
	metrics.ObserveDictionaryReload(metrics.OutcomeSuccess)
	if w.onReload != nil {
		w.onReload(ctx, dict)
	}
}
