// Package watch re-runs validation when manifest files change on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jsonagents/jsonagents/internal/batch"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period before a batch of changes is reported.
const DefaultDebounce = 200 * time.Millisecond

// Config selects what to watch.
type Config struct {
	// Paths are files or directories, as given on the command line.
	Paths []string
	// Recursive also watches subdirectories, including ones created later.
	Recursive bool
	// Debounce is the quiet period; zero selects DefaultDebounce.
	Debounce time.Duration
}

// Watcher reports changes to manifest files. Watches are registered by New,
// so changes made after New returns are observed.
type Watcher struct {
	fs     *fsnotify.Watcher
	cfg    Config
	logger *zap.Logger

	files     map[string]bool // explicitly named files
	closeOnce sync.Once
	closeErr  error
}

// New registers watches for every configured path.
func New(cfg Config, logger *zap.Logger) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	w := &Watcher{
		fs:     fsw,
		cfg:    cfg,
		logger: logger.Named("watch"),
		files:  make(map[string]bool),
	}
	for _, p := range cfg.Paths {
		if err := w.addPath(p); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("watching %s: %w", p, err)
		}
	}
	return w, nil
}

// Run delivers debounced change sets to onChange until ctx is done. Each set
// holds the changed manifest paths in sorted order. Run closes the watcher
// before returning.
func (w *Watcher) Run(ctx context.Context, onChange func(changed []string)) error {
	defer w.Close()

	d := NewDebouncer(w.cfg.Debounce)
	defer d.Stop()

	w.logger.Info("watching for changes", zap.Strings("paths", w.cfg.Paths), zap.Duration("debounce", w.cfg.Debounce))
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			w.maybeAddDir(event)
			if !w.shouldProcess(event) {
				continue
			}
			w.logger.Debug("file event", zap.String("path", event.Name), zap.Stringer("op", event.Op))
			d.Add(event.Name)

		case <-d.C():
			changed := d.Flush()
			w.logger.Info("manifests changed", zap.Strings("paths", changed))
			onChange(changed)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("file watcher error", zap.Error(err))
		}
	}
}

// Close releases the underlying watches. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fs.Close()
	})
	return w.closeErr
}

func (w *Watcher) addPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		// Watch the parent so editors that replace the file are still seen.
		w.files[filepath.Clean(path)] = true
		return w.fs.Add(filepath.Dir(path))
	}
	if !w.cfg.Recursive {
		return w.fs.Add(path)
	}
	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != path && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		w.logger.Debug("watching directory", zap.String("path", p))
		return w.fs.Add(p)
	})
}

// maybeAddDir follows directories created under a recursive watch.
func (w *Watcher) maybeAddDir(event fsnotify.Event) {
	if !w.cfg.Recursive || !event.Has(fsnotify.Create) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.IsDir() || strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}
	if err := w.addPath(event.Name); err != nil {
		w.logger.Warn("could not watch new directory", zap.String("path", event.Name), zap.Error(err))
	}
}

func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(event.Name)
	if strings.HasPrefix(filepath.Base(name), ".") || !batch.IsManifestFile(name) {
		return false
	}
	if w.files[name] {
		return true
	}
	// Events from a parent watched only for an explicit file.
	return w.watchesDirOf(name)
}

func (w *Watcher) watchesDirOf(name string) bool {
	dir := filepath.Dir(name)
	for _, p := range w.cfg.Paths {
		clean := filepath.Clean(p)
		if clean == dir || (w.cfg.Recursive && strings.HasPrefix(dir, clean+string(filepath.Separator))) {
			if info, err := os.Stat(clean); err == nil && info.IsDir() {
				return true
			}
		}
	}
	return false
}
