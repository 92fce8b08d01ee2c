// Package watch rebuilds the amalgamation whenever a source file changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 200 * time.Millisecond

// BuildFunc is called once per burst of changes. Builds never overlap.
type BuildFunc func(ctx context.Context, changed []string) error

// Options configures a Watcher.
type Options struct {
	// Dir is watched non-recursively; every module lives directly in it.
	Dir string
	// Extensions limits which files trigger a build. Empty means all.
	Extensions []string
	// Ignore lists files that never trigger a build, typically the output.
	Ignore   []string
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher debounces file system events into builds.
type Watcher struct {
	opts    Options
	logger  *slog.Logger
	fsw     *fsnotify.Watcher
	ignore  map[string]bool
	exts    map[string]bool
	changes chan string
}

// New starts watching opts.Dir. Events are buffered by fsnotify until Run is
// called.
func New(opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(opts.Dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", opts.Dir, err)
	}

	w := &Watcher{
		opts:    opts,
		logger:  logger,
		fsw:     fsw,
		ignore:  make(map[string]bool, len(opts.Ignore)),
		exts:    make(map[string]bool, len(opts.Extensions)),
		changes: make(chan string, 64),
	}
	for _, p := range opts.Ignore {
		w.ignore[cleanAbs(p)] = true
	}
	for _, ext := range opts.Extensions {
		w.exts[ext] = true
	}
	return w, nil
}

// Close stops watching. Run closes the watcher itself when it returns.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Relevant reports whether a change to name should trigger a build.
func (w *Watcher) Relevant(name string) bool {
	if w.ignore[cleanAbs(name)] {
		return false
	}
	if len(w.exts) == 0 {
		return true
	}
	return w.exts[filepath.Ext(name)]
}

// Run delivers debounced builds until ctx is cancelled. Build errors are
// logged and watching continues.
func (w *Watcher) Run(ctx context.Context, build BuildFunc) error {
	defer func() { _ = w.fsw.Close() }()

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return w.collect(egctx)
	})
	eg.Go(func() error {
		return w.debounce(egctx, build)
	})
	return eg.Wait()
}

func (w *Watcher) collect(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !w.Relevant(event.Name) {
				continue
			}
			w.logger.Debug("change detected", "file", event.Name, "op", event.Op.String())
			select {
			case w.changes <- event.Name:
			case <-ctx.Done():
				return nil
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) debounce(ctx context.Context, build BuildFunc) error {
	timer := time.NewTimer(w.opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var pending []string
	seen := map[string]bool{}

	for {
		select {
		case <-ctx.Done():
			return nil

		case name := <-w.changes:
			if !seen[name] {
				seen[name] = true
				pending = append(pending, filepath.Base(name))
			}
			timer.Reset(w.opts.Debounce)

		case <-timer.C:
			changed := pending
			pending = nil
			seen = map[string]bool{}
			if err := build(ctx, changed); err != nil {
				w.logger.Error("rebuild failed", "error", err)
			}
		}
	}
}

func cleanAbs(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
