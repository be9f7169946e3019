// Package watch reports batches of file changes under a directory tree.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Handler receives the sorted, de-duplicated paths changed during one
// debounce window.
type Handler func(paths []string)

// Filter decides whether a changed path is reported.
type Filter func(path string) bool

// Watcher watches a directory tree and calls its handler after changes settle.
type Watcher struct {
	fsw     *fsnotify.Watcher
	delay   time.Duration
	filter  Filter
	handler Handler
	logger  *zap.Logger
}

// New creates a watcher that waits delay after the last change before
// calling handler.
func New(delay time.Duration, handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	return &Watcher{
		fsw:     fsw,
		delay:   delay,
		filter:  SkipHidden,
		handler: handler,
		logger:  zap.NewNop(),
	}, nil
}

// SetFilter replaces the default filter, which skips hidden files.
func (w *Watcher) SetFilter(f Filter) {
	if f != nil {
		w.filter = f
	}
}

// SetLogger sets the logger.
func (w *Watcher) SetLogger(l *zap.Logger) {
	if l != nil {
		w.logger = l
	}
}

// SkipHidden drops dot files and editor swap files.
func SkipHidden(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~") && !strings.HasSuffix(base, ".swp")
}

// AddRecursive watches root and every directory below it.
func (w *Watcher) AddRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Run delivers change batches until ctx is cancelled. It closes the
// underlying watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	timer := time.NewTimer(w.delay)
	if !timer.Stop() {
		<-timer.C
	}
	pending := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.AddRecursive(ev.Name); err != nil {
						w.logger.Warn("watch: add directory", zap.String("path", ev.Name), zap.Error(err))
					}
				}
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !w.filter(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(w.delay)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch: error", zap.Error(err))
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = map[string]struct{}{}
			w.logger.Debug("watch: change", zap.Strings("paths", paths))
			w.handler(paths)
		}
	}
}
