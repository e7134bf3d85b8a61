// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package watch reports changes to a set of files, coalescing bursts of
// filesystem events into a single notification.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/terrain"
)

// DefaultDebounce is the quiet period used when New is given zero.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches individual files. It watches their parent directories so
// that editors which replace a file by rename are still observed.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration

	mu    sync.Mutex
	files map[string]struct{}
	dirs  map[string]struct{}
}

// New creates a watcher with the given debounce period.
func New(debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		fs:       fw,
		debounce: debounce,
		files:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
	}, nil
}

// Set replaces the watched file set. Directories no longer needed are
// released.
func (w *Watcher) Set(files []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	nextFiles := make(map[string]struct{}, len(files))
	nextDirs := make(map[string]struct{})
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		nextFiles[abs] = struct{}{}
		nextDirs[filepath.Dir(abs)] = struct{}{}
	}

	for dir := range nextDirs {
		if _, ok := w.dirs[dir]; ok {
			continue
		}
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watch: add %s: %w", dir, err)
		}
		terrain.Logger().Debug("watch: directory added", "path", dir)
	}
	for dir := range w.dirs {
		if _, ok := nextDirs[dir]; !ok {
			_ = w.fs.Remove(dir)
		}
	}
	w.files, w.dirs = nextFiles, nextDirs
	return nil
}

// Files returns the watched files in sorted order.
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// relevant reports whether ev touches a watched file.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.files[abs]
	return ok
}

// Run delivers changes to onChange until ctx is done or the watcher is
// closed. Events are coalesced until no new event arrives for the debounce
// period; onChange then receives every changed file once, sorted.
// onChange runs on the calling goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func(changed []string)) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := make(map[string]struct{})
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			terrain.Logger().Debug("watch: change detected", "file", ev.Name, "op", ev.Op.String())
			abs, _ := filepath.Abs(ev.Name)
			pending[abs] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			terrain.Logger().Warn("watch: watcher error", "err", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for f := range pending {
				changed = append(changed, f)
			}
			slices.Sort(changed)
			clear(pending)
			onChange(changed)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops watching. Run returns after Close.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
