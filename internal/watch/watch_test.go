// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func write(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestWatcherCoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wgsl")
	b := filepath.Join(dir, "b.wgsl")
	other := filepath.Join(dir, "notes.txt")
	write(t, a, "1")
	write(t, b, "1")
	write(t, other, "1")

	w, err := New(50 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Set([]string{a, b}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(changed []string) { got <- changed })
	}()

	// Give the watcher time to start before producing events.
	time.Sleep(50 * time.Millisecond)
	write(t, other, "2")
	for i := range 5 {
		write(t, a, string(rune('a'+i)))
	}
	write(t, b, "2")

	select {
	case changed := <-got:
		want := []string{a, b}
		slices.Sort(want)
		if !slices.Equal(changed, want) {
			t.Errorf("changed = %v, want %v", changed, want)
		}
	case <-ctx.Done():
		t.Fatal("no change delivered")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}

func TestWatcherSet(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "shaders")
	if err := os.Mkdir(sub, 0o700); err != nil {
		t.Fatal(err)
	}
	a := filepath.Join(dir, "settings.json")
	b := filepath.Join(sub, "pass.wgsl")

	w, err := New(0)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Set([]string{b, a}); err != nil {
		t.Fatal(err)
	}
	if files := w.Files(); len(files) != 2 || files[0] != a {
		t.Errorf("Files = %v", files)
	}
	if len(w.dirs) != 2 {
		t.Errorf("watching %d directories, want 2", len(w.dirs))
	}

	if err := w.Set([]string{a}); err != nil {
		t.Fatal(err)
	}
	if len(w.dirs) != 1 {
		t.Errorf("watching %d directories after shrink, want 1", len(w.dirs))
	}
	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want default", w.debounce)
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	w, err := New(0)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Set([]string{filepath.Join(t.TempDir(), "nope", "x.wgsl")}); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestWatcherCloseEndsRun(t *testing.T) {
	w, err := New(0)
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background(), func([]string) {}) }()
	w.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v after Close", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}
