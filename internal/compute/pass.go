// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
)

// Registry errors.
var (
	// ErrPassIndex is returned when a pass index is out of range.
	ErrPassIndex = errors.New("compute: pass index out of range")

	// ErrNegativeIterations is returned for a negative iteration count.
	ErrNegativeIterations = errors.New("compute: negative iteration count")
)

// ShaderRef identifies the WGSL program of a pass.
type ShaderRef struct {
	// Label is used for GPU debug labels and diagnostics.
	Label string

	// Source is the complete WGSL module, including the Params declaration.
	Source string
}

// Key returns a content hash of the shader source. Identical sources share
// one compiled pipeline.
func (s ShaderRef) Key() [32]byte {
	return sha256.Sum256([]byte(s.Source))
}

// PassDescriptor is one entry in the pass chain.
type PassDescriptor struct {
	Name       string
	Shader     ShaderRef
	Iterations int
}

// Registry is the ordered, mutable list of compute passes.
//
// Mutations happen between frames. The engine takes a Snapshot at the frame
// boundary and never observes a partially applied change.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	passes   []PassDescriptor
	disabled map[int]int // pass index -> iterations saved by Toggle
	gen      uint64
}

// NewRegistry creates a registry holding a copy of passes.
func NewRegistry(passes []PassDescriptor) (*Registry, error) {
	r := &Registry{}
	if err := r.Set(passes); err != nil {
		return nil, err
	}
	return r, nil
}

// Set replaces the whole pass list.
func (r *Registry) Set(passes []PassDescriptor) error {
	for i, p := range passes {
		if p.Iterations < 0 {
			return fmt.Errorf("%w: pass %d %q has %d", ErrNegativeIterations, i, p.Name, p.Iterations)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.passes = append([]PassDescriptor(nil), passes...)
	r.disabled = make(map[int]int)
	r.gen++
	return nil
}

// SetIterations changes the iteration count of pass i.
func (r *Registry) SetIterations(i, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeIterations, n)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if i < 0 || i >= len(r.passes) {
		return fmt.Errorf("%w: %d (have %d)", ErrPassIndex, i, len(r.passes))
	}
	delete(r.disabled, i)
	if r.passes[i].Iterations != n {
		r.passes[i].Iterations = n
		r.gen++
	}
	return nil
}

// Toggle enables or disables pass i. A disabled pass has zero iterations;
// enabling restores the count it had when it was disabled.
func (r *Registry) Toggle(i int, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i < 0 || i >= len(r.passes) {
		return fmt.Errorf("%w: %d (have %d)", ErrPassIndex, i, len(r.passes))
	}
	saved, isDisabled := r.disabled[i]
	switch {
	case enabled && isDisabled:
		r.passes[i].Iterations = saved
		delete(r.disabled, i)
		r.gen++
	case !enabled && !isDisabled:
		r.disabled[i] = r.passes[i].Iterations
		r.passes[i].Iterations = 0
		r.gen++
	}
	return nil
}

// Enabled reports whether pass i is enabled.
func (r *Registry) Enabled(i int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, off := r.disabled[i]
	return !off
}

// Snapshot returns a copy of the current pass list.
func (r *Registry) Snapshot() []PassDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]PassDescriptor(nil), r.passes...)
}

// Len returns the number of passes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.passes)
}

// Generation is bumped on every change that affects the pass list.
func (r *Registry) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.gen
}
