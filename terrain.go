// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package terrain

import (
	"github.com/gogpu/terrain/internal/compute"
)

// PassDescriptor is one entry in the pass chain: a name, a WGSL module and
// an iteration count. A pass with zero iterations is disabled.
type PassDescriptor = compute.PassDescriptor

// ShaderRef identifies the WGSL program of a pass.
type ShaderRef = compute.ShaderRef

// Registry is the ordered, mutable pass list of an engine.
type Registry = compute.Registry

// Selector picks side A (0) or B (1) of every resource pair.
type Selector = compute.Selector

// Assignment is the buffer parity of every dispatch in a pass chain.
type Assignment = compute.Assignment

// LayoutError reports a pass shader that does not match the binding layout.
type LayoutError = compute.LayoutError

// Errors re-exported from the compute layer.
var (
	ErrLayoutMismatch     = compute.ErrLayoutMismatch
	ErrNegativeIterations = compute.ErrNegativeIterations
	ErrPassIndex          = compute.ErrPassIndex
)

// DefaultDimensions is the startup grid edge length in cells.
const DefaultDimensions = 1024

// ComputeAssignment returns the selector of every dispatch in passes.
func ComputeAssignment(passes []PassDescriptor) Assignment {
	return compute.ComputeAssignment(passes)
}

// DefaultPasses returns the standard pass chain.
func DefaultPasses() []PassDescriptor {
	return compute.DefaultPasses(compute.DefaultResourceSpec(DefaultDimensions))
}

// BuiltinPass returns the built-in pass called name with the given
// iteration count. ok is false for unknown names.
func BuiltinPass(name string, iterations int) (PassDescriptor, bool) {
	body, ok := compute.BuiltinBody(name)
	if !ok {
		return PassDescriptor{}, false
	}
	return NewPass(name, body, iterations), true
}

// NewPass builds a pass from a WGSL entry point body. The body is compiled
// after the generated declarations of the main binding layout, so it may
// use params, the field and buffer pairs, the gradient and the shared
// helpers, and should call carry(idx) for cells it does not rewrite.
func NewPass(name, body string, iterations int) PassDescriptor {
	spec := compute.DefaultResourceSpec(DefaultDimensions)
	return PassDescriptor{
		Name:       name,
		Shader:     compute.MainShader(spec, name, body),
		Iterations: iterations,
	}
}

// Prelude returns the declarations prepended to every pass body.
func Prelude() string {
	spec := compute.DefaultResourceSpec(DefaultDimensions)
	return compute.Prelude(compute.MainLayout(spec), spec)
}

// ValidatePass checks a pass shader against the main binding layout.
// index is reported in the error.
func ValidatePass(index int, p PassDescriptor) error {
	layout := compute.MainLayout(compute.DefaultResourceSpec(DefaultDimensions))
	return compute.ValidateShader(layout, index, p.Name, p.Shader.Source)
}
