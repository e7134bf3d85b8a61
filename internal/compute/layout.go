// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import (
	"fmt"
)

// Access is how a shader may use a binding slot.
type Access uint8

const (
	// AccessUniform is a uniform buffer.
	AccessUniform Access = iota
	// AccessRead is a read-only storage buffer.
	AccessRead
	// AccessReadWrite is a read-write storage buffer.
	AccessReadWrite
	// AccessTexture is a sampled 2D float texture.
	AccessTexture
)

// String returns the WGSL spelling of the binding's address space.
func (a Access) String() string {
	switch a {
	case AccessUniform:
		return "uniform"
	case AccessRead:
		return "storage, read"
	case AccessReadWrite:
		return "storage, read_write"
	case AccessTexture:
		return "texture_2d<f32>"
	default:
		return fmt.Sprintf("Access(%d)", a)
	}
}

// Resource names what a slot is wired to.
type Resource uint8

const (
	ResourceUniform Resource = iota
	ResourceField
	ResourceBuffer
	ResourceGradient
	ResourceResult
)

// String returns the resource name.
func (r Resource) String() string {
	switch r {
	case ResourceUniform:
		return "uniform"
	case ResourceField:
		return "field"
	case ResourceBuffer:
		return "buffer"
	case ResourceGradient:
		return "gradient"
	case ResourceResult:
		return "result"
	default:
		return fmt.Sprintf("Resource(%d)", r)
	}
}

// Role is the logical side of a ping-pong slot.
type Role uint8

const (
	// RoleNone marks slots that are not part of a pair.
	RoleNone Role = iota
	// RoleSource is the side read by a pass.
	RoleSource
	// RoleDest is the side written by a pass.
	RoleDest
)

// Slot is one binding in a layout.
type Slot struct {
	Binding  uint32
	Name     string
	Access   Access
	Resource Resource
	Index    int // pair index for ResourceField and ResourceBuffer
	Role     Role
}

// Layout is the fixed binding contract of a family of pipelines.
// Slots are ordered by binding number without gaps.
type Layout struct {
	Label string
	Slots []Slot
}

// Slot returns the slot at binding b.
func (l Layout) Slot(b uint32) (Slot, bool) {
	if int(b) >= len(l.Slots) {
		return Slot{}, false
	}
	return l.Slots[b], true
}

// BufferPairSpec describes one structured buffer pair.
type BufferPairSpec struct {
	Name         string
	BytesPerCell uint64
}

// ResourceSpec is the shape of a resource set.
type ResourceSpec struct {
	Width, Height uint32

	// FieldPairs is the number of vec4<f32>-per-cell working field pairs.
	FieldPairs int

	// BufferPairs are the structured per-cell buffer pairs.
	BufferPairs []BufferPairSpec
}

// Field and LUT sizes.
const (
	fieldBytesPerCell  = 16 // vec4<f32>
	resultBytesPerCell = 4  // packed RGBA8
	GradientSize       = 256
)

// DefaultResourceSpec returns the standard terrain resource shape at the
// given square dimension: three field pairs, the grid pair (8 f32 and
// 8 i32 per cell) and the strip pair.
func DefaultResourceSpec(dim uint32) ResourceSpec {
	return ResourceSpec{
		Width:      dim,
		Height:     dim,
		FieldPairs: 3,
		BufferPairs: []BufferPairSpec{
			{Name: "grid", BytesPerCell: 8*4 + 8*4},
			{Name: "strip", BytesPerCell: 16},
		},
	}
}

// Cells returns Width*Height.
func (s ResourceSpec) Cells() uint64 {
	return uint64(s.Width) * uint64(s.Height)
}

// Equal reports whether two specs describe identical resources.
func (s ResourceSpec) Equal(o ResourceSpec) bool {
	if s.Width != o.Width || s.Height != o.Height || s.FieldPairs != o.FieldPairs ||
		len(s.BufferPairs) != len(o.BufferPairs) {
		return false
	}
	for i := range s.BufferPairs {
		if s.BufferPairs[i] != o.BufferPairs[i] {
			return false
		}
	}
	return true
}

// MainLayout declares the slots shared by every main compute pass:
//
//	0         uniform Params
//	1..2F     field pairs, source then destination
//	..+2M     buffer pairs, source then destination
//	last      gradient lookup texture
func MainLayout(spec ResourceSpec) Layout {
	l := Layout{Label: "terrain_main"}
	add := func(s Slot) {
		s.Binding = uint32(len(l.Slots)) //nolint:gosec // slot count is small
		l.Slots = append(l.Slots, s)
	}
	add(Slot{Name: "params", Access: AccessUniform, Resource: ResourceUniform})
	for i := range spec.FieldPairs {
		add(Slot{Name: fmt.Sprintf("field%d_src", i), Access: AccessRead, Resource: ResourceField, Index: i, Role: RoleSource})
		add(Slot{Name: fmt.Sprintf("field%d_dst", i), Access: AccessReadWrite, Resource: ResourceField, Index: i, Role: RoleDest})
	}
	for i, b := range spec.BufferPairs {
		add(Slot{Name: b.Name + "_src", Access: AccessRead, Resource: ResourceBuffer, Index: i, Role: RoleSource})
		add(Slot{Name: b.Name + "_dst", Access: AccessReadWrite, Resource: ResourceBuffer, Index: i, Role: RoleDest})
	}
	add(Slot{Name: "gradient", Access: AccessTexture, Resource: ResourceGradient})
	return l
}

// ExtractLayout declares the slots of the extraction pass: the uniform, one
// read-only view of every pair's final state, the gradient, and the result.
func ExtractLayout(spec ResourceSpec) Layout {
	l := Layout{Label: "terrain_extract"}
	add := func(s Slot) {
		s.Binding = uint32(len(l.Slots)) //nolint:gosec // slot count is small
		l.Slots = append(l.Slots, s)
	}
	add(Slot{Name: "params", Access: AccessUniform, Resource: ResourceUniform})
	for i := range spec.FieldPairs {
		add(Slot{Name: fmt.Sprintf("field%d", i), Access: AccessRead, Resource: ResourceField, Index: i, Role: RoleSource})
	}
	for i, b := range spec.BufferPairs {
		add(Slot{Name: b.Name, Access: AccessRead, Resource: ResourceBuffer, Index: i, Role: RoleSource})
	}
	add(Slot{Name: "gradient", Access: AccessTexture, Resource: ResourceGradient})
	add(Slot{Name: "result", Access: AccessReadWrite, Resource: ResourceResult})
	return l
}
