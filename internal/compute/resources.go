// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package compute

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/terrain/params"
)

// Resource set errors.
var (
	// ErrInvalidSpec is returned by Allocate for unusable dimensions or pair counts.
	ErrInvalidSpec = errors.New("compute: invalid resource spec")
)

// resourceGeneration numbers every allocated ResourceSet.
var resourceGeneration atomic.Uint64

// Pair is two interchangeable, identically shaped buffers.
// Buffers[0] is side A and Buffers[1] is side B.
type Pair struct {
	Name    string
	Size    uint64
	Buffers [2]hal.Buffer
}

// ResourceSet is one generation of GPU resources for the pass chain.
//
// A set is immutable once allocated. Resizing allocates a new set with a new
// generation; the old set must be destroyed only after every bind group
// referencing it has been dropped.
type ResourceSet struct {
	device hal.Device
	spec   ResourceSpec
	gen    uint64

	Fields  []Pair
	Buffers []Pair

	Uniform hal.Buffer

	// Gradient is the GradientSize x GradientSize RGBA8 lookup texture.
	Gradient     hal.Texture
	GradientView hal.TextureView

	// ResultBuffer receives packed RGBA8 pixels from the extraction pass.
	ResultBuffer hal.Buffer

	// Result is the displayable copy of ResultBuffer.
	Result     hal.Texture
	ResultView hal.TextureView

	destroyed bool
}

// validateSpec checks dimensions and pair counts.
func validateSpec(spec ResourceSpec) error {
	if spec.Width == 0 || spec.Height == 0 ||
		spec.Width%params.DimensionAlign != 0 || spec.Height%params.DimensionAlign != 0 {
		return fmt.Errorf("%w: %dx%d, dimensions must be positive multiples of %d",
			ErrInvalidSpec, spec.Width, spec.Height, params.DimensionAlign)
	}
	if spec.FieldPairs < 1 {
		return fmt.Errorf("%w: need at least one field pair, got %d", ErrInvalidSpec, spec.FieldPairs)
	}
	for _, b := range spec.BufferPairs {
		if b.BytesPerCell == 0 || b.BytesPerCell%4 != 0 {
			return fmt.Errorf("%w: buffer pair %q has %d bytes per cell, want a positive multiple of 4",
				ErrInvalidSpec, b.Name, b.BytesPerCell)
		}
	}
	return nil
}

// Allocate creates every resource described by spec. Side A of each pair is
// zero-filled so an empty pass chain extracts a cleared image. On error,
// everything created so far is destroyed.
func Allocate(device hal.Device, queue hal.Queue, spec ResourceSpec) (*ResourceSet, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	rs := &ResourceSet{device: device, spec: spec}
	pairUsage := gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst

	newPair := func(name string, size uint64) (Pair, error) {
		p := Pair{Name: name, Size: size}
		for side, suffix := range [2]string{"a", "b"} {
			buf, err := device.CreateBuffer(&hal.BufferDescriptor{
				Label: fmt.Sprintf("terrain_%s_%s", name, suffix),
				Size:  size,
				Usage: pairUsage,
			})
			if err != nil {
				if side == 1 {
					device.DestroyBuffer(p.Buffers[0])
				}
				return Pair{}, fmt.Errorf("create %s_%s buffer: %w", name, suffix, err)
			}
			p.Buffers[side] = buf
		}
		if err := queue.WriteBuffer(p.Buffers[0], 0, make([]byte, size)); err != nil {
			device.DestroyBuffer(p.Buffers[0])
			device.DestroyBuffer(p.Buffers[1])
			return Pair{}, fmt.Errorf("zero-fill %s_a buffer: %w", name, err)
		}
		return p, nil
	}

	cells := spec.Cells()
	for i := range spec.FieldPairs {
		p, err := newPair(fmt.Sprintf("field%d", i), cells*fieldBytesPerCell)
		if err != nil {
			rs.Destroy()
			return nil, fmt.Errorf("compute: %w", err)
		}
		rs.Fields = append(rs.Fields, p)
	}
	for _, b := range spec.BufferPairs {
		p, err := newPair(b.Name, cells*b.BytesPerCell)
		if err != nil {
			rs.Destroy()
			return nil, fmt.Errorf("compute: %w", err)
		}
		rs.Buffers = append(rs.Buffers, p)
	}

	if err := rs.createFixed(cells); err != nil {
		rs.Destroy()
		return nil, fmt.Errorf("compute: %w", err)
	}

	rs.gen = resourceGeneration.Add(1)
	slogger().Info("compute: resources allocated",
		"generation", rs.gen,
		"size", fmt.Sprintf("%dx%d", spec.Width, spec.Height),
		"field_pairs", len(rs.Fields),
		"buffer_pairs", len(rs.Buffers))
	return rs, nil
}

// createFixed creates the uniform, gradient and result resources.
func (rs *ResourceSet) createFixed(cells uint64) error {
	var err error
	rs.Uniform, err = rs.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "terrain_params",
		Size:  params.Size(),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create uniform buffer: %w", err)
	}

	rs.Gradient, rs.GradientView, err = rs.createTexture("terrain_gradient", GradientSize, GradientSize,
		gputypes.TextureUsageTextureBinding|gputypes.TextureUsageCopyDst)
	if err != nil {
		return err
	}

	rs.ResultBuffer, err = rs.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "terrain_result_pixels",
		Size:  cells * resultBytesPerCell,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create result buffer: %w", err)
	}

	rs.Result, rs.ResultView, err = rs.createTexture("terrain_result", rs.spec.Width, rs.spec.Height,
		gputypes.TextureUsageTextureBinding|gputypes.TextureUsageCopyDst|gputypes.TextureUsageCopySrc)
	return err
}

func (rs *ResourceSet) createTexture(label string, w, h uint32, usage gputypes.TextureUsage) (hal.Texture, hal.TextureView, error) {
	tex, err := rs.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create %s texture: %w", label, err)
	}
	view, err := rs.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		rs.device.DestroyTexture(tex)
		return nil, nil, fmt.Errorf("create %s view: %w", label, err)
	}
	return tex, view, nil
}

// Generation identifies this allocation. It is unique per process.
func (rs *ResourceSet) Generation() uint64 { return rs.gen }

// Spec returns the spec the set was allocated with.
func (rs *ResourceSet) Spec() ResourceSpec { return rs.spec }

// Dimensions returns the width and height in cells.
func (rs *ResourceSet) Dimensions() (uint32, uint32) { return rs.spec.Width, rs.spec.Height }

// ResultSize returns the byte size of the packed result.
func (rs *ResourceSet) ResultSize() uint64 { return rs.spec.Cells() * resultBytesPerCell }

// Destroy releases all GPU resources. It is safe to call more than once.
func (rs *ResourceSet) Destroy() {
	if rs == nil || rs.destroyed {
		return
	}
	rs.destroyed = true

	destroyBuf := func(b hal.Buffer) {
		if b != nil {
			rs.device.DestroyBuffer(b)
		}
	}
	for _, group := range [][]Pair{rs.Fields, rs.Buffers} {
		for _, p := range group {
			destroyBuf(p.Buffers[0])
			destroyBuf(p.Buffers[1])
		}
	}
	destroyBuf(rs.Uniform)
	destroyBuf(rs.ResultBuffer)
	if rs.GradientView != nil {
		rs.device.DestroyTextureView(rs.GradientView)
	}
	if rs.Gradient != nil {
		rs.device.DestroyTexture(rs.Gradient)
	}
	if rs.ResultView != nil {
		rs.device.DestroyTextureView(rs.ResultView)
	}
	if rs.Result != nil {
		rs.device.DestroyTexture(rs.Result)
	}

	rs.Fields, rs.Buffers = nil, nil
	rs.Uniform, rs.ResultBuffer = nil, nil
	rs.Gradient, rs.GradientView = nil, nil
	rs.Result, rs.ResultView = nil, nil
}
