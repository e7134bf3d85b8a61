// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package compute

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/terrain/gradient"
	"github.com/gogpu/terrain/internal/cache"
	"github.com/gogpu/terrain/params"
)

// gradientRowBytes is one RGBA8 row of the lookup texture.
const gradientRowBytes = GradientSize * 4

// GradientCache holds replicated lookup payloads keyed by gradient
// fingerprint.
type GradientCache = cache.FrameCache[uint64, []byte]

// NewGradientCache creates a payload cache whose entries live for ttl frames.
func NewGradientCache(ttl uint32) *GradientCache {
	return cache.NewFrame[uint64, []byte](ttl, nil)
}

// UploadUniform writes p into the uniform buffer of set.
func UploadUniform(queue hal.Queue, set *ResourceSet, p params.Params) error {
	if err := queue.WriteBuffer(set.Uniform, 0, p.Bytes()); err != nil {
		return fmt.Errorf("compute: write uniform: %w", err)
	}
	return nil
}

// GradientPayload evaluates g at GradientSize points with alpha forced to 1
// and replicates the row over every texture row.
func GradientPayload(g gradient.Gradient) ([]byte, error) {
	colors, err := g.LinearEval(GradientSize, true)
	if err != nil {
		return nil, fmt.Errorf("compute: gradient: %w", err)
	}
	row := make([]byte, gradientRowBytes)
	for i, c := range colors {
		px := c.NRGBA()
		row[i*4+0] = px.R
		row[i*4+1] = px.G
		row[i*4+2] = px.B
		row[i*4+3] = px.A
	}
	out := make([]byte, gradientRowBytes*GradientSize)
	for y := range GradientSize {
		copy(out[y*gradientRowBytes:], row)
	}
	return out, nil
}

// UploadGradient writes the lookup texture of set in one full-texture copy.
// Payloads are taken from lut when present and stored there otherwise; lut
// may be nil.
func UploadGradient(queue hal.Queue, set *ResourceSet, g gradient.Gradient, lut *GradientCache) error {
	key := g.Fingerprint()
	var data []byte
	if lut != nil {
		data, _ = lut.Get(key)
	}
	if data == nil {
		var err error
		if data, err = GradientPayload(g); err != nil {
			return err
		}
		if lut != nil {
			lut.Set(key, data)
		}
	}

	err := queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: set.Gradient, MipLevel: 0},
		data,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: gradientRowBytes, RowsPerImage: GradientSize},
		&hal.Extent3D{Width: GradientSize, Height: GradientSize, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("compute: write gradient: %w", err)
	}
	return nil
}
