// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package params defines the tunable parameter record shared between the
// control surface and the compute shaders.
//
// The record is uploaded verbatim into the uniform slot (binding 0) of every
// compute pass. Its byte layout is produced by [Params.Bytes] and must match
// the WGSL declaration in [WGSL] field for field.
package params

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// WGSL is the shader-side declaration of the uniform block.
// Compute shaders prepend it to their source.
//
//go:embed params.wgsl
var WGSL string

// DimensionAlign is the required multiple for Dimensions. It keeps packed
// RGBA8 rows aligned to the 256-byte copy pitch.
const DimensionAlign = 64

// ErrInvalidDimensions is returned by Validate for unusable dimensions.
var ErrInvalidDimensions = errors.New("params: dimensions must be a positive multiple of 64")

// DomainWarp is one two-octave domain warp stage.
type DomainWarp struct {
	Amount1 float32 `json:"amount_1"`
	Scale1  float32 `json:"scale_1"`
	Amount2 float32 `json:"amount_2"`
	Scale2  float32 `json:"scale_2"`
}

// Params is the full parameter record. Field order follows the uniform block.
type Params struct {
	Dimensions uint32 `json:"dimensions"`

	// Circle generator.
	Radius          float32 `json:"radius"`
	NoiseSeed       uint32  `json:"noise_seed"`
	NoiseFreq       float32 `json:"noise_freq"`
	NoiseAmplitude  float32 `json:"noise_amplitude"`
	NoiseOffset     float32 `json:"noise_offset"`
	NoiseLacunarity float32 `json:"noise_lacunarity"`
	PowerBias       float32 `json:"power_bias"`
	Flatness        float32 `json:"flatness"`
	Steepness       float32 `json:"steepness"`
	Mix             float32 `json:"mix"`
	NoiseWarpAmount float32 `json:"noise_warp_amount"`
	NoiseWarpScale  float32 `json:"noise_warp_scale"`

	DomainWarp1 DomainWarp `json:"domain_warp_1"`

	// Cellular automata.
	NoiseWeight     float32 `json:"noise_weight"`
	CAThresh        float32 `json:"ca_thresh"`
	CASearchRadius  float32 `json:"ca_search_radius"`
	CAEdgePow       float32 `json:"ca_edge_pow"`
	EdgeSuppressMix float32 `json:"edge_suppress_mix"`

	// Cave domain warp.
	DomainWarp2 DomainWarp `json:"domain_warp_2"`

	MiscF float32 `json:"misc_f"`
	MiscI int32   `json:"misc_i"`
}

// Default returns the startup parameter set.
func Default() Params {
	return Params{
		Dimensions:      1024,
		Radius:          0.3,
		NoiseFreq:       0.3,
		NoiseAmplitude:  1.55,
		NoiseLacunarity: 1.0,
		PowerBias:       1.8,
		Flatness:        1.5,
		Steepness:       1.3,
		Mix:             0.5,
		NoiseWeight:     0.53,
		CAThresh:        0.24,
		CASearchRadius:  3.8,
		CAEdgePow:       1.5,
		EdgeSuppressMix: 1.0,
	}
}

// Validate reports whether p can drive a resource allocation.
func (p Params) Validate() error {
	if p.Dimensions == 0 || p.Dimensions%DimensionAlign != 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidDimensions, p.Dimensions)
	}
	return nil
}

// Kind is the WGSL scalar type of a field.
type Kind uint8

const (
	KindU32 Kind = iota
	KindF32
	KindI32
)

// String returns the WGSL spelling of the scalar type.
func (k Kind) String() string {
	switch k {
	case KindU32:
		return "u32"
	case KindF32:
		return "f32"
	case KindI32:
		return "i32"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Field describes one scalar in the uniform block.
type Field struct {
	Name   string
	Offset uint64
	Kind   Kind
}

// fieldNames lists the uniform block in declaration order. Every entry is a
// 4-byte scalar so offsets are index*4 and no implicit padding is inserted.
var fieldNames = []struct {
	name string
	kind Kind
}{
	{"dimensions", KindU32},
	{"radius", KindF32},
	{"noise_seed", KindU32},
	{"noise_freq", KindF32},
	{"noise_amplitude", KindF32},
	{"noise_offset", KindF32},
	{"noise_lacunarity", KindF32},
	{"power_bias", KindF32},
	{"flatness", KindF32},
	{"steepness", KindF32},
	{"mix", KindF32},
	{"noise_warp_amount", KindF32},
	{"noise_warp_scale", KindF32},
	{"domain_warp_1_amount_1", KindF32},
	{"domain_warp_1_scale_1", KindF32},
	{"domain_warp_1_amount_2", KindF32},
	{"domain_warp_1_scale_2", KindF32},
	{"noise_weight", KindF32},
	{"ca_thresh", KindF32},
	{"ca_search_radius", KindF32},
	{"ca_edge_pow", KindF32},
	{"edge_suppress_mix", KindF32},
	{"domain_warp_2_amount_1", KindF32},
	{"domain_warp_2_scale_1", KindF32},
	{"domain_warp_2_amount_2", KindF32},
	{"domain_warp_2_scale_2", KindF32},
	{"misc_f", KindF32},
	{"misc_i", KindI32},
}

// Fields returns the layout table of the uniform block.
func Fields() []Field {
	out := make([]Field, len(fieldNames))
	for i, f := range fieldNames {
		out[i] = Field{Name: f.name, Offset: uint64(i) * 4, Kind: f.kind}
	}
	return out
}

// Size returns the byte size of the uniform block, rounded up to the
// 16-byte struct alignment of the uniform address space.
func Size() uint64 {
	raw := uint64(len(fieldNames)) * 4
	return (raw + 15) &^ 15
}

// Bytes serializes p in little-endian order matching the WGSL Params struct.
func (p Params) Bytes() []byte {
	buf := make([]byte, Size())
	le := binary.LittleEndian
	off := 0
	u32 := func(v uint32) {
		le.PutUint32(buf[off:off+4], v)
		off += 4
	}
	f32 := func(v float32) { u32(math.Float32bits(v)) }
	warp := func(w DomainWarp) {
		f32(w.Amount1)
		f32(w.Scale1)
		f32(w.Amount2)
		f32(w.Scale2)
	}

	u32(p.Dimensions)
	f32(p.Radius)
	u32(p.NoiseSeed)
	f32(p.NoiseFreq)
	f32(p.NoiseAmplitude)
	f32(p.NoiseOffset)
	f32(p.NoiseLacunarity)
	f32(p.PowerBias)
	f32(p.Flatness)
	f32(p.Steepness)
	f32(p.Mix)
	f32(p.NoiseWarpAmount)
	f32(p.NoiseWarpScale)
	warp(p.DomainWarp1)
	f32(p.NoiseWeight)
	f32(p.CAThresh)
	f32(p.CASearchRadius)
	f32(p.CAEdgePow)
	f32(p.EdgeSuppressMix)
	warp(p.DomainWarp2)
	f32(p.MiscF)
	u32(uint32(p.MiscI)) //nolint:gosec // bit pattern reinterpretation
	return buf
}
