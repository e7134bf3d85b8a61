// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gradient implements the color gradient that maps terrain height
// to color in the extraction pass.
//
// A Gradient is a set of stops sampled by one of two interpolation methods.
// The compute layer never inspects stops directly; it only consumes the
// fixed-length row produced by [Gradient.LinearEval].
package gradient

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"image/color"
	"math"
	"sort"
)

// Errors returned by LinearEval.
var (
	ErrEmpty       = errors.New("gradient: no stops")
	ErrSampleCount = errors.New("gradient: sample count must be at least 2")
)

// Color is a non-premultiplied RGBA color with components in [0, 1].
type Color struct {
	R float32 `json:"r"`
	G float32 `json:"g"`
	B float32 `json:"b"`
	A float32 `json:"a"`
}

// Common colors.
var (
	Blue  = Color{0, 0, 1, 1}
	Green = Color{0, 1, 0, 1}
	Red   = Color{1, 0, 0, 1}
)

// Opaque returns c with alpha forced to 1.
func (c Color) Opaque() Color {
	c.A = 1
	return c
}

// Lerp linearly interpolates between c and other.
func (c Color) Lerp(other Color, t float32) Color {
	return Color{
		R: c.R + (other.R-c.R)*t,
		G: c.G + (other.G-c.G)*t,
		B: c.B + (other.B-c.B)*t,
		A: c.A + (other.A-c.A)*t,
	}
}

// NRGBA converts c to 8-bit components with rounding and clamping.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: to8(c.R), G: to8(c.G), B: to8(c.B), A: to8(c.A)}
}

func to8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}

// Method selects how the gradient is sampled between stops.
type Method int

const (
	// Constant uses the nearest stop to the left of the sample, or the
	// first stop when nothing lies to the left.
	Constant Method = iota
	// Linear interpolates between the neighbouring stops and clamps to the
	// end stops outside their range.
	Linear
)

// String returns the method name.
func (m Method) String() string {
	switch m {
	case Constant:
		return "constant"
	case Linear:
		return "linear"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// MarshalText encodes m by name.
func (m Method) MarshalText() ([]byte, error) {
	switch m {
	case Constant, Linear:
		return []byte(m.String()), nil
	default:
		return nil, fmt.Errorf("gradient: unknown method %d", int(m))
	}
}

// UnmarshalText decodes a method name.
func (m *Method) UnmarshalText(text []byte) error {
	switch string(text) {
	case "constant":
		*m = Constant
	case "linear":
		*m = Linear
	default:
		return fmt.Errorf("gradient: unknown method %q", text)
	}
	return nil
}

// Stop is a color at a position in [0, 1].
type Stop struct {
	Position float32 `json:"position"`
	Color    Color   `json:"color"`
}

// Gradient is an ordered set of stops plus an interpolation method.
type Gradient struct {
	Method Method `json:"method"`
	Stops  []Stop `json:"stops"`
}

// Default returns the startup gradient: blue, green, red.
func Default() Gradient {
	return Gradient{
		Method: Linear,
		Stops: []Stop{
			{Position: 0, Color: Blue},
			{Position: 0.5, Color: Green},
			{Position: 1, Color: Red},
		},
	}
}

// Sort orders the stops by ascending position. Equal positions keep their
// relative order.
func (g *Gradient) Sort() {
	sort.SliceStable(g.Stops, func(i, j int) bool {
		return g.Stops[i].Position < g.Stops[j].Position
	})
}

// sorted returns a sorted copy of the stops, optionally with alpha forced to 1.
func (g Gradient) sorted(opaque bool) []Stop {
	out := make([]Stop, len(g.Stops))
	copy(out, g.Stops)
	if opaque {
		for i := range out {
			out[i].Color = out[i].Color.Opaque()
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}

// insertionPoint returns the index after the last stop whose position is
// less than or equal to x.
func insertionPoint(stops []Stop, x float32) int {
	return sort.Search(len(stops), func(i int) bool {
		return stops[i].Position > x
	})
}

// sampleSorted samples pre-sorted stops. stops must be non-empty.
func sampleSorted(stops []Stop, m Method, x float32) Color {
	n := insertionPoint(stops, x)
	if m == Constant {
		if n == 0 {
			return stops[0].Color
		}
		return stops[n-1].Color
	}
	switch n {
	case 0:
		return stops[0].Color
	case len(stops):
		return stops[len(stops)-1].Color
	}
	s0, s1 := stops[n-1], stops[n]
	return s0.Color.Lerp(s1.Color, (x-s0.Position)/(s1.Position-s0.Position))
}

// Sample returns the gradient color at x. ok is false if there are no stops.
func (g Gradient) Sample(x float32) (c Color, ok bool) {
	if len(g.Stops) == 0 {
		return Color{}, false
	}
	return sampleSorted(g.sorted(false), g.Method, x), true
}

// LinearEval samples n evenly spaced points from 0 to 1 inclusive. With
// opaque set, stop alpha is discarded before interpolation.
func (g Gradient) LinearEval(n int, opaque bool) ([]Color, error) {
	if len(g.Stops) == 0 {
		return nil, ErrEmpty
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrSampleCount, n)
	}
	stops := g.sorted(opaque)
	out := make([]Color, n)
	for i := range out {
		out[i] = sampleSorted(stops, g.Method, float32(i)/float32(n-1))
	}
	return out, nil
}

// Fingerprint returns a hash of the method and stops. Equal gradients have
// equal fingerprints.
func (g Gradient) Fingerprint() uint64 {
	h := fnv.New64a()
	var buf [4]byte
	put := func(v float32) {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		_, _ = h.Write(buf[:])
	}
	put(float32(g.Method))
	for _, s := range g.Stops {
		put(s.Position)
		put(s.Color.R)
		put(s.Color.G)
		put(s.Color.B)
		put(s.Color.A)
	}
	return h.Sum64()
}
