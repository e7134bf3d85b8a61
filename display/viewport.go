// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package display

import (
	"image"
	"image/color"
	"math"
	"time"

	"golang.org/x/image/draw"
)

// Default camera speeds.
const (
	DefaultMoveSpeed = 500.0 // cells per second
	DefaultZoomSpeed = 1.0   // scale units per second
	minScale         = 1.0 / 64
)

// Controls is the camera input held during one update.
type Controls struct {
	Up, Down, Left, Right bool

	// ZoomOut grows the visible area, ZoomIn shrinks it.
	ZoomOut, ZoomIn bool
}

// Key names understood by ControlsFromKeys.
var keyBindings = map[string]func(*Controls){
	"W":          func(c *Controls) { c.Up = true },
	"ArrowUp":    func(c *Controls) { c.Up = true },
	"S":          func(c *Controls) { c.Down = true },
	"ArrowDown":  func(c *Controls) { c.Down = true },
	"A":          func(c *Controls) { c.Left = true },
	"ArrowLeft":  func(c *Controls) { c.Left = true },
	"D":          func(c *Controls) { c.Right = true },
	"ArrowRight": func(c *Controls) { c.Right = true },
	"Q":          func(c *Controls) { c.ZoomOut = true },
	"Z":          func(c *Controls) { c.ZoomOut = true },
	"E":          func(c *Controls) { c.ZoomIn = true },
	"X":          func(c *Controls) { c.ZoomIn = true },
}

// ControlsFromKeys maps held key names (W/A/S/D, arrows, Q/Z, E/X) to
// controls. Unknown names are ignored.
func ControlsFromKeys(held ...string) Controls {
	var c Controls
	for _, k := range held {
		if bind, ok := keyBindings[k]; ok {
			bind(&c)
		}
	}
	return c
}

// Viewport is a 2D camera over the result image.
//
// X and Y offset the camera from the image center in cells, with Y growing
// upward. Scale is the number of cells per output pixel, so a larger scale
// shows more of the image.
type Viewport struct {
	X, Y      float64
	Scale     float64
	MoveSpeed float64
	ZoomSpeed float64
}

// NewViewport returns a centered viewport at scale 1.
func NewViewport() Viewport {
	return Viewport{Scale: 1, MoveSpeed: DefaultMoveSpeed, ZoomSpeed: DefaultZoomSpeed}
}

// Update advances the camera by dt under the given controls. Diagonal
// movement is normalized.
func (v *Viewport) Update(c Controls, dt time.Duration) {
	secs := dt.Seconds()
	var dx, dy, zoom float64
	if c.Up {
		dy++
	}
	if c.Down {
		dy--
	}
	if c.Left {
		dx--
	}
	if c.Right {
		dx++
	}
	if c.ZoomOut {
		zoom++
	}
	if c.ZoomIn {
		zoom--
	}
	if l := math.Hypot(dx, dy); l > 0 {
		dx, dy = dx/l, dy/l
	}
	v.X += dx * v.MoveSpeed * secs
	v.Y += dy * v.MoveSpeed * secs
	v.Scale = max(v.Scale+zoom*v.ZoomSpeed*secs, minScale)
}

// Source returns the region of a w x h image visible in an outW x outH
// view. The region may extend past the image bounds.
func (v Viewport) Source(w, h, outW, outH int) image.Rectangle {
	scale := v.Scale
	if scale <= 0 {
		scale = 1
	}
	cx := float64(w)/2 + v.X
	cy := float64(h)/2 - v.Y
	hw := float64(outW) * scale / 2
	hh := float64(outH) * scale / 2
	return image.Rect(
		int(math.Round(cx-hw)), int(math.Round(cy-hh)),
		int(math.Round(cx+hw)), int(math.Round(cy+hh)),
	)
}

// Background fills the parts of a view outside the image.
var Background = color.NRGBA{A: 255}

// Render draws the visible part of src into dst, scaling with nearest
// neighbour sampling when zoomed in and Catmull-Rom when zoomed out.
func (v Viewport) Render(dst draw.Image, src image.Image) {
	out := dst.Bounds()
	draw.Draw(dst, out, image.NewUniform(Background), image.Point{}, draw.Src)

	sb := src.Bounds()
	sr := v.Source(sb.Dx(), sb.Dy(), out.Dx(), out.Dy()).Add(sb.Min)
	visible := sr.Intersect(sb)
	if visible.Empty() || sr.Empty() {
		return
	}

	// Map the visible source region back to output pixels.
	fx := float64(out.Dx()) / float64(sr.Dx())
	fy := float64(out.Dy()) / float64(sr.Dy())
	dr := image.Rect(
		out.Min.X+int(math.Round(float64(visible.Min.X-sr.Min.X)*fx)),
		out.Min.Y+int(math.Round(float64(visible.Min.Y-sr.Min.Y)*fy)),
		out.Min.X+int(math.Round(float64(visible.Max.X-sr.Min.X)*fx)),
		out.Min.Y+int(math.Round(float64(visible.Max.Y-sr.Min.Y)*fy)),
	)
	if dr.Empty() {
		return
	}

	var scaler draw.Scaler = draw.NearestNeighbor
	if v.Scale > 1 {
		scaler = draw.CatmullRom
	}
	scaler.Scale(dst, dr, src, visible, draw.Src, nil)
}
