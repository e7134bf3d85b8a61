// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package display

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
)

// ErrPixelCount is returned when a pixel buffer does not match its size.
var ErrPixelCount = errors.New("display: pixel buffer does not match dimensions")

// Image wraps tightly packed RGBA8 rows without copying.
func Image(pixels []byte, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height*4 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrPixelCount, len(pixels), width, height)
	}
	return &image.NRGBA{
		Pix:    pixels,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}, nil
}

// EncodePNG writes img to w, viewed through v at outW x outH. A zero
// output size keeps the image size.
func EncodePNG(w io.Writer, img image.Image, v Viewport, outW, outH int) error {
	b := img.Bounds()
	if outW <= 0 || outH <= 0 {
		outW, outH = b.Dx(), b.Dy()
	}
	dst := image.NewNRGBA(image.Rect(0, 0, outW, outH))
	v.Render(dst, img)
	if err := png.Encode(w, dst); err != nil {
		return fmt.Errorf("display: encode png: %w", err)
	}
	return nil
}

// SavePNG writes img to path, viewed through v at outW x outH.
func SavePNG(path string, img image.Image, v Viewport, outW, outH int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("display: %w", err)
	}
	if err := EncodePNG(f, img, v, outW, outH); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	return nil
}
