// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package compute

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/terrain/gradient"
	"github.com/gogpu/terrain/params"
)

func TestGradientPayload(t *testing.T) {
	data, err := GradientPayload(gradient.Default())
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != GradientSize*GradientSize*4 {
		t.Fatalf("payload is %d bytes", len(data))
	}
	row := data[:gradientRowBytes]
	if !bytes.Equal(row[:4], []byte{0, 0, 255, 255}) {
		t.Errorf("first texel = %v, want blue", row[:4])
	}
	last := row[gradientRowBytes-4:]
	if !bytes.Equal(last, []byte{255, 0, 0, 255}) {
		t.Errorf("last texel = %v, want red", last)
	}
	for y := 1; y < GradientSize; y++ {
		if !bytes.Equal(data[y*gradientRowBytes:(y+1)*gradientRowBytes], row) {
			t.Fatalf("row %d differs from row 0", y)
		}
	}
}

func TestGradientPayloadForcesOpaque(t *testing.T) {
	g := gradient.Gradient{
		Method: gradient.Linear,
		Stops:  []gradient.Stop{{Position: 0, Color: gradient.Color{R: 1, A: 0}}},
	}
	data, err := GradientPayload(g)
	if err != nil {
		t.Fatal(err)
	}
	for i := 3; i < gradientRowBytes; i += 4 {
		if data[i] != 255 {
			t.Fatalf("texel %d alpha = %d", i/4, data[i])
		}
	}
}

func TestGradientPayloadEmpty(t *testing.T) {
	if _, err := GradientPayload(gradient.Gradient{}); !errors.Is(err, gradient.ErrEmpty) {
		t.Errorf("err = %v, want gradient.ErrEmpty", err)
	}
}

func TestUploads(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	rs, err := Allocate(device, queue, DefaultResourceSpec(64))
	if err != nil {
		t.Fatal(err)
	}
	defer rs.Destroy()

	if err := UploadUniform(queue, rs, params.Default()); err != nil {
		t.Fatal(err)
	}

	lut := NewGradientCache(2)
	g := gradient.Default()
	if err := UploadGradient(queue, rs, g, lut); err != nil {
		t.Fatal(err)
	}
	if err := UploadGradient(queue, rs, g, lut); err != nil {
		t.Fatal(err)
	}
	st := lut.Stats()
	if st.Len != 1 || st.Hits != 1 || st.Misses != 1 {
		t.Errorf("cache stats = %+v, want 1 entry, 1 hit, 1 miss", st)
	}

	if err := UploadGradient(queue, rs, gradient.Gradient{}, nil); err == nil {
		t.Error("empty gradient uploaded")
	}
}

// foreignBuffer is a buffer the noop queue does not recognize.
type foreignBuffer struct{}

func (foreignBuffer) Destroy() {}
func (foreignBuffer) NativeHandle() uintptr { return 0 }

func TestUploadUniformWriteError(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	rs, err := Allocate(device, queue, DefaultResourceSpec(64))
	if err != nil {
		t.Fatal(err)
	}
	defer rs.Destroy()

	uniform := rs.Uniform
	rs.Uniform = foreignBuffer{}
	defer func() { rs.Uniform = uniform }()

	if err := UploadUniform(queue, rs, params.Default()); err == nil {
		t.Error("write into an unknown buffer reported success")
	}
}
