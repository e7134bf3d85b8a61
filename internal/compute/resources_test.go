// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package compute

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

func TestAllocate(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	spec := DefaultResourceSpec(64)
	rs, err := Allocate(device, queue, spec)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	defer rs.Destroy()

	if len(rs.Fields) != 3 || len(rs.Buffers) != 2 {
		t.Fatalf("got %d field pairs and %d buffer pairs", len(rs.Fields), len(rs.Buffers))
	}
	for _, p := range append(append([]Pair{}, rs.Fields...), rs.Buffers...) {
		if p.Buffers[0] == nil || p.Buffers[1] == nil {
			t.Errorf("pair %s has a nil side", p.Name)
		}
	}
	if rs.Fields[0].Size != 64*64*16 {
		t.Errorf("field size = %d, want %d", rs.Fields[0].Size, 64*64*16)
	}
	if rs.Buffers[0].Size != 64*64*64 || rs.Buffers[1].Size != 64*64*16 {
		t.Errorf("buffer sizes = %d, %d", rs.Buffers[0].Size, rs.Buffers[1].Size)
	}
	if rs.Uniform == nil || rs.Gradient == nil || rs.GradientView == nil ||
		rs.ResultBuffer == nil || rs.Result == nil || rs.ResultView == nil {
		t.Error("fixed resources missing")
	}
	if rs.ResultSize() != 64*64*4 {
		t.Errorf("ResultSize = %d", rs.ResultSize())
	}
	if w, h := rs.Dimensions(); w != 64 || h != 64 {
		t.Errorf("Dimensions = %dx%d", w, h)
	}
}

func TestAllocateGenerations(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	a, err := Allocate(device, queue, DefaultResourceSpec(64))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Destroy()
	b, err := Allocate(device, queue, DefaultResourceSpec(64))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Destroy()

	if b.Generation() <= a.Generation() {
		t.Errorf("generations not increasing: %d then %d", a.Generation(), b.Generation())
	}
}

func TestAllocateInvalid(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	tests := []struct {
		name string
		spec ResourceSpec
	}{
		{"zero size", ResourceSpec{FieldPairs: 1}},
		{"unaligned", ResourceSpec{Width: 100, Height: 64, FieldPairs: 1}},
		{"no fields", ResourceSpec{Width: 64, Height: 64}},
		{"odd buffer stride", ResourceSpec{Width: 64, Height: 64, FieldPairs: 1,
			BufferPairs: []BufferPairSpec{{Name: "x", BytesPerCell: 6}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Allocate(device, queue, tt.spec); !errors.Is(err, ErrInvalidSpec) {
				t.Errorf("err = %v, want ErrInvalidSpec", err)
			}
		})
	}
}

func TestResourceSetDestroyIdempotent(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	rs, err := Allocate(device, queue, DefaultResourceSpec(64))
	if err != nil {
		t.Fatal(err)
	}
	rs.Destroy()
	rs.Destroy()
	if rs.Uniform != nil || rs.Fields != nil {
		t.Error("Destroy left resources behind")
	}

	var nilSet *ResourceSet
	nilSet.Destroy()
}
