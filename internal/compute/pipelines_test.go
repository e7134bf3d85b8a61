// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package compute

import (
	"errors"
	"testing"
)

func TestPipelineBuilderCompilesChain(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	spec := DefaultResourceSpec(64)
	b, err := NewPipelineBuilder(device, spec, WithCompileWorkers(1))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	passes := DefaultPasses(spec)
	if err := b.Build(passes, ExtractShader(spec)); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	b.Wait()

	for i := range passes {
		p, r := b.Pipeline(i)
		if r != Ready || p == nil {
			t.Errorf("pass %d: readiness %v", i, r)
		}
		if err := b.Err(i); err != nil {
			t.Errorf("pass %d: %v", i, err)
		}
	}
	if p, r := b.ExtractPipeline(); r != Ready || p == nil {
		t.Errorf("extract: readiness %v", r)
	}
	if _, r := b.Pipeline(len(passes)); r == Ready {
		t.Error("pass outside the chain reported ready")
	}
}

func TestPipelineBuilderRebuild(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	spec := DefaultResourceSpec(64)
	b, err := NewPipelineBuilder(device, spec)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	passes := DefaultPasses(spec)
	for range 3 {
		if err := b.Build(passes, ExtractShader(spec)); err != nil {
			t.Fatal(err)
		}
		b.Wait()
	}
	if _, r := b.Pipeline(0); r != Ready {
		t.Errorf("readiness after rebuild = %v", r)
	}
}

func TestPipelineBuilderClose(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	spec := DefaultResourceSpec(64)
	b, err := NewPipelineBuilder(device, spec)
	if err != nil {
		t.Fatal(err)
	}
	b.Close()
	b.Close()

	if err := b.Build(DefaultPasses(spec), ExtractShader(spec)); !errors.Is(err, ErrBuilderClosed) {
		t.Errorf("Build after Close: err = %v, want ErrBuilderClosed", err)
	}
}
