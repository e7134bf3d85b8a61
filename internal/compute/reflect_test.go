// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import (
	"errors"
	"strings"
	"testing"
)

func TestReflectBindings(t *testing.T) {
	src := `
// @group(0) @binding(9) var<uniform> commented: Params;
/* @group(0) @binding(8) var<uniform> also_commented: Params; */
@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> a: array<vec4<f32>>;
@group(0) @binding(2) var<storage> b: array<u32>;
@group(0)@binding(3) var<storage, read_write> c: array<u32>;
@group(1) @binding(0) var tex: texture_2d<f32>;
`
	got, err := ReflectBindings(src)
	if err != nil {
		t.Fatal(err)
	}
	want := []ShaderBinding{
		{Group: 0, Binding: 0, Name: "params", Type: "Params", Access: AccessUniform},
		{Group: 0, Binding: 1, Name: "a", Type: "array<vec4<f32>>", Access: AccessRead},
		{Group: 0, Binding: 2, Name: "b", Type: "array<u32>", Access: AccessRead},
		{Group: 0, Binding: 3, Name: "c", Type: "array<u32>", Access: AccessReadWrite},
		{Group: 1, Binding: 0, Name: "tex", Type: "texture_2d<f32>", Access: AccessTexture},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d bindings, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("binding %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReflectUnsupported(t *testing.T) {
	_, err := ReflectBindings("@group(0) @binding(0) var samp: sampler;")
	if err == nil {
		t.Fatal("expected error for sampler binding")
	}
}

func TestLayoutShape(t *testing.T) {
	spec := DefaultResourceSpec(64)
	main := MainLayout(spec)
	// params + 3 field pairs + 2 buffer pairs + gradient
	if len(main.Slots) != 1+2*3+2*2+1 {
		t.Fatalf("main layout has %d slots", len(main.Slots))
	}
	for i, s := range main.Slots {
		if s.Binding != uint32(i) {
			t.Errorf("slot %d has binding %d", i, s.Binding)
		}
	}
	if main.Slots[0].Resource != ResourceUniform || main.Slots[len(main.Slots)-1].Resource != ResourceGradient {
		t.Error("main layout must start with the uniform and end with the gradient")
	}

	extract := ExtractLayout(spec)
	if len(extract.Slots) != 1+3+2+2 {
		t.Fatalf("extract layout has %d slots", len(extract.Slots))
	}
	last := extract.Slots[len(extract.Slots)-1]
	if last.Resource != ResourceResult || last.Access != AccessReadWrite {
		t.Errorf("last extract slot = %+v", last)
	}
	for _, s := range extract.Slots {
		if s.Role == RoleDest {
			t.Errorf("extract slot %q is a destination", s.Name)
		}
	}
}

func TestDefaultShadersMatchLayout(t *testing.T) {
	spec := DefaultResourceSpec(1024)
	main := MainLayout(spec)
	for i, p := range DefaultPasses(spec) {
		if err := ValidateShader(main, i, p.Name, p.Shader.Source); err != nil {
			t.Errorf("pass %d: %v", i, err)
		}
	}
	ex := ExtractShader(spec)
	if err := ValidateShader(ExtractLayout(spec), -1, ex.Label, ex.Source); err != nil {
		t.Errorf("extract: %v", err)
	}
}

func TestDefaultPasses(t *testing.T) {
	passes := DefaultPasses(DefaultResourceSpec(64))
	want := []struct {
		name  string
		iters int
	}{
		{"generate_circle", 1},
		{"domain_warp", 5},
		{"pre_ca_noise", 1},
		{"ca", 16},
		{"post_ca_warp", 1},
	}
	if len(passes) != len(want) {
		t.Fatalf("got %d passes", len(passes))
	}
	for i, w := range want {
		if passes[i].Name != w.name || passes[i].Iterations != w.iters {
			t.Errorf("pass %d = %s x%d, want %s x%d", i, passes[i].Name, passes[i].Iterations, w.name, w.iters)
		}
		if !strings.Contains(passes[i].Shader.Source, "fn carry(idx: u32)") {
			t.Errorf("pass %d has no carry helper", i)
		}
	}
}

func TestValidateShaderMismatch(t *testing.T) {
	spec := DefaultResourceSpec(64)
	layout := MainLayout(spec)
	entry := "\n@compute @workgroup_size(16, 16)\nfn main(@builtin(global_invocation_id) id: vec3<u32>) {}\n"

	tests := []struct {
		name   string
		src    string
		reason string
	}{
		{
			name:   "binding outside layout",
			src:    "@group(0) @binding(40) var<storage, read> x: array<u32>;" + entry,
			reason: "binding 40",
		},
		{
			name:   "wrong access",
			src:    "@group(0) @binding(1) var<storage, read_write> x: array<vec4<f32>>;" + entry,
			reason: "binding 1",
		},
		{
			name:   "wrong group",
			src:    "@group(1) @binding(0) var<uniform> params: Params;" + entry,
			reason: "group 1",
		},
		{
			name: "duplicate binding",
			src: "@group(0) @binding(1) var<storage, read> x: array<vec4<f32>>;\n" +
				"@group(0) @binding(1) var<storage, read> y: array<vec4<f32>>;" + entry,
			reason: "declared twice",
		},
		{
			name:   "entry point in block comment",
			src:    "@group(0) @binding(0) var<uniform> params: Params;\n/*" + entry + "*/\nfn helper() {}",
			reason: "entry point",
		},
		{
			name:   "missing entry point",
			src:    "@group(0) @binding(0) var<uniform> params: Params;\nfn helper() {}",
			reason: "entry point",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateShader(layout, 3, "custom", tt.src)
			if !errors.Is(err, ErrLayoutMismatch) {
				t.Fatalf("err = %v, want ErrLayoutMismatch", err)
			}
			var le *LayoutError
			if !errors.As(err, &le) || le.Pass != 3 {
				t.Fatalf("err = %v, want LayoutError for pass 3", err)
			}
			msg := err.Error()
			if !strings.HasPrefix(msg, `pass 3 "custom"`) || !strings.Contains(msg, tt.reason) {
				t.Errorf("message %q does not name pass 3 and %q", msg, tt.reason)
			}
		})
	}
}

func TestValidateShaderSubset(t *testing.T) {
	src := "@group(0) @binding(0) var<uniform> params: Params;\n" +
		"@compute @workgroup_size(16, 16)\nfn main() {}\n"
	if err := ValidateShader(MainLayout(DefaultResourceSpec(64)), 0, "tiny", src); err != nil {
		t.Errorf("shader using a subset of slots rejected: %v", err)
	}
}

func TestPreludeCarry(t *testing.T) {
	spec := DefaultResourceSpec(64)
	p := Prelude(MainLayout(spec), spec)
	for _, want := range []string{
		"field0_dst[idx] = field0_src[idx];",
		"field2_dst[idx] = field2_src[idx];",
		"grid_dst[idx * 16u + k] = grid_src[idx * 16u + k];",
		"strip_dst[idx * 4u + k] = strip_src[idx * 4u + k];",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prelude missing %q", want)
		}
	}
	if strings.Contains(Prelude(ExtractLayout(spec), spec), "fn carry") {
		t.Error("extract prelude must not define carry")
	}
}
