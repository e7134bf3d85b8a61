// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/gogpu/terrain"
	"github.com/gogpu/terrain/gradient"
	"github.com/gogpu/terrain/params"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(s, Default()) {
		t.Errorf("Load of missing file = %+v, want defaults", s)
	}
}

func TestParsePartial(t *testing.T) {
	s, err := Parse([]byte(`{"params": {"noise_seed": 42, "dimensions": 512}}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Params.NoiseSeed != 42 || s.Params.Dimensions != 512 {
		t.Errorf("params = %+v", s.Params)
	}
	if s.Params.CAThresh != params.Default().CAThresh {
		t.Errorf("absent field lost its default: ca_thresh = %v", s.Params.CAThresh)
	}
	if len(s.Passes) != len(Default().Passes) {
		t.Errorf("absent passes: got %d entries", len(s.Passes))
	}
	if !reflect.DeepEqual(s.Gradient, gradient.Default()) {
		t.Errorf("absent gradient: got %+v", s.Gradient)
	}
}

func TestParseEmptyPassList(t *testing.T) {
	s, err := Parse([]byte(`{"passes": []}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Passes == nil || len(s.Passes) != 0 {
		t.Errorf("explicit empty list became %v", s.Passes)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr error
		substr  string
	}{
		{"bad dimensions", `{"params": {"dimensions": 100}}`, params.ErrInvalidDimensions, ""},
		{"negative iterations", `{"passes": [{"name": "ca", "iterations": -1}]}`, terrain.ErrNegativeIterations, "pass 0"},
		{"unknown builtin", `{"passes": [{"name": "erosion", "iterations": 1}]}`, ErrUnknownPass, "erosion"},
		{"unknown field", `{"paramz": {}}`, nil, "unknown field"},
		{"unknown method", `{"gradient": {"method": "cubic", "stops": []}}`, nil, "cubic"},
		{"nameless pass", `{"passes": [{"iterations": 1}]}`, nil, "no name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.json))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.substr != "" && !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("err = %q, want it to contain %q", err, tt.substr)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s := Default()
	s.Params.Radius = 0.45
	s.Gradient.Method = gradient.Constant
	off := false
	s.Passes[1].Enabled = &off
	s.CompileWorkers = 3

	if err := Save(path, s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, s)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"method": "constant"`) {
		t.Errorf("gradient method not stored by name:\n%s", data)
	}
}

func TestResolvePasses(t *testing.T) {
	dir := t.TempDir()
	body := "@compute @workgroup_size(16, 16)\n" +
		"fn main(@builtin(global_invocation_id) id: vec3<u32>) {\n" +
		"    if (!in_bounds(id)) { return; }\n" +
		"    carry(cell_index(id));\n" +
		"}\n"
	if err := os.WriteFile(filepath.Join(dir, "identity.wgsl"), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	off := false
	s := Default()
	s.Passes = []PassEntry{
		{Name: "generate_circle", Iterations: 1},
		{Name: "identity", Shader: "identity.wgsl", Iterations: 3},
		{Name: "ca", Iterations: 16, Enabled: &off},
	}
	passes, err := s.ResolvePasses(dir)
	if err != nil {
		t.Fatalf("ResolvePasses failed: %v", err)
	}
	want := []int{1, 3, 0}
	for i, p := range passes {
		if p.Iterations != want[i] {
			t.Errorf("pass %d iterations = %d, want %d", i, p.Iterations, want[i])
		}
	}
	if !strings.Contains(passes[1].Shader.Source, "carry(cell_index(id));") {
		t.Error("custom body not included in shader source")
	}
	if files := s.ShaderFiles(dir); len(files) != 1 || files[0] != filepath.Join(dir, "identity.wgsl") {
		t.Errorf("ShaderFiles = %v", files)
	}
}

func TestResolvePassesBadShader(t *testing.T) {
	dir := t.TempDir()
	bad := "@group(0) @binding(30) var<storage, read> x: array<u32>;\n" +
		"@compute @workgroup_size(16, 16)\nfn main() {}\n"
	if err := os.WriteFile(filepath.Join(dir, "bad.wgsl"), []byte(bad), 0o600); err != nil {
		t.Fatal(err)
	}
	s := Default()
	s.Passes = []PassEntry{
		{Name: "generate_circle", Iterations: 1},
		{Name: "bad", Shader: "bad.wgsl", Iterations: 1},
	}
	_, err := s.ResolvePasses(dir)
	var le *terrain.LayoutError
	if !errors.As(err, &le) || le.Pass != 1 {
		t.Errorf("err = %v, want LayoutError for pass 1", err)
	}

	s.Passes[1].Shader = "missing.wgsl"
	if _, err := s.ResolvePasses(dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}
