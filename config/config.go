// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads and saves terrain settings as JSON.
//
// A missing settings file is not an error: Load returns the defaults. Fields
// absent from the file keep their default values.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gogpu/terrain"
	"github.com/gogpu/terrain/gradient"
	"github.com/gogpu/terrain/params"
)

// ErrUnknownPass is returned for a pass entry with neither a shader file nor
// a built-in of the same name.
var ErrUnknownPass = errors.New("config: unknown built-in pass")

// PassEntry is one pass of the chain as stored on disk.
type PassEntry struct {
	Name string `json:"name"`

	// Shader is a WGSL body file, relative to the settings file. Empty
	// selects the built-in pass called Name.
	Shader string `json:"shader,omitempty"`

	Iterations int `json:"iterations"`

	// Enabled defaults to true when omitted.
	Enabled *bool `json:"enabled,omitempty"`
}

// IsEnabled reports whether the pass runs.
func (e PassEntry) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// Settings is the complete on-disk configuration.
type Settings struct {
	Params   params.Params     `json:"params"`
	Passes   []PassEntry       `json:"passes"`
	Gradient gradient.Gradient `json:"gradient"`

	// ShaderValidation compiles every pass with naga before use.
	ShaderValidation bool `json:"shader_validation"`

	// CompileWorkers bounds concurrent pipeline compilation. Zero selects
	// the engine default.
	CompileWorkers int `json:"compile_workers,omitempty"`
}

// Default returns the built-in settings.
func Default() Settings {
	var passes []PassEntry
	for _, p := range terrain.DefaultPasses() {
		passes = append(passes, PassEntry{Name: p.Name, Iterations: p.Iterations})
	}
	return Settings{
		Params:   params.Default(),
		Passes:   passes,
		Gradient: gradient.Default(),
	}
}

// Load reads settings from path. A missing file yields Default. A passes
// list that is present replaces the default chain, even when empty. A
// gradient without stops selects the default gradient.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes settings from JSON, applying defaults for absent fields.
func Parse(data []byte) (Settings, error) {
	s := Default()
	defPasses, defGradient := s.Passes, s.Gradient
	s.Passes, s.Gradient = nil, gradient.Gradient{}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("config: parse: %w", err)
	}

	if s.Passes == nil {
		s.Passes = defPasses
	}
	if len(s.Gradient.Stops) == 0 {
		s.Gradient = defGradient
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the settings without touching the filesystem.
func (s Settings) Validate() error {
	if err := s.Params.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for i, p := range s.Passes {
		if p.Name == "" {
			return fmt.Errorf("config: pass %d has no name", i)
		}
		if p.Iterations < 0 {
			return fmt.Errorf("config: pass %d %q: %w", i, p.Name, terrain.ErrNegativeIterations)
		}
		if p.Shader == "" {
			if _, ok := terrain.BuiltinPass(p.Name, 0); !ok {
				return fmt.Errorf("%w: pass %d %q", ErrUnknownPass, i, p.Name)
			}
		}
	}
	if s.CompileWorkers < 0 {
		return fmt.Errorf("config: compile_workers must not be negative, got %d", s.CompileWorkers)
	}
	return nil
}

// Save writes s to path as indented JSON. The file is replaced atomically.
func Save(path string, s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".settings-*.json")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ResolvePasses resolves the pass entries into descriptors. Shader paths are
// relative to dir. Disabled entries keep their slot with zero iterations.
func (s Settings) ResolvePasses(dir string) ([]terrain.PassDescriptor, error) {
	out := make([]terrain.PassDescriptor, 0, len(s.Passes))
	for i, e := range s.Passes {
		iters := e.Iterations
		if !e.IsEnabled() {
			iters = 0
		}
		if e.Shader == "" {
			p, ok := terrain.BuiltinPass(e.Name, iters)
			if !ok {
				return nil, fmt.Errorf("%w: pass %d %q", ErrUnknownPass, i, e.Name)
			}
			out = append(out, p)
			continue
		}
		body, err := os.ReadFile(s.ShaderPath(dir, i))
		if err != nil {
			return nil, fmt.Errorf("config: pass %d %q: %w", i, e.Name, err)
		}
		p := terrain.NewPass(e.Name, string(body), iters)
		if err := terrain.ValidatePass(i, p); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// ShaderPath returns the resolved shader file of pass i, or "" for a
// built-in pass.
func (s Settings) ShaderPath(dir string, i int) string {
	if i < 0 || i >= len(s.Passes) || s.Passes[i].Shader == "" {
		return ""
	}
	if filepath.IsAbs(s.Passes[i].Shader) {
		return s.Passes[i].Shader
	}
	return filepath.Join(dir, s.Passes[i].Shader)
}

// ShaderFiles returns every shader file referenced by s.
func (s Settings) ShaderFiles(dir string) []string {
	var files []string
	for i := range s.Passes {
		if p := s.ShaderPath(dir, i); p != "" {
			files = append(files, p)
		}
	}
	return files
}
