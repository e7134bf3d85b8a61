// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package config

import (
	"github.com/gogpu/terrain"
)

// EngineConfig resolves s into an engine configuration. Shader paths are
// relative to dir.
func (s Settings) EngineConfig(dir string) (terrain.Config, error) {
	passes, err := s.ResolvePasses(dir)
	if err != nil {
		return terrain.Config{}, err
	}
	return terrain.Config{
		Params:   s.Params,
		Passes:   passes,
		Gradient: s.Gradient,
	}, nil
}

// EngineOptions returns the engine options selected by s.
func (s Settings) EngineOptions() []terrain.EngineOption {
	opts := []terrain.EngineOption{terrain.WithShaderValidation(s.ShaderValidation)}
	if s.CompileWorkers > 0 {
		opts = append(opts, terrain.WithCompileWorkers(s.CompileWorkers))
	}
	return opts
}
