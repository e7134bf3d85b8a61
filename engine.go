// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package terrain

import (
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/terrain/internal/compute"
)

// Engine runs the pass chain on a GPU device. See compute.Engine.
type Engine = compute.Engine

// Config is a complete engine configuration.
type Config = compute.Config

// FrameStats describes one frame.
type FrameStats = compute.FrameStats

// EngineOption configures an Engine.
type EngineOption = compute.EngineOption

// Errors returned by the engine.
var (
	ErrEngineClosed    = compute.ErrEngineClosed
	ErrGPUTimeout      = compute.ErrGPUTimeout
	ErrInvalidShader   = compute.ErrInvalidShader
	ErrStaleBindGroups = compute.ErrStaleBindGroups
)

// DefaultConfig returns the startup configuration with the standard pass
// chain selected.
func DefaultConfig() Config {
	return compute.DefaultConfig()
}

// NewEngine creates an engine on device and queue.
func NewEngine(device hal.Device, queue hal.Queue, cfg Config, opts ...EngineOption) (*Engine, error) {
	return compute.NewEngine(device, queue, cfg, opts...)
}

// WithShaderValidation compiles every pass with naga before it is accepted.
func WithShaderValidation(enabled bool) EngineOption {
	return compute.WithBuilderOptions(compute.WithShaderValidation(enabled))
}

// WithCompileWorkers bounds concurrent pipeline compilations.
func WithCompileWorkers(n int) EngineOption {
	return compute.WithBuilderOptions(compute.WithCompileWorkers(n))
}

// WithPipelineCacheSize sets how many compiled pipelines are retained.
func WithPipelineCacheSize(n int) EngineOption {
	return compute.WithBuilderOptions(compute.WithCacheSize(n))
}

// WithGradientTTL sets how many frames an unused gradient payload is kept.
func WithGradientTTL(frames uint32) EngineOption {
	return compute.WithGradientTTL(frames)
}
