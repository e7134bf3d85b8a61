// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package compute

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/terrain/gradient"
	"github.com/gogpu/terrain/params"
)

// ErrEngineClosed is returned by every Engine method after Close.
var ErrEngineClosed = errors.New("compute: engine closed")

// Config is a complete engine configuration. A nil Passes selects
// DefaultPasses in NewEngine and keeps the current pass registry in
// Configure.
type Config struct {
	Params   params.Params
	Passes   []PassDescriptor
	Gradient gradient.Gradient
}

// DefaultConfig returns the startup configuration.
func DefaultConfig() Config {
	return Config{Params: params.Default(), Gradient: gradient.Default()}
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	builder     []BuilderOption
	gradientTTL uint32
	spec        func(dim uint32) ResourceSpec
}

// WithBuilderOptions forwards options to the pipeline builder.
func WithBuilderOptions(opts ...BuilderOption) EngineOption {
	return func(o *engineOptions) { o.builder = append(o.builder, opts...) }
}

// WithGradientTTL sets how many frames an unused gradient payload is kept.
func WithGradientTTL(frames uint32) EngineOption {
	return func(o *engineOptions) { o.gradientTTL = frames }
}

// WithResourceSpec overrides the resource shape for a given dimension.
// The pair shape must not depend on dim.
func WithResourceSpec(fn func(dim uint32) ResourceSpec) EngineOption {
	return func(o *engineOptions) {
		if fn != nil {
			o.spec = fn
		}
	}
}

// FrameStats describes one call to Frame.
type FrameStats struct {
	// Generation is the resource generation the frame ran against.
	Generation uint64

	// Dispatched is false when the frame only uploaded data.
	Dispatched bool

	// Dispatches counts recorded compute dispatches, extraction included.
	Dispatches int

	// Skipped lists passes whose pipeline was not ready.
	Skipped []int

	// ExtractSkipped is set when the extraction pipeline was not ready.
	ExtractSkipped bool

	// Final is the selector the extraction pass read.
	Final Selector
}

// Engine owns the full per-frame state of the pass chain: parameters,
// gradient, pass registry, resource set, bind groups and pipelines.
//
// Configuration changes are staged by Configure and take effect at the
// start of the next Frame, so a frame always sees one consistent snapshot.
// Engine is safe for concurrent use; frames are serialized.
type Engine struct {
	device hal.Device
	queue  hal.Queue
	opts   engineOptions

	pendingMu  sync.Mutex
	pending    *Config
	pendingDim uint32

	mu         sync.Mutex
	params     params.Params
	grad       gradient.Gradient
	registry   *Registry
	regGen     uint64
	passes     []PassDescriptor
	assignment Assignment
	spec       ResourceSpec
	extract    ShaderRef
	builder    *PipelineBuilder
	exec       *Executor
	set        *ResourceSet
	groups     *BindGroupCache
	lut        *GradientCache
	dirty      bool
	closed     bool
}

// NewEngine validates cfg, allocates resources for cfg.Params.Dimensions and
// requests compilation of every pipeline. The first Frame always dispatches.
func NewEngine(device hal.Device, queue hal.Queue, cfg Config, opts ...EngineOption) (*Engine, error) {
	o := engineOptions{gradientTTL: 8, spec: DefaultResourceSpec}
	for _, opt := range opts {
		opt(&o)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	e := &Engine{
		device: device,
		queue:  queue,
		opts:   o,
		params: cfg.Params,
		grad:   cfg.Gradient,
		spec:   o.spec(cfg.Params.Dimensions),
		exec:   NewExecutor(device, queue),
		lut:    NewGradientCache(o.gradientTTL),
		dirty:  true,
	}
	e.extract = ExtractShader(e.spec)

	passes := cfg.Passes
	if passes == nil {
		passes = DefaultPasses(e.spec)
	}
	registry, err := NewRegistry(passes)
	if err != nil {
		return nil, err
	}
	e.registry = registry

	e.builder, err = NewPipelineBuilder(device, e.spec, o.builder...)
	if err != nil {
		return nil, err
	}
	if err := e.rebuildPasses(); err != nil {
		e.builder.Close()
		return nil, err
	}
	if err := e.reallocate(e.spec); err != nil {
		e.builder.Close()
		return nil, err
	}
	return e, nil
}

// Registry returns the pass registry. Changes made through it are picked up
// by the next Frame.
func (e *Engine) Registry() *Registry { return e.registry }

// Builder returns the pipeline builder.
func (e *Engine) Builder() *PipelineBuilder { return e.builder }

// Configure validates cfg and stages it for the next frame. A rejected
// configuration leaves the current one untouched.
func (e *Engine) Configure(cfg Config) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	if cfg.Passes != nil {
		if err := e.builder.Validate(cfg.Passes, e.extract); err != nil {
			return err
		}
	}

	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	c := cfg
	e.pending = &c
	// cfg carries its own dimensions.
	e.pendingDim = 0
	return nil
}

// validateConfig checks everything in cfg that does not need the device.
func validateConfig(cfg Config) error {
	if err := cfg.Params.Validate(); err != nil {
		return err
	}
	if len(cfg.Gradient.Stops) == 0 {
		return fmt.Errorf("compute: %w", gradient.ErrEmpty)
	}
	for i, p := range cfg.Passes {
		if p.Iterations < 0 {
			return fmt.Errorf("%w: pass %d %q has %d", ErrNegativeIterations, i, p.Name, p.Iterations)
		}
	}
	return nil
}

// Resize stages new square dimensions for the next frame. Only the
// dimensions are staged; parameters and gradient are left as they are at
// the time the frame applies the change.
func (e *Engine) Resize(dim uint32) error {
	p := params.Params{Dimensions: dim}
	if err := p.Validate(); err != nil {
		return err
	}

	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	e.pendingDim = dim
	return nil
}

// Frame runs one frame: it applies staged configuration, uploads the
// uniform and gradient, and dispatches the pass chain followed by the
// extraction pass. When changed is false and a complete frame has already
// run with the current configuration, only the uploads happen.
func (e *Engine) Frame(ctx context.Context, changed bool) (FrameStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return FrameStats{}, ErrEngineClosed
	}
	if err := e.applyPending(); err != nil {
		return FrameStats{}, err
	}
	if e.registry.Generation() != e.regGen {
		if err := e.rebuildPasses(); err != nil {
			return FrameStats{}, err
		}
	}

	defer e.lut.Sweep()
	if err := UploadUniform(e.queue, e.set, e.params); err != nil {
		return FrameStats{}, err
	}
	if err := UploadGradient(e.queue, e.set, e.grad, e.lut); err != nil {
		return FrameStats{}, err
	}

	stats := FrameStats{Generation: e.set.Generation(), Final: e.assignment.Final}
	if !changed && !e.dirty {
		return stats, nil
	}

	w, h := e.set.Dimensions()
	plan, pipes := Resolve(e.builder, e.passes, e.assignment, w, h)
	stats.Skipped = plan.Skipped
	stats.ExtractSkipped = plan.ExtractSkipped
	if err := e.exec.Execute(ctx, plan, pipes, e.groups, e.set); err != nil {
		return stats, err
	}
	stats.Dispatched = len(plan.Commands) > 0
	stats.Dispatches = len(plan.Commands)

	// Keep dispatching until every pipeline has taken part in a frame.
	e.dirty = len(plan.Skipped) > 0 || plan.ExtractSkipped
	if len(plan.Skipped) > 0 {
		slogger().Debug("compute: passes not ready", "skipped", plan.Skipped)
	}
	return stats, nil
}

// applyPending installs a staged configuration. Caller must hold e.mu.
func (e *Engine) applyPending() error {
	e.pendingMu.Lock()
	staged, dim := e.pending, e.pendingDim
	e.pending, e.pendingDim = nil, 0
	e.pendingMu.Unlock()

	if staged == nil && dim == 0 {
		return nil
	}
	cfg := Config{Params: e.params, Gradient: e.grad}
	if staged != nil {
		cfg = *staged
	}
	if dim != 0 {
		cfg.Params.Dimensions = dim
	}
	if cfg.Params.Dimensions != e.params.Dimensions {
		if err := e.reallocate(e.opts.spec(cfg.Params.Dimensions)); err != nil {
			return err
		}
	}
	e.params = cfg.Params
	e.grad = cfg.Gradient
	if cfg.Passes != nil {
		if err := e.registry.Set(cfg.Passes); err != nil {
			return err
		}
	}
	e.dirty = true
	return nil
}

// rebuildPasses snapshots the registry and requests its pipelines.
// Caller must hold e.mu or be constructing e.
func (e *Engine) rebuildPasses() error {
	gen := e.registry.Generation()
	passes := e.registry.Snapshot()
	if err := e.builder.Build(passes, e.extract); err != nil {
		return err
	}
	e.passes = passes
	e.assignment = ComputeAssignment(passes)
	e.regGen = gen
	e.dirty = true
	slogger().Debug("compute: pass chain updated",
		"passes", len(passes),
		"dispatches", e.assignment.Total(),
		"final", e.assignment.Final)
	return nil
}

// reallocate replaces the resource set and its bind groups together. The
// old generation is destroyed only after the swap. Caller must hold e.mu or
// be constructing e.
func (e *Engine) reallocate(spec ResourceSpec) error {
	set, err := Allocate(e.device, e.queue, spec)
	if err != nil {
		return err
	}
	groups, err := BuildBindGroups(e.device, set, e.builder.MainLayouts(), e.builder.ExtractLayouts())
	if err != nil {
		set.Destroy()
		return err
	}

	oldSet, oldGroups := e.set, e.groups
	e.set, e.groups, e.spec = set, groups, spec
	e.dirty = true

	oldGroups.Destroy()
	oldSet.Destroy()
	return nil
}

// ReadResult copies the packed RGBA8 result back to the CPU. Rows are
// tightly packed, Width*4 bytes each.
func (e *Engine) ReadResult(ctx context.Context) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	return e.exec.readBuffer(ctx, e.set.ResultBuffer, e.set.ResultSize())
}

// ResultTexture returns the RGBA8 result texture and its view. They are
// replaced when the dimensions change.
func (e *Engine) ResultTexture() (hal.Texture, hal.TextureView) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.set == nil {
		return nil, nil
	}
	return e.set.Result, e.set.ResultView
}

// Dimensions returns the current width and height in cells.
func (e *Engine) Dimensions() (uint32, uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.set == nil {
		return 0, 0
	}
	return e.set.Dimensions()
}

// Params returns the parameters of the last applied configuration.
func (e *Engine) Params() params.Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

// Assignment returns the parity assignment of the current pass chain.
func (e *Engine) Assignment() Assignment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.assignment
}

// Close waits for outstanding compilations and releases every GPU
// resource. It is safe to call more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	e.builder.Close()
	e.groups.Destroy()
	e.set.Destroy()
	e.lut.Clear()
	e.groups, e.set = nil, nil
}
