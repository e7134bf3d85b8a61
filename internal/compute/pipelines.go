// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package compute

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidShader is returned by Build when naga rejects a shader.
var ErrInvalidShader = errors.New("compute: shader failed validation")

// ErrBuilderClosed is returned by Build after Close.
var ErrBuilderClosed = errors.New("compute: pipeline builder closed")

// Readiness is the compile state of a pipeline.
type Readiness uint8

const (
	// Pending means compilation has been requested but not finished.
	Pending Readiness = iota
	// Ready means the pipeline can be dispatched.
	Ready
	// Failed means compilation failed; the pass stays disabled until its
	// shader changes.
	Failed
)

// String returns the readiness name.
func (r Readiness) String() string {
	switch r {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Readiness(%d)", r)
	}
}

// PipelineLayouts is a Layout realized on the device.
type PipelineLayouts struct {
	Layout          Layout
	BindGroupLayout hal.BindGroupLayout
	PipelineLayout  hal.PipelineLayout
}

// layoutEntries converts slots to bind group layout entries.
func layoutEntries(l Layout) []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, len(l.Slots))
	for i, s := range l.Slots {
		e := gputypes.BindGroupLayoutEntry{
			Binding:    s.Binding,
			Visibility: gputypes.ShaderStageCompute,
		}
		switch s.Access {
		case AccessUniform:
			e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
		case AccessRead:
			e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
		case AccessReadWrite:
			e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
		case AccessTexture:
			e.Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		}
		entries[i] = e
	}
	return entries
}

// CreatePipelineLayouts creates the bind group layout and pipeline layout for l.
func CreatePipelineLayouts(device hal.Device, l Layout) (*PipelineLayouts, error) {
	bgl, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   l.Label + "_bgl",
		Entries: layoutEntries(l),
	})
	if err != nil {
		return nil, fmt.Errorf("compute: create %s bind group layout: %w", l.Label, err)
	}
	pl, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            l.Label + "_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgl},
	})
	if err != nil {
		device.DestroyBindGroupLayout(bgl)
		return nil, fmt.Errorf("compute: create %s pipeline layout: %w", l.Label, err)
	}
	return &PipelineLayouts{Layout: l, BindGroupLayout: bgl, PipelineLayout: pl}, nil
}

// Destroy releases both layouts.
func (p *PipelineLayouts) Destroy(device hal.Device) {
	if p == nil {
		return
	}
	if p.PipelineLayout != nil {
		device.DestroyPipelineLayout(p.PipelineLayout)
		p.PipelineLayout = nil
	}
	if p.BindGroupLayout != nil {
		device.DestroyBindGroupLayout(p.BindGroupLayout)
		p.BindGroupLayout = nil
	}
}

// pipelineKey identifies a compiled pipeline. The same source compiled
// against the main and extract layouts yields different pipelines.
type pipelineKey struct {
	shader  [32]byte
	extract bool
}

// compiled is one cache entry. Fields are guarded by PipelineBuilder.mu.
type compiled struct {
	label    string
	state    Readiness
	module   hal.ShaderModule
	pipeline hal.ComputePipeline
	err      error
	evicted  bool
}

// BuilderOption configures a PipelineBuilder.
type BuilderOption func(*PipelineBuilder)

// WithShaderValidation enables naga compilation of every shader in Build.
func WithShaderValidation(enabled bool) BuilderOption {
	return func(b *PipelineBuilder) { b.validate = enabled }
}

// WithCompileWorkers bounds the number of concurrent pipeline compilations.
func WithCompileWorkers(n int) BuilderOption {
	return func(b *PipelineBuilder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithCacheSize sets how many compiled pipelines are retained.
func WithCacheSize(n int) BuilderOption {
	return func(b *PipelineBuilder) {
		if n > 0 {
			b.cacheSize = n
		}
	}
}

// PipelineBuilder validates pass shaders against the fixed layouts and
// compiles them asynchronously.
//
// Build returns as soon as validation passes. Compilation runs on a bounded
// worker pool and Pipeline reports Pending until the result is available.
// Compiled pipelines are cached by shader content, so rebuilding with an
// unchanged shader is free.
//
// PipelineBuilder is safe for concurrent use.
type PipelineBuilder struct {
	device    hal.Device
	main      *PipelineLayouts
	extract   *PipelineLayouts
	validate  bool
	workers   int
	cacheSize int

	mu         sync.Mutex
	cache      *lru.Cache[pipelineKey, *compiled]
	passKeys   []pipelineKey
	passRefs   []ShaderRef
	extractKey pipelineKey
	extractRef ShaderRef
	built      bool
	closed     bool

	group   *errgroup.Group
	ctx     context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup
}

// NewPipelineBuilder creates the main and extract layouts for spec.
func NewPipelineBuilder(device hal.Device, spec ResourceSpec, opts ...BuilderOption) (*PipelineBuilder, error) {
	b := &PipelineBuilder{
		device:    device,
		workers:   2,
		cacheSize: 64,
	}
	for _, opt := range opts {
		opt(b)
	}

	cache, err := lru.NewWithEvict[pipelineKey, *compiled](b.cacheSize, b.onEvict)
	if err != nil {
		return nil, fmt.Errorf("compute: pipeline cache: %w", err)
	}
	b.cache = cache

	b.main, err = CreatePipelineLayouts(device, MainLayout(spec))
	if err != nil {
		return nil, err
	}
	b.extract, err = CreatePipelineLayouts(device, ExtractLayout(spec))
	if err != nil {
		b.main.Destroy(device)
		return nil, err
	}

	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.group = new(errgroup.Group)
	b.group.SetLimit(b.workers)
	return b, nil
}

// MainLayouts returns the realized main-pass layout.
func (b *PipelineBuilder) MainLayouts() *PipelineLayouts { return b.main }

// ExtractLayouts returns the realized extraction layout.
func (b *PipelineBuilder) ExtractLayouts() *PipelineLayouts { return b.extract }

// Validate checks every pass and the extraction shader against the layouts
// without compiling anything.
func (b *PipelineBuilder) Validate(passes []PassDescriptor, extract ShaderRef) error {
	for i, p := range passes {
		if err := b.validateOne(b.main.Layout, i, p.Name, p.Shader.Source); err != nil {
			return err
		}
	}
	return b.validateOne(b.extract.Layout, -1, extract.Label, extract.Source)
}

func (b *PipelineBuilder) validateOne(l Layout, pass int, name, src string) error {
	if err := ValidateShader(l, pass, name, src); err != nil {
		return err
	}
	if !b.validate {
		return nil
	}
	if _, err := naga.Compile(src); err != nil {
		if pass < 0 {
			return fmt.Errorf("%w: extract pass %q: %v", ErrInvalidShader, name, err) //nolint:errorlint // naga detail
		}
		return fmt.Errorf("%w: pass %d %q: %v", ErrInvalidShader, pass, name, err) //nolint:errorlint // naga detail
	}
	return nil
}

// Build validates the shaders and requests compilation of any pipeline not
// already cached. A validation failure leaves the previous build in place.
func (b *PipelineBuilder) Build(passes []PassDescriptor, extract ShaderRef) error {
	if err := b.Validate(passes, extract); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBuilderClosed
	}

	b.passKeys = make([]pipelineKey, len(passes))
	b.passRefs = make([]ShaderRef, len(passes))
	for i, p := range passes {
		ref := p.Shader
		if ref.Label == "" {
			ref.Label = p.Name
		}
		b.passKeys[i] = pipelineKey{shader: ref.Key()}
		b.passRefs[i] = ref
		b.ensureLocked(b.passKeys[i], ref)
	}
	b.extractKey = pipelineKey{shader: extract.Key(), extract: true}
	b.extractRef = extract
	b.ensureLocked(b.extractKey, extract)
	b.built = true

	slogger().Debug("compute: pipelines requested",
		"passes", len(passes),
		"cached", b.cache.Len())
	return nil
}

// ensureLocked queues compilation of key unless it is cached.
// Caller must hold b.mu.
func (b *PipelineBuilder) ensureLocked(key pipelineKey, ref ShaderRef) *compiled {
	if c, ok := b.cache.Get(key); ok {
		return c
	}
	c := &compiled{label: ref.Label, state: Pending}
	b.cache.Add(key, c)

	layout := b.main
	if key.extract {
		layout = b.extract
	}
	b.pending.Add(1)
	// errgroup.Go blocks at the worker limit.
	go b.group.Go(func() error {
		defer b.pending.Done()
		b.compile(c, ref, layout)
		return nil
	})
	return c
}

// compile creates the shader module and pipeline for c.
func (b *PipelineBuilder) compile(c *compiled, ref ShaderRef, layout *PipelineLayouts) {
	var (
		module   hal.ShaderModule
		pipeline hal.ComputePipeline
		err      error
	)
	if err = b.ctx.Err(); err == nil {
		module, pipeline, err = b.createPipeline(ref, layout)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if c.evicted || b.closed {
		b.destroyCompiled(module, pipeline)
		return
	}
	if err != nil {
		c.state = Failed
		c.err = err
		slogger().Warn("compute: pipeline compilation failed", "shader", ref.Label, "err", err)
		return
	}
	c.module, c.pipeline, c.state = module, pipeline, Ready
	slogger().Debug("compute: pipeline ready", "shader", ref.Label, "bytes", len(ref.Source))
}

func (b *PipelineBuilder) createPipeline(ref ShaderRef, layout *PipelineLayouts) (hal.ShaderModule, hal.ComputePipeline, error) {
	module, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  ref.Label,
		Source: hal.ShaderSource{WGSL: ref.Source},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create shader module: %w", err)
	}
	pipeline, err := b.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  ref.Label,
		Layout: layout.PipelineLayout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		b.device.DestroyShaderModule(module)
		return nil, nil, fmt.Errorf("create compute pipeline: %w", err)
	}
	return module, pipeline, nil
}

func (b *PipelineBuilder) destroyCompiled(module hal.ShaderModule, pipeline hal.ComputePipeline) {
	if pipeline != nil {
		b.device.DestroyComputePipeline(pipeline)
	}
	if module != nil {
		b.device.DestroyShaderModule(module)
	}
}

// onEvict runs inside cache operations, which always happen under b.mu.
func (b *PipelineBuilder) onEvict(_ pipelineKey, c *compiled) {
	c.evicted = true
	b.destroyCompiled(c.module, c.pipeline)
	c.module, c.pipeline = nil, nil
}

// lookupLocked returns the pipeline for key, requeueing it if it was evicted.
func (b *PipelineBuilder) lookupLocked(key pipelineKey, ref ShaderRef) (hal.ComputePipeline, Readiness) {
	c := b.ensureLocked(key, ref)
	if c.state != Ready {
		return nil, c.state
	}
	return c.pipeline, Ready
}

// Pipeline returns the compiled pipeline of pass i. Out-of-range indices
// and calls before Build report Failed.
func (b *PipelineBuilder) Pipeline(i int) (hal.ComputePipeline, Readiness) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || i < 0 || i >= len(b.passKeys) {
		return nil, Failed
	}
	return b.lookupLocked(b.passKeys[i], b.passRefs[i])
}

// ExtractPipeline returns the compiled extraction pipeline.
func (b *PipelineBuilder) ExtractPipeline() (hal.ComputePipeline, Readiness) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || !b.built {
		return nil, Failed
	}
	return b.lookupLocked(b.extractKey, b.extractRef)
}

// Err returns the compile error of pass i, or nil.
func (b *PipelineBuilder) Err(i int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if i < 0 || i >= len(b.passKeys) {
		return nil
	}
	if c, ok := b.cache.Peek(b.passKeys[i]); ok {
		return c.err
	}
	return nil
}

// Wait blocks until every requested compilation has finished.
func (b *PipelineBuilder) Wait() {
	b.pending.Wait()
}

// Close cancels outstanding compilations and releases every pipeline and
// both layouts. It is safe to call more than once.
func (b *PipelineBuilder) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.cancel()
	b.mu.Unlock()

	b.pending.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache.Purge()
	b.main.Destroy(b.device)
	b.extract.Destroy(b.device)
}
