// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package compute

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrGPUTimeout is returned when a submitted frame does not complete in time.
var ErrGPUTimeout = errors.New("compute: timed out waiting for GPU")

// defaultWaitTimeout bounds a frame wait when ctx carries no deadline.
const defaultWaitTimeout = 5 * time.Second

// pollInterval is how often a pending submission is polled.
const pollInterval = 500 * time.Microsecond

// PipelineSource provides compiled pipelines by pass index.
type PipelineSource interface {
	Pipeline(i int) (hal.ComputePipeline, Readiness)
	ExtractPipeline() (hal.ComputePipeline, Readiness)
}

// Resolve builds a plan against src and returns the pipelines it uses,
// keyed by pass index (-1 for extraction).
func Resolve(src PipelineSource, passes []PassDescriptor, a Assignment, width, height uint32) (Plan, map[int]hal.ComputePipeline) {
	pipes := make(map[int]hal.ComputePipeline, len(passes)+1)
	ready := func(i int) Readiness {
		var (
			p hal.ComputePipeline
			r Readiness
		)
		if i < 0 {
			p, r = src.ExtractPipeline()
		} else {
			p, r = src.Pipeline(i)
		}
		if r == Ready {
			pipes[i] = p
		}
		return r
	}
	return BuildPlan(passes, a, ready, width, height), pipes
}

// Executor records plans into command buffers and submits them.
type Executor struct {
	device hal.Device
	queue  hal.Queue
}

// NewExecutor creates an executor for device and queue.
func NewExecutor(device hal.Device, queue hal.Queue) *Executor {
	return &Executor{device: device, queue: queue}
}

// Execute encodes plan as one command buffer, submits it and waits for the
// submission. When the plan contains the extraction pass, the packed result is
// copied into the result texture in the same submission.
func (e *Executor) Execute(ctx context.Context, plan Plan, pipes map[int]hal.ComputePipeline, groups *BindGroupCache, set *ResourceSet) error {
	if len(plan.Commands) == 0 {
		return nil
	}
	if err := groups.Check(set); err != nil {
		return err
	}

	encoder, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "terrain_frame"})
	if err != nil {
		return fmt.Errorf("compute: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("terrain_frame"); err != nil {
		return fmt.Errorf("compute: begin encoding: %w", err)
	}

	extracted := encodePlan(encoder, plan, pipes, groups)
	if extracted {
		encodeResultCopy(encoder, set)
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("compute: end encoding: %w", err)
	}
	defer e.device.FreeCommandBuffer(cmdBuf)

	return e.submitAndWait(ctx, cmdBuf)
}

// encodePlan records one compute pass per command. Commands whose pipeline
// is missing are dropped. Returns whether the extraction pass was recorded.
func encodePlan(encoder hal.CommandEncoder, plan Plan, pipes map[int]hal.ComputePipeline, groups *BindGroupCache) bool {
	extracted := false
	for _, cmd := range plan.Commands {
		pipeline := pipes[cmd.Pass]
		if pipeline == nil {
			continue
		}
		var (
			group hal.BindGroup
			label string
		)
		if cmd.Stage == StageExtract {
			group = groups.Extract(cmd.Selector)
			label = "terrain_extract"
			extracted = true
		} else {
			group = groups.Main(cmd.Selector)
			label = fmt.Sprintf("terrain_pass_%d_%d", cmd.Pass, cmd.Iteration)
		}

		pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: label})
		pass.SetPipeline(pipeline)
		pass.SetBindGroup(0, group, nil)
		pass.Dispatch(cmd.Groups[0], cmd.Groups[1], cmd.Groups[2])
		pass.End()
	}
	return extracted
}

// encodeResultCopy copies the packed result buffer into the result texture.
// Dimensions are multiples of 64, so rows are 256-byte aligned.
func encodeResultCopy(encoder hal.CommandEncoder, set *ResourceSet) {
	w, h := set.Dimensions()
	encoder.CopyBufferToTexture(set.ResultBuffer, set.Result, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: w * resultBytesPerCell, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: set.Result, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
}

// waitTimeout derives the wait budget from ctx.
func waitTimeout(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
		return 0
	}
	return defaultWaitTimeout
}

// submitAndWait submits cmdBuf and polls the queue until the submission
// has completed.
func (e *Executor) submitAndWait(ctx context.Context, cmdBuf hal.CommandBuffer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	idx, err := e.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("compute: submit: %w", err)
	}
	if e.queue.PollCompleted() >= idx {
		return nil
	}

	deadline := time.NewTimer(waitTimeout(ctx))
	defer deadline.Stop()
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			// cmdBuf must not be freed while the GPU still uses it.
			if err := e.device.WaitIdle(); err != nil {
				slogger().Warn("compute: wait idle failed", "err", err)
			}
			return ctx.Err()
		case <-deadline.C:
			return ErrGPUTimeout
		case <-tick.C:
			if e.queue.PollCompleted() >= idx {
				return nil
			}
		}
	}
}

// readBuffer copies size bytes of src into a staging buffer and reads them
// back to the CPU.
func (e *Executor) readBuffer(ctx context.Context, src hal.Buffer, size uint64) ([]byte, error) {
	staging, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "terrain_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("compute: create staging buffer: %w", err)
	}
	defer e.device.DestroyBuffer(staging)

	encoder, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "terrain_readback"})
	if err != nil {
		return nil, fmt.Errorf("compute: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("terrain_readback"); err != nil {
		return nil, fmt.Errorf("compute: begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(src, staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("compute: end encoding: %w", err)
	}
	defer e.device.FreeCommandBuffer(cmdBuf)

	if err := e.submitAndWait(ctx, cmdBuf); err != nil {
		return nil, err
	}
	mapping, err := e.device.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("compute: map staging buffer: %w", err)
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(mapping.Ptr), size))
	if err := e.device.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("compute: unmap staging buffer: %w", err)
	}
	return out, nil
}
