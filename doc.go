// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package terrain generates procedural terrain on the GPU with a chain of
// compute passes.
//
// # Overview
//
// A frame runs an ordered list of compute passes over a set of ping-pong
// resource pairs, then an extraction pass that maps the final height field
// through a color gradient into an RGBA8 result texture. Every pass reads
// side A or B of each pair and writes the other side. Which side a dispatch
// reads is decided by one running counter over the whole chain, so the
// output of each dispatch is always the input of the next one, across pass
// boundaries and regardless of iteration counts.
//
// # Quick Start
//
//	cfg := terrain.DefaultConfig()
//	eng, err := terrain.NewEngine(device, queue, cfg)
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//
//	// The first frame always dispatches.
//	if _, err := eng.Frame(ctx, true); err != nil {
//	    return err
//	}
//	pixels, err := eng.ReadResult(ctx)
//
// # Configuration
//
// Parameters ([params.Params]), the gradient ([gradient.Gradient]) and the
// pass list are swapped with [Engine.Configure]. Changes are staged and take
// effect at the start of the next frame. Pass shaders are validated against
// the fixed binding layout before anything is staged, and errors name the
// offending pass.
//
// # Logging
//
// terrain produces no log output by default. See [SetLogger].
//
// # Build Tags
//
// The GPU engine requires the gogpu/wgpu HAL. Build with -tags nogpu to
// exclude it; the parameter, gradient and parity code stays available.
package terrain
