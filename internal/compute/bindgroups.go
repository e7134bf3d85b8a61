// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package compute

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/terrain/params"
)

// ErrStaleBindGroups is returned when a bind group cache is used with a
// resource set other than the one it was built from.
var ErrStaleBindGroups = errors.New("compute: bind groups built for another resource generation")

// Wire is the handle-free description of one bind group entry.
// Side is 0 for A, 1 for B and -1 for unpaired resources.
type Wire struct {
	Binding  uint32
	Resource Resource
	Index    int
	Side     int
}

// Topology describes the wiring of all four bind groups.
type Topology struct {
	Main    [2][]Wire
	Extract [2][]Wire
}

// wiring maps every slot of layout to a physical side for selector sel.
// In a main layout, source slots read side sel and destination slots write
// the other side. In the extract layout every pair slot reads side sel.
// All pairs follow the same selector.
func wiring(layout Layout, sel Selector) []Wire {
	out := make([]Wire, len(layout.Slots))
	for i, s := range layout.Slots {
		w := Wire{Binding: s.Binding, Resource: s.Resource, Index: s.Index, Side: -1}
		switch s.Role {
		case RoleSource:
			w.Side = int(sel)
		case RoleDest:
			w.Side = 1 - int(sel)
		}
		out[i] = w
	}
	return out
}

// TopologyFor computes the wiring the cache builds for a pair of layouts.
func TopologyFor(main, extract Layout) Topology {
	var t Topology
	for sel := range Selector(2) {
		t.Main[sel] = wiring(main, sel)
		t.Extract[sel] = wiring(extract, sel)
	}
	return t
}

// BindGroupCache holds the two main-pass bind groups (A→B, B→A) and the two
// extraction bind groups (from A, from B) of one resource generation.
type BindGroupCache struct {
	device   hal.Device
	gen      uint64
	main     [2]hal.BindGroup
	extract  [2]hal.BindGroup
	topology Topology
}

// BuildBindGroups wires set into the main and extract layouts. The wiring is
// derived slot by slot from the layouts, so every pair swaps together.
func BuildBindGroups(device hal.Device, set *ResourceSet, main, extract *PipelineLayouts) (*BindGroupCache, error) {
	c := &BindGroupCache{
		device:   device,
		gen:      set.Generation(),
		topology: TopologyFor(main.Layout, extract.Layout),
	}
	for sel := range Selector(2) {
		bg, err := createBindGroup(device, set, main, c.topology.Main[sel], fmt.Sprintf("terrain_main_%d", sel))
		if err != nil {
			c.Destroy()
			return nil, err
		}
		c.main[sel] = bg

		bg, err = createBindGroup(device, set, extract, c.topology.Extract[sel], fmt.Sprintf("terrain_extract_%d", sel))
		if err != nil {
			c.Destroy()
			return nil, err
		}
		c.extract[sel] = bg
	}
	slogger().Debug("compute: bind groups built", "generation", c.gen)
	return c, nil
}

func createBindGroup(device hal.Device, set *ResourceSet, pl *PipelineLayouts, wires []Wire, label string) (hal.BindGroup, error) {
	entries := make([]gputypes.BindGroupEntry, 0, len(wires))
	for _, w := range wires {
		e, err := bindGroupEntry(set, w)
		if err != nil {
			return nil, fmt.Errorf("compute: %s binding %d: %w", label, w.Binding, err)
		}
		entries = append(entries, e)
	}
	bg, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label,
		Layout:  pl.BindGroupLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("compute: create %s bind group: %w", label, err)
	}
	return bg, nil
}

// bindGroupEntry resolves a wire to the concrete GPU resource in set.
func bindGroupEntry(set *ResourceSet, w Wire) (gputypes.BindGroupEntry, error) {
	e := gputypes.BindGroupEntry{Binding: w.Binding}
	buffer := func(b hal.Buffer, size uint64) {
		e.Resource = gputypes.BufferBinding{Buffer: b.NativeHandle(), Offset: 0, Size: size}
	}
	switch w.Resource {
	case ResourceUniform:
		buffer(set.Uniform, params.Size())
	case ResourceField:
		if w.Index >= len(set.Fields) {
			return e, fmt.Errorf("field pair %d not allocated", w.Index)
		}
		p := set.Fields[w.Index]
		buffer(p.Buffers[w.Side], p.Size)
	case ResourceBuffer:
		if w.Index >= len(set.Buffers) {
			return e, fmt.Errorf("buffer pair %d not allocated", w.Index)
		}
		p := set.Buffers[w.Index]
		buffer(p.Buffers[w.Side], p.Size)
	case ResourceGradient:
		e.Resource = gputypes.TextureViewBinding{
			TextureView: set.GradientView.NativeHandle(),
		}
	case ResourceResult:
		buffer(set.ResultBuffer, set.ResultSize())
	default:
		return e, fmt.Errorf("unknown resource %v", w.Resource)
	}
	return e, nil
}

// Main returns the main-pass bind group for selector sel.
func (c *BindGroupCache) Main(sel Selector) hal.BindGroup { return c.main[sel&1] }

// Extract returns the extraction bind group for selector sel.
func (c *BindGroupCache) Extract(sel Selector) hal.BindGroup { return c.extract[sel&1] }

// Counts returns the number of main and extract bind groups held.
func (c *BindGroupCache) Counts() (main, extract int) {
	for i := range 2 {
		if c.main[i] != nil {
			main++
		}
		if c.extract[i] != nil {
			extract++
		}
	}
	return main, extract
}

// Generation returns the resource generation the cache was built from.
func (c *BindGroupCache) Generation() uint64 { return c.gen }

// Topology returns the wiring of the cache.
func (c *BindGroupCache) Topology() Topology { return c.topology }

// Check returns ErrStaleBindGroups unless the cache belongs to set.
func (c *BindGroupCache) Check(set *ResourceSet) error {
	if set == nil || c.gen != set.Generation() {
		return ErrStaleBindGroups
	}
	return nil
}

// Destroy releases all bind groups. It is safe to call more than once.
func (c *BindGroupCache) Destroy() {
	if c == nil {
		return
	}
	for i := range 2 {
		if c.main[i] != nil {
			c.device.DestroyBindGroup(c.main[i])
			c.main[i] = nil
		}
		if c.extract[i] != nil {
			c.device.DestroyBindGroup(c.extract[i])
			c.extract[i] = nil
		}
	}
}
