// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/terrain"
)

// gpuDevice is an open device with its instance.
type gpuDevice struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	name     string
}

func (d *gpuDevice) Close() {
	if d.device != nil {
		d.device.Destroy()
	}
	if d.instance != nil {
		d.instance.Destroy()
	}
}

// openDevice opens the first discrete or integrated Vulkan adapter, or the
// noop backend when dryRun is set.
func openDevice(dryRun bool) (*gpuDevice, error) {
	var (
		instance hal.Instance
		err      error
	)
	if dryRun {
		instance, err = noop.API{}.CreateInstance(nil)
	} else {
		backend, ok := hal.GetBackend(gputypes.BackendVulkan)
		if !ok {
			return nil, errors.New("vulkan backend not available")
		}
		instance, err = backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	}
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, errors.New("no GPU adapters found")
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}
	terrain.Logger().Info("adapter selected", "name", selected.Info.Name, "noop", dryRun)
	return &gpuDevice{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		name:     selected.Info.Name,
	}, nil
}
