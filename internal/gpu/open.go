// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"fmt"
	"sort"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/software"
	"github.com/gogpu/wgpu/hal/vulkan"
)

// Backend names accepted by Open.
const (
	BackendVulkan   = "vulkan"
	BackendSoftware = "software"
)

// Config selects and sizes a device.
type Config struct {
	// Backend is BackendVulkan (the default) or BackendSoftware.
	Backend string

	// MemoryMB is the device buffer budget. Zero selects DefaultMaxMemoryMB.
	MemoryMB int
}

type backendEntry struct {
	api      hal.Backend
	backends gputypes.Backends
}

// backends maps names to HAL backends. The entries are constructed
// directly instead of through the HAL registry, where several CPU backends
// share one variant.
var backends = map[string]backendEntry{
	BackendVulkan:   {api: vulkan.Backend{}, backends: gputypes.BackendsVulkan},
	BackendSoftware: {api: software.API{}},
}

// Backends returns the names accepted by Open.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates a device on the configured backend. The device owns its HAL
// instance and destroys it on Close.
func Open(cfg Config) (*Device, error) {
	name := cfg.Backend
	if name == "" {
		name = BackendVulkan
	}
	entry, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return openBackend(name, entry.api, entry.backends, cfg.MemoryMB)
}

func openBackend(name string, api hal.Backend, mask gputypes.Backends, memoryMB int) (*Device, error) {
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{Backends: mask})
	if err != nil {
		return nil, fmt.Errorf("%s: create instance: %w", name, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%s: %w", name, ErrNoAdapter)
	}
	selected := selectAdapter(adapters)

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%s: open device: %w", name, err)
	}

	slogger().Info("gpu: device opened",
		"backend", name,
		"adapter", selected.Info.Name,
		"type", selected.Info.DeviceType,
	)

	release := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	label := name
	if selected.Info.Name != "" {
		label = name + ": " + selected.Info.Name
	}
	return newDevice(label, openDev.Device, openDev.Queue, release, memoryMB), nil
}

// selectAdapter prefers discrete, then integrated GPUs, then whatever the
// backend listed first.
func selectAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	for _, want := range []gputypes.DeviceType{gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU} {
		for i := range adapters {
			if adapters[i].Info.DeviceType == want {
				return &adapters[i]
			}
		}
	}
	return &adapters[0]
}
