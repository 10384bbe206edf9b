// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// halProvider is implemented by device providers that expose their HAL
// device and queue.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// FromProvider wraps the GPU device of an external provider (e.g. a gogpu
// application window) so kernels run on the device the host already uses.
// The provider keeps ownership: Close on the returned device waits for idle
// but does not destroy anything.
func FromProvider(provider gpucontext.DeviceProvider, memoryMB int) (*Device, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: nil provider", ErrNoHALAccess)
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALAccess
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALAccess)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALAccess)
	}

	name := "provider"
	if info := provider.AdapterInfo(); info.Name != "" {
		name = fmt.Sprintf("provider: %s (%s)", info.Name, info.Type)
	}
	slogger().Info("gpu: using shared device", "name", name)
	return newDevice(name, device, queue, nil, memoryMB), nil
}
