// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shadercompat/compute"
	"github.com/gogpu/shadercompat/kernel"
)

// Device errors.
var (
	// ErrNoAdapter is returned when the backend exposes no adapter.
	ErrNoAdapter = errors.New("gpu: no adapter available")

	// ErrUnknownBackend is returned by Open for unsupported backend names.
	ErrUnknownBackend = errors.New("gpu: unknown backend")

	// ErrNoHALAccess is returned by FromProvider when the provider does not
	// expose a HAL device and queue.
	ErrNoHALAccess = errors.New("gpu: provider does not expose HAL types")

	// ErrBindingUsage is returned when a buffer is bound to a slot its usage
	// does not allow.
	ErrBindingUsage = errors.New("gpu: buffer usage does not match binding")
)

// Device is a compute.Device backed by a wgpu HAL device.
//
// Submit records every pass into one command buffer with storage barriers
// between passes, appends copies of host-visible buffers into their staging
// buffers, submits once and waits for the device to go idle.
//
// Device is safe for concurrent use; operations are serialized.
type Device struct {
	mu      sync.Mutex
	name    string
	device  hal.Device
	queue   hal.Queue
	release func()
	memory  *MemoryBudget
	closed  bool

	// epoch counts completed submissions; cached readbacks older than the
	// current epoch are refreshed on the next Mapped call.
	epoch uint64
}

func newDevice(name string, device hal.Device, queue hal.Queue, release func(), memoryMB int) *Device {
	return &Device{
		name:    name,
		device:  device,
		queue:   queue,
		release: release,
		memory:  NewMemoryBudget(memoryMB),
	}
}

// Name implements compute.Device.
func (d *Device) Name() string { return d.name }

// MemoryStats returns the device buffer budget usage.
func (d *Device) MemoryStats() MemoryStats { return d.memory.Stats() }

// CreateBuffer implements compute.Device. Host-visible buffers get a
// second, mappable staging buffer of the same size.
func (d *Device) CreateBuffer(desc compute.BufferDesc) (compute.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, compute.ErrDeviceClosed
	}
	if desc.Size <= 0 {
		return nil, fmt.Errorf("%w: %q has %d bytes", compute.ErrInvalidBufferSize, desc.Label, desc.Size)
	}

	size := alignUp(uint64(desc.Size), 4)
	hostVisible := desc.Usage.Has(compute.UsageHostVisible)
	reserved := size
	if hostVisible {
		reserved *= 2
	}
	if err := d.memory.Reserve(desc.Label, reserved); err != nil {
		return nil, err
	}

	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  size,
		Usage: halUsage(desc.Usage),
	})
	if err != nil {
		d.memory.Release(reserved)
		return nil, fmt.Errorf("create buffer %q: %w", desc.Label, err)
	}

	b := &Buffer{dev: d, desc: desc, size: size, reserved: reserved, buf: buf}
	if hostVisible {
		b.staging, err = d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: desc.Label + "_staging",
			Size:  size,
			Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			d.device.DestroyBuffer(buf)
			d.memory.Release(reserved)
			return nil, fmt.Errorf("create staging buffer %q: %w", desc.Label, err)
		}
	}
	return b, nil
}

// halUsage maps buffer capabilities to HAL usage flags. MapWrite keeps the
// buffer writable through Queue.WriteBuffer at the HAL level.
func halUsage(u compute.BufferUsage) gputypes.BufferUsage {
	usage := gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc | gputypes.BufferUsageMapWrite
	if u.Has(compute.UsageStorage) || u.Has(compute.UsageHostVisible) {
		usage |= gputypes.BufferUsageStorage
	}
	if u.Has(compute.UsageUniform) {
		usage |= gputypes.BufferUsageUniform
	}
	return usage
}

func alignUp(n, a uint64) uint64 {
	return (n + a - 1) &^ (a - 1)
}

// CreatePipeline implements compute.Device. The kernel's WGSL is compiled
// to SPIR-V with naga; the bind group layout follows kernel.Bindings.
func (d *Device) CreatePipeline(k kernel.Kernel) (compute.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, compute.ErrDeviceClosed
	}

	shader := k.Shader()
	spirv, err := CompileWGSL(shader.WGSL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k.Name(), err)
	}

	res := &pipelineResources{device: d.device}
	res.module, err = d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  shader.Label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: create shader module: %w", k.Name(), err)
	}

	res.bindLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   shader.Label + "_bind_layout",
		Entries: layoutEntries(k.Bindings()),
	})
	if err != nil {
		res.destroy()
		return nil, fmt.Errorf("%s: create bind group layout: %w", k.Name(), err)
	}

	res.pipelineLayout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            shader.Label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{res.bindLayout},
	})
	if err != nil {
		res.destroy()
		return nil, fmt.Errorf("%s: create pipeline layout: %w", k.Name(), err)
	}

	res.pipeline, err = d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  shader.Label + "_pipeline",
		Layout: res.pipelineLayout,
		Compute: hal.ComputeState{
			Module:                        res.module,
			EntryPoint:                    shader.EntryPoint,
			ZeroInitializeWorkgroupMemory: true,
		},
	})
	if err != nil {
		res.destroy()
		return nil, fmt.Errorf("%s: create compute pipeline: %w", k.Name(), err)
	}

	slogger().Debug("gpu: pipeline created", "kernel", k.Name(), "spirv_words", len(spirv))
	return &Pipeline{dev: d, k: k, res: res}, nil
}

func layoutEntries(bindings []kernel.Binding) []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, len(bindings))
	for i, b := range bindings {
		var t gputypes.BufferBindingType
		switch b.Kind {
		case kernel.Params, kernel.Constants:
			t = gputypes.BufferBindingTypeUniform
		case kernel.ReadOnly:
			t = gputypes.BufferBindingTypeReadOnlyStorage
		default:
			t = gputypes.BufferBindingTypeStorage
		}
		entries[i] = gputypes.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: t},
		}
	}
	return entries
}

// transients holds per-submission objects destroyed after the work is done.
type transients struct {
	buffers    []hal.Buffer
	bindGroups []hal.BindGroup
}

func (t *transients) destroy(device hal.Device) {
	for _, bg := range t.bindGroups {
		device.DestroyBindGroup(bg)
	}
	for _, b := range t.buffers {
		device.DestroyBuffer(b)
	}
}

// Submit implements compute.Device.
func (d *Device) Submit(passes []compute.Pass) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return compute.ErrDeviceClosed
	}
	if len(passes) == 0 {
		return nil
	}

	var tmp transients
	defer tmp.destroy(d.device)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "shadercompat"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	defer encoder.Destroy()

	if err := encoder.BeginEncoding("shadercompat"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	var (
		storage  []*Buffer
		readback []*Buffer
		seen     = make(map[*Buffer]bool)
	)
	for i, p := range passes {
		pl, bufs, err := d.resolvePass(p)
		if err != nil {
			encoder.DiscardEncoding()
			return fmt.Errorf("pass %d: %w", i, err)
		}
		bg, err := d.bindPass(pl, bufs, p.Constants, &tmp)
		if err != nil {
			encoder.DiscardEncoding()
			return fmt.Errorf("pass %d: %w", i, err)
		}

		// Writes of earlier passes must be visible to this one.
		if i > 0 {
			encoder.TransitionBuffers(storageBarriers(storage, gputypes.BufferUsageStorage))
		}

		cp := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: pl.k.Name()})
		cp.SetPipeline(pl.res.pipeline)
		cp.SetBindGroup(0, bg, nil)
		cp.Dispatch(uint32(p.Groups.X), uint32(p.Groups.Y), uint32(p.Groups.Z))
		cp.End()

		for _, b := range bufs {
			if b == nil || seen[b] {
				continue
			}
			seen[b] = true
			if b.desc.Usage.Has(compute.UsageStorage) || b.staging != nil {
				storage = append(storage, b)
			}
			if b.staging != nil {
				readback = append(readback, b)
			}
		}
	}

	if len(readback) > 0 {
		encoder.TransitionBuffers(storageBarriers(readback, gputypes.BufferUsageCopySrc))
		for _, b := range readback {
			encoder.CopyBufferToBuffer(b.buf, b.staging, []hal.BufferCopy{
				{SrcOffset: 0, DstOffset: 0, Size: b.size},
			})
		}
	}

	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmd)

	if _, err := d.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait idle: %w", err)
	}
	d.epoch++

	slogger().Debug("gpu: submitted", "passes", len(passes), "readbacks", len(readback))
	return nil
}

// resolvePass checks p and unwraps its pipeline and buffers. The entry for
// the constants slot stays nil.
func (d *Device) resolvePass(p compute.Pass) (*Pipeline, []*Buffer, error) {
	if err := compute.CheckPass(p); err != nil {
		return nil, nil, err
	}
	pl, ok := p.Pipeline.(*Pipeline)
	if !ok || pl.dev != d {
		return nil, nil, compute.ErrForeignObject
	}
	if pl.res == nil {
		return nil, nil, fmt.Errorf("%s: pipeline destroyed", pl.k.Name())
	}

	bindings := pl.k.Bindings()
	bufs := make([]*Buffer, len(p.Buffers))
	for i, cb := range p.Buffers {
		if cb == nil {
			continue
		}
		b, ok := cb.(*Buffer)
		if !ok || b.dev != d {
			return nil, nil, compute.ErrForeignObject
		}
		if b.buf == nil {
			return nil, nil, compute.ErrBufferDestroyed
		}
		want := compute.UsageStorage
		if bindings[i].Kind.Uniform() {
			want = compute.UsageUniform
		}
		if !b.desc.Usage.Has(want) {
			return nil, nil, fmt.Errorf("%w: %q (%s) bound as %s", ErrBindingUsage, b.desc.Label, b.desc.Usage, bindings[i].Kind)
		}
		bufs[i] = b
	}
	return pl, bufs, nil
}

// bindPass creates the bind group of one pass, uploading the constants
// into a fresh uniform buffer.
func (d *Device) bindPass(pl *Pipeline, bufs []*Buffer, constants []byte, tmp *transients) (hal.BindGroup, error) {
	entries := make([]gputypes.BindGroupEntry, len(bufs))
	for i, b := range bufs {
		if b != nil {
			entries[i] = gputypes.BindGroupEntry{
				Binding:  uint32(i),
				Resource: gputypes.BufferBinding{Buffer: b.buf.NativeHandle(), Offset: 0, Size: b.size},
			}
			continue
		}

		ub, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: pl.k.Name() + "_constants",
			Size:  kernel.UniformSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst | gputypes.BufferUsageMapWrite,
		})
		if err != nil {
			return nil, fmt.Errorf("create constants buffer: %w", err)
		}
		tmp.buffers = append(tmp.buffers, ub)
		if err := d.queue.WriteBuffer(ub, 0, constants[:kernel.UniformSize]); err != nil {
			return nil, fmt.Errorf("write constants: %w", err)
		}
		entries[i] = gputypes.BindGroupEntry{
			Binding:  uint32(i),
			Resource: gputypes.BufferBinding{Buffer: ub.NativeHandle(), Offset: 0, Size: kernel.UniformSize},
		}
	}

	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   pl.k.Name() + "_bind",
		Layout:  pl.res.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	tmp.bindGroups = append(tmp.bindGroups, bg)
	return bg, nil
}

func storageBarriers(bufs []*Buffer, next gputypes.BufferUsage) []hal.BufferBarrier {
	barriers := make([]hal.BufferBarrier, len(bufs))
	for i, b := range bufs {
		barriers[i] = hal.BufferBarrier{
			Buffer: b.buf,
			Usage: hal.BufferUsageTransition{
				OldUsage: gputypes.BufferUsageStorage,
				NewUsage: next,
			},
		}
	}
	return barriers
}

// Close implements compute.Device. Devices obtained from a provider are
// not destroyed; the provider owns them.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.device.WaitIdle(); err != nil {
		slogger().Warn("gpu: wait idle on close", "err", err)
	}
	if d.release != nil {
		d.release()
	}
	slogger().Debug("gpu: device closed", "name", d.name, "memory", d.memory.Stats().String())
	return nil
}

// Buffer is a device buffer with an optional staging copy for readback.
type Buffer struct {
	dev      *Device
	desc     compute.BufferDesc
	size     uint64
	reserved uint64
	buf      hal.Buffer
	staging  hal.Buffer

	readback []byte
	epoch    uint64
}

// Size implements compute.Buffer.
func (b *Buffer) Size() int { return b.desc.Size }

// Usage implements compute.Buffer.
func (b *Buffer) Usage() compute.BufferUsage { return b.desc.Usage }

// Write implements compute.Buffer.
func (b *Buffer) Write(data []byte) error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if b.buf == nil {
		return compute.ErrBufferDestroyed
	}
	if len(data) > b.desc.Size {
		return fmt.Errorf("%w: %d > %d", compute.ErrWriteOutOfRange, len(data), b.desc.Size)
	}
	if err := b.dev.queue.WriteBuffer(b.buf, 0, data); err != nil {
		return fmt.Errorf("write buffer %q: %w", b.desc.Label, err)
	}
	return nil
}

// Mapped implements compute.Buffer. The staging buffer is mapped, copied
// into host memory and unmapped again; the copy is reused until the next
// Submit.
func (b *Buffer) Mapped() ([]byte, error) {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if b.buf == nil {
		return nil, compute.ErrBufferDestroyed
	}
	if b.staging == nil {
		return nil, compute.ErrNotHostVisible
	}
	if b.readback != nil && b.epoch == b.dev.epoch {
		return b.readback, nil
	}

	mapping, err := b.dev.device.MapBuffer(b.staging, 0, b.size)
	if err != nil {
		return nil, fmt.Errorf("map buffer %q: %w", b.desc.Label, err)
	}
	if b.readback == nil {
		b.readback = make([]byte, b.desc.Size)
	}
	copy(b.readback, unsafe.Slice((*byte)(mapping.Ptr), b.size))
	if err := b.dev.device.UnmapBuffer(b.staging); err != nil {
		return nil, fmt.Errorf("unmap buffer %q: %w", b.desc.Label, err)
	}
	b.epoch = b.dev.epoch
	return b.readback, nil
}

// Destroy implements compute.Buffer.
func (b *Buffer) Destroy() {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if b.buf == nil {
		return
	}
	b.dev.device.DestroyBuffer(b.buf)
	if b.staging != nil {
		b.dev.device.DestroyBuffer(b.staging)
	}
	b.dev.memory.Release(b.reserved)
	b.buf, b.staging, b.readback = nil, nil, nil
}

// Pipeline is a compiled kernel.
type Pipeline struct {
	dev *Device
	k   kernel.Kernel
	res *pipelineResources
}

// Kernel implements compute.Pipeline.
func (p *Pipeline) Kernel() kernel.Kernel { return p.k }

// Destroy implements compute.Pipeline.
func (p *Pipeline) Destroy() {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()

	if p.res != nil {
		p.res.destroy()
		p.res = nil
	}
}
