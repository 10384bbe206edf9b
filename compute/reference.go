// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import (
	"fmt"
	"sync"

	"github.com/gogpu/shadercompat/internal/parallel"
	"github.com/gogpu/shadercompat/kernel"
)

// bufferAlignment matches the minimum storage buffer offset alignment of
// common GPUs.
const bufferAlignment = 256

// ReferenceDevice executes passes by running the native kernel variant for
// every invocation of the dispatch on a worker pool. It emulates the device
// side of a run without a GPU, so a comparison against the CPU path checks
// the harness plumbing rather than a shader compiler.
type ReferenceDevice struct {
	mu     sync.Mutex
	pool   *parallel.WorkerPool
	closed bool
	passes int
}

// NewReferenceDevice returns a device backed by a pool of workers
// goroutines. workers <= 0 uses GOMAXPROCS.
func NewReferenceDevice(workers int) *ReferenceDevice {
	return &ReferenceDevice{pool: parallel.NewWorkerPool(workers)}
}

// Name implements Device.
func (d *ReferenceDevice) Name() string {
	return fmt.Sprintf("reference (%d workers)", d.pool.Workers())
}

// PassCount returns the number of passes executed so far.
func (d *ReferenceDevice) PassCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.passes
}

// CreateBuffer implements Device.
func (d *ReferenceDevice) CreateBuffer(desc BufferDesc) (Buffer, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	if desc.Size <= 0 {
		return nil, fmt.Errorf("%w: %q has %d bytes", ErrInvalidBufferSize, desc.Label, desc.Size)
	}
	data, err := parallel.AlignedAlloc(desc.Size, bufferAlignment)
	if err != nil {
		return nil, fmt.Errorf("compute: buffer %q: %w", desc.Label, err)
	}
	return &refBuffer{dev: d, desc: desc, data: data}, nil
}

// CreatePipeline implements Device.
func (d *ReferenceDevice) CreatePipeline(k kernel.Kernel) (Pipeline, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	return &refPipeline{dev: d, k: k, run: kernel.TaskFunc(k)}, nil
}

// Submit implements Device. Passes run one after another; the invocations
// of a pass run concurrently, one pool task per thread group.
func (d *ReferenceDevice) Submit(passes []Pass) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	for i, p := range passes {
		if err := d.runPass(p); err != nil {
			return fmt.Errorf("compute: pass %d: %w", i, err)
		}
	}
	d.mu.Lock()
	d.passes += len(passes)
	d.mu.Unlock()
	return nil
}

func (d *ReferenceDevice) runPass(p Pass) error {
	if err := CheckPass(p); err != nil {
		return err
	}
	pl, ok := p.Pipeline.(*refPipeline)
	if !ok || pl.dev != d {
		return ErrForeignObject
	}
	views := make([][]byte, len(p.Buffers))
	for i, b := range p.Buffers {
		if b == nil {
			continue
		}
		rb, ok := b.(*refBuffer)
		if !ok || rb.dev != d {
			return ErrForeignObject
		}
		if rb.data == nil {
			return ErrBufferDestroyed
		}
		views[i] = rb.data
	}
	args := BindArgs(pl.k, views, p.Constants)
	if err := pl.k.Validate(args); err != nil {
		return err
	}

	g := p.Groups
	total := g.Lanes()
	return d.pool.ExecuteRange(total, func(lane int) {
		i0, i1, i2 := g.Coord(lane)
		pl.run(args, 0, 1, lane, total, i0, i1, i2, g.X, g.Y, g.Z)
	})
}

// Close implements Device.
func (d *ReferenceDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.pool.Close()
	return nil
}

func (d *ReferenceDevice) checkOpen() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDeviceClosed
	}
	return nil
}

type refBuffer struct {
	dev  *ReferenceDevice
	desc BufferDesc
	data []byte
}

func (b *refBuffer) Size() int          { return b.desc.Size }
func (b *refBuffer) Usage() BufferUsage { return b.desc.Usage }

func (b *refBuffer) Write(data []byte) error {
	if b.data == nil {
		return ErrBufferDestroyed
	}
	if len(data) > len(b.data) {
		return fmt.Errorf("%w: %d > %d", ErrWriteOutOfRange, len(data), len(b.data))
	}
	copy(b.data, data)
	return nil
}

func (b *refBuffer) Mapped() ([]byte, error) {
	if b.data == nil {
		return nil, ErrBufferDestroyed
	}
	if !b.desc.Usage.Has(UsageHostVisible) {
		return nil, ErrNotHostVisible
	}
	return b.data, nil
}

func (b *refBuffer) Destroy() { b.data = nil }

type refPipeline struct {
	dev *ReferenceDevice
	k   kernel.Kernel
	run parallel.KernelFunc
}

func (p *refPipeline) Kernel() kernel.Kernel { return p.k }
func (p *refPipeline) Destroy()              {}
