//go:build opencl

package opencl

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"

	"github.com/gogpu/shadercompat/compute"
	"github.com/gogpu/shadercompat/kernel"
)

// Device is a compute.Device backed by one OpenCL device and an in-order
// command queue. Every kernel in kernel.OpenCLSource is built once at Open.
//
// Uniform bindings are passed as ordinary global buffers, so the argument
// list of each __kernel matches the binding order of its Kernel. Per-pass
// constants are uploaded into a transient 16-byte buffer.
type Device struct {
	mu      sync.Mutex
	name    string
	context *cl.Context
	queue   *cl.CommandQueue
	program *cl.Program
	closed  bool
}

// Open selects the first GPU device of any platform, falling back to the
// first CPU device, and builds the kernel program for it.
func Open() (*Device, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "opencl: querying platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms"
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	if len(platforms) == 0 {
		return nil, ErrNoPlatform
	}

	device := pickDevice(platforms, cl.DeviceTypeGPU)
	if device == nil {
		device = pickDevice(platforms, cl.DeviceTypeCPU)
	}
	if device == nil {
		return nil, ErrNoDevice
	}

	context, err := cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, fmt.Errorf("opencl: creating context: %w", err)
	}
	queue, err := context.CreateCommandQueue(device, 0)
	if err != nil {
		context.Release()
		return nil, fmt.Errorf("opencl: creating command queue: %w", err)
	}
	program, err := context.CreateProgramWithSource([]string{kernel.OpenCLSource})
	if err != nil {
		queue.Release()
		context.Release()
		return nil, fmt.Errorf("opencl: creating program: %w", err)
	}
	if err := program.BuildProgram([]*cl.Device{device}, ""); err != nil {
		program.Release()
		queue.Release()
		context.Release()
		if buildErr, ok := err.(cl.BuildError); ok {
			return nil, fmt.Errorf("opencl: building program: %s", string(buildErr))
		}
		return nil, fmt.Errorf("opencl: building program: %w", err)
	}

	d := &Device{
		name:    "opencl: " + device.Name(),
		context: context,
		queue:   queue,
		program: program,
	}
	slogger().Info("opencl: device opened", "device", device.Name())
	return d, nil
}

func pickDevice(platforms []*cl.Platform, typ cl.DeviceType) *cl.Device {
	for _, p := range platforms {
		devices, err := p.GetDevices(typ)
		if err != nil && err != cl.ErrDeviceNotFound {
			continue
		}
		if len(devices) > 0 {
			return devices[0]
		}
	}
	return nil
}

// Name implements compute.Device.
func (d *Device) Name() string { return d.name }

// CreateBuffer implements compute.Device.
func (d *Device) CreateBuffer(desc compute.BufferDesc) (compute.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, compute.ErrDeviceClosed
	}
	if desc.Size <= 0 {
		return nil, fmt.Errorf("%w: %q has %d bytes", compute.ErrInvalidBufferSize, desc.Label, desc.Size)
	}
	mem, err := d.context.CreateEmptyBuffer(cl.MemReadWrite, desc.Size)
	if err != nil {
		return nil, fmt.Errorf("opencl: allocating %q: %w", desc.Label, err)
	}
	b := &Buffer{dev: d, desc: desc, mem: mem}
	if desc.Usage.Has(compute.UsageHostVisible) {
		b.host = make([]byte, desc.Size)
	}
	slogger().Debug("opencl: buffer created", "label", desc.Label, "size", desc.Size, "usage", desc.Usage)
	return b, nil
}

// CreatePipeline implements compute.Device.
func (d *Device) CreatePipeline(k kernel.Kernel) (compute.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, compute.ErrDeviceClosed
	}
	name := k.Shader().CLKernel
	ck, err := d.program.CreateKernel(name)
	if err != nil {
		return nil, fmt.Errorf("opencl: creating kernel %s: %w", name, err)
	}
	return &Pipeline{dev: d, k: k, kernel: ck}, nil
}

// Submit implements compute.Device. Passes are enqueued in order on the
// in-order queue, then the queue is drained and host-visible buffers are
// read back.
func (d *Device) Submit(passes []compute.Pass) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return compute.ErrDeviceClosed
	}

	var transient []*cl.MemObject
	defer func() {
		for _, m := range transient {
			m.Release()
		}
	}()

	var readback []*Buffer
	seen := make(map[*Buffer]bool)
	for i, p := range passes {
		pl, bufs, err := d.resolvePass(p)
		if err != nil {
			return fmt.Errorf("opencl: pass %d: %w", i, err)
		}
		for slot, b := range pl.k.Bindings() {
			var mem *cl.MemObject
			if b.Kind == kernel.Constants {
				mem, err = d.constantsBuffer(p.Constants)
				if err != nil {
					return fmt.Errorf("opencl: pass %d: %w", i, err)
				}
				transient = append(transient, mem)
			} else {
				mem = bufs[slot].mem
				if bufs[slot].host != nil && !seen[bufs[slot]] {
					seen[bufs[slot]] = true
					readback = append(readback, bufs[slot])
				}
			}
			if err := pl.kernel.SetArgBuffer(slot, mem); err != nil {
				return fmt.Errorf("opencl: pass %d: binding %d: %w", i, slot, err)
			}
		}

		ws := pl.k.WorkgroupSize()
		global := []int{
			p.Groups.X * int(ws.X),
			p.Groups.Y * int(ws.Y),
			p.Groups.Z * int(ws.Z),
		}
		local := []int{int(ws.X), int(ws.Y), int(ws.Z)}
		if _, err := d.queue.EnqueueNDRangeKernel(pl.kernel, nil, global, local, nil); err != nil {
			return fmt.Errorf("opencl: pass %d: enqueue %s: %w", i, pl.k.Name(), err)
		}
	}

	if err := d.queue.Finish(); err != nil {
		return fmt.Errorf("opencl: finish: %w", err)
	}
	for _, b := range readback {
		if _, err := d.queue.EnqueueReadBuffer(b.mem, true, 0, len(b.host), unsafe.Pointer(&b.host[0]), nil); err != nil {
			return fmt.Errorf("opencl: reading %q: %w", b.desc.Label, err)
		}
	}
	slogger().Debug("opencl: submitted", "passes", len(passes), "readbacks", len(readback))
	return nil
}

func (d *Device) resolvePass(p compute.Pass) (*Pipeline, []*Buffer, error) {
	if err := compute.CheckPass(p); err != nil {
		return nil, nil, err
	}
	pl, ok := p.Pipeline.(*Pipeline)
	if !ok || pl.dev != d {
		return nil, nil, compute.ErrForeignObject
	}
	if pl.kernel == nil {
		return nil, nil, fmt.Errorf("%w: pipeline %s destroyed", compute.ErrBadPass, pl.k.Name())
	}
	bufs := make([]*Buffer, len(p.Buffers))
	for i, b := range p.Buffers {
		if b == nil {
			continue
		}
		cb, ok := b.(*Buffer)
		if !ok || cb.dev != d {
			return nil, nil, compute.ErrForeignObject
		}
		if cb.mem == nil {
			return nil, nil, compute.ErrBufferDestroyed
		}
		bufs[i] = cb
	}
	return pl, bufs, nil
}

func (d *Device) constantsBuffer(data []byte) (*cl.MemObject, error) {
	mem, err := d.context.CreateEmptyBuffer(cl.MemReadOnly, kernel.UniformSize)
	if err != nil {
		return nil, fmt.Errorf("allocating constants: %w", err)
	}
	if _, err := d.queue.EnqueueWriteBuffer(mem, true, 0, kernel.UniformSize, unsafe.Pointer(&data[0]), nil); err != nil {
		mem.Release()
		return nil, fmt.Errorf("writing constants: %w", err)
	}
	return mem, nil
}

// Close implements compute.Device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	err := d.queue.Finish()
	d.program.Release()
	d.queue.Release()
	d.context.Release()
	slogger().Debug("opencl: device closed", "name", d.name)
	if err != nil {
		return fmt.Errorf("opencl: finish: %w", err)
	}
	return nil
}

// Buffer is an OpenCL memory object. Host-visible buffers keep a host copy
// refreshed by every Submit that binds them.
type Buffer struct {
	dev  *Device
	desc compute.BufferDesc
	mem  *cl.MemObject
	host []byte
}

// Size implements compute.Buffer.
func (b *Buffer) Size() int { return b.desc.Size }

// Usage implements compute.Buffer.
func (b *Buffer) Usage() compute.BufferUsage { return b.desc.Usage }

// Write implements compute.Buffer.
func (b *Buffer) Write(data []byte) error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if b.mem == nil {
		return compute.ErrBufferDestroyed
	}
	if len(data) > b.desc.Size {
		return fmt.Errorf("%w: %d > %d", compute.ErrWriteOutOfRange, len(data), b.desc.Size)
	}
	if len(data) == 0 {
		return nil
	}
	if _, err := b.dev.queue.EnqueueWriteBuffer(b.mem, true, 0, len(data), unsafe.Pointer(&data[0]), nil); err != nil {
		return fmt.Errorf("opencl: writing %q: %w", b.desc.Label, err)
	}
	if b.host != nil {
		copy(b.host, data)
	}
	return nil
}

// Mapped implements compute.Buffer.
func (b *Buffer) Mapped() ([]byte, error) {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if b.mem == nil {
		return nil, compute.ErrBufferDestroyed
	}
	if b.host == nil {
		return nil, compute.ErrNotHostVisible
	}
	return b.host, nil
}

// Destroy implements compute.Buffer.
func (b *Buffer) Destroy() {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()

	if b.mem == nil {
		return
	}
	b.mem.Release()
	b.mem, b.host = nil, nil
}

// Pipeline is a kernel object created from the shared program.
type Pipeline struct {
	dev    *Device
	k      kernel.Kernel
	kernel *cl.Kernel
}

// Kernel implements compute.Pipeline.
func (p *Pipeline) Kernel() kernel.Kernel { return p.k }

// Destroy implements compute.Pipeline.
func (p *Pipeline) Destroy() {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()

	if p.kernel != nil {
		p.kernel.Release()
		p.kernel = nil
	}
}
