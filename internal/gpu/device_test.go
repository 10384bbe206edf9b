//go:build !nogpu

package gpu

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/shadercompat/compute"
	"github.com/gogpu/shadercompat/kernel"
)

// createNoopDevice opens a Device on the noop HAL backend. Commands are
// accepted but never executed, so only the API flow can be checked.
func createNoopDevice(t *testing.T) *Device {
	t.Helper()
	d, err := openBackend("noop", noop.API{}, 0, 64)
	if err != nil {
		t.Fatalf("openBackend(noop): %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func createPipeline(t *testing.T, d compute.Device, k kernel.Kernel) compute.Pipeline {
	t.Helper()
	pl, err := d.CreatePipeline(k)
	if err != nil {
		if strings.Contains(err.Error(), "compile shader") {
			skipNagaLimitation(t, err)
		}
		t.Fatalf("CreatePipeline(%s): %v", k.Name(), err)
	}
	t.Cleanup(pl.Destroy)
	return pl
}

func createBuffer(t *testing.T, d compute.Device, size int, usage compute.BufferUsage) compute.Buffer {
	t.Helper()
	b, err := d.CreateBuffer(compute.BufferDesc{Label: "test", Size: size, Usage: usage})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	t.Cleanup(b.Destroy)
	return b
}

func TestNoopDeviceFlow(t *testing.T) {
	d := createNoopDevice(t)
	if !strings.HasPrefix(d.Name(), "noop") {
		t.Errorf("Name() = %q", d.Name())
	}

	const w, h = 20, 20
	field := kernel.FieldParams{Width: w, Height: h, MaxDistance: 8, Threshold: 0.5}
	params := createBuffer(t, d, kernel.UniformSize, compute.UsageUniform)
	img := createBuffer(t, d, w*h*4, compute.UsageStorage)
	seedsA := createBuffer(t, d, kernel.SeedBufferSize(w, h), compute.UsageStorage)
	seedsB := createBuffer(t, d, kernel.SeedBufferSize(w, h), compute.UsageStorage)
	dist := createBuffer(t, d, w*h*4, compute.UsageStorage|compute.UsageHostVisible)
	if err := params.Write(field.Bytes()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	initPl := createPipeline(t, d, kernel.JFAInit)
	floodPl := createPipeline(t, d, kernel.JFAFlood)
	resolvePl := createPipeline(t, d, kernel.JFAResolve)

	seedGroups := kernel.Groups(kernel.JFAInit, w, h, kernel.SeedPlanes)
	passes := []compute.Pass{{Pipeline: initPl, Buffers: []compute.Buffer{params, img, seedsA}, Groups: seedGroups}}
	cur, next := seedsA, seedsB
	for _, step := range kernel.FloodSteps(w, h) {
		passes = append(passes, compute.Pass{
			Pipeline:  floodPl,
			Buffers:   []compute.Buffer{params, nil, cur, next},
			Constants: kernel.PassConstants{Step: step}.Bytes(),
			Groups:    seedGroups,
		})
		cur, next = next, cur
	}
	passes = append(passes, compute.Pass{
		Pipeline: resolvePl,
		Buffers:  []compute.Buffer{params, cur, dist},
		Groups:   kernel.Groups(kernel.JFAResolve, w, h, 1),
	})

	if err := d.Submit(passes); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	out, err := dist.Mapped()
	if err != nil {
		t.Fatalf("Mapped: %v", err)
	}
	if len(out) != w*h*4 {
		t.Errorf("Mapped() length = %d, want %d", len(out), w*h*4)
	}
	again, err := dist.Mapped()
	if err != nil {
		t.Fatal(err)
	}
	if &again[0] != &out[0] {
		t.Error("Mapped() did not reuse the readback between submissions")
	}

	stats := d.MemoryStats()
	if stats.BufferCount != 5 {
		t.Errorf("BufferCount = %d, want 5", stats.BufferCount)
	}
}

func TestNoopDeviceErrors(t *testing.T) {
	d := createNoopDevice(t)
	other := createNoopDevice(t)

	params := createBuffer(t, d, kernel.UniformSize, compute.UsageUniform)
	in := createBuffer(t, d, 64, compute.UsageStorage)
	out := createBuffer(t, d, 64, compute.UsageStorage)
	foreign := createBuffer(t, other, 64, compute.UsageStorage)
	pl := createPipeline(t, d, kernel.Basic)
	groups := kernel.Groups(kernel.Basic, 4, 4, 1)

	tests := []struct {
		name string
		pass compute.Pass
		want error
	}{
		{"foreign buffer", compute.Pass{Pipeline: pl, Buffers: []compute.Buffer{params, in, foreign}, Groups: groups}, compute.ErrForeignObject},
		{"storage as params", compute.Pass{Pipeline: pl, Buffers: []compute.Buffer{in, in, out}, Groups: groups}, ErrBindingUsage},
		{"params as storage", compute.Pass{Pipeline: pl, Buffers: []compute.Buffer{params, params, out}, Groups: groups}, ErrBindingUsage},
		{"missing binding", compute.Pass{Pipeline: pl, Buffers: []compute.Buffer{params, in}, Groups: groups}, compute.ErrBadPass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := d.Submit([]compute.Pass{tt.pass}); !errors.Is(err, tt.want) {
				t.Errorf("Submit() = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := out.Mapped(); !errors.Is(err, compute.ErrNotHostVisible) {
		t.Errorf("Mapped() on device-only buffer = %v", err)
	}
	if err := in.Write(make([]byte, 65)); !errors.Is(err, compute.ErrWriteOutOfRange) {
		t.Errorf("oversized Write = %v", err)
	}
	if _, err := d.CreateBuffer(compute.BufferDesc{Size: -1}); !errors.Is(err, compute.ErrInvalidBufferSize) {
		t.Errorf("CreateBuffer(-1) = %v", err)
	}
}

func TestNoopDeviceBudget(t *testing.T) {
	d := createNoopDevice(t)
	_, err := d.CreateBuffer(compute.BufferDesc{Label: "huge", Size: 65 << 20, Usage: compute.UsageStorage})
	if !errors.Is(err, ErrMemoryBudgetExceeded) {
		t.Fatalf("CreateBuffer over budget = %v", err)
	}
	b := createBuffer(t, d, 1<<20, compute.UsageStorage|compute.UsageHostVisible)
	if got := d.MemoryStats().UsedBytes; got != 2<<20 {
		t.Errorf("UsedBytes = %d, want buffer and staging copy", got)
	}
	b.Destroy()
	if got := d.MemoryStats().UsedBytes; got != 0 {
		t.Errorf("UsedBytes after Destroy = %d", got)
	}
}

func TestNoopDeviceClosed(t *testing.T) {
	d := createNoopDevice(t)
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if _, err := d.CreateBuffer(compute.BufferDesc{Size: 4}); !errors.Is(err, compute.ErrDeviceClosed) {
		t.Errorf("CreateBuffer after Close = %v", err)
	}
	if err := d.Submit([]compute.Pass{{}}); !errors.Is(err, compute.ErrDeviceClosed) {
		t.Errorf("Submit after Close = %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(Config{Backend: "metal-on-a-toaster"}); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Open(unknown) = %v, want ErrUnknownBackend", err)
	}
	got := Backends()
	if len(got) != 2 || got[0] != BackendSoftware || got[1] != BackendVulkan {
		t.Errorf("Backends() = %v", got)
	}
}

func TestSelectAdapter(t *testing.T) {
	adapters := []hal.ExposedAdapter{
		{Info: gputypes.AdapterInfo{Name: "cpu", DeviceType: gputypes.DeviceTypeCPU}},
		{Info: gputypes.AdapterInfo{Name: "igpu", DeviceType: gputypes.DeviceTypeIntegratedGPU}},
		{Info: gputypes.AdapterInfo{Name: "dgpu", DeviceType: gputypes.DeviceTypeDiscreteGPU}},
	}
	if got := selectAdapter(adapters).Info.Name; got != "dgpu" {
		t.Errorf("selectAdapter = %s, want dgpu", got)
	}
	if got := selectAdapter(adapters[:2]).Info.Name; got != "igpu" {
		t.Errorf("selectAdapter = %s, want igpu", got)
	}
	if got := selectAdapter(adapters[:1]).Info.Name; got != "cpu" {
		t.Errorf("selectAdapter = %s, want cpu", got)
	}
}

// halTestProvider implements gpucontext.DeviceProvider plus HAL access.
type halTestProvider struct {
	device hal.Device
	queue  hal.Queue
}

func (p *halTestProvider) Device() gpucontext.Device   { return p.device }
func (p *halTestProvider) Queue() gpucontext.Queue     { return p.queue }
func (p *halTestProvider) Adapter() gpucontext.Adapter { return nil }
func (p *halTestProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}
func (p *halTestProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "Noop", Type: gpucontext.AdapterTypeSoftware}
}
func (p *halTestProvider) HalDevice() any { return p.device }
func (p *halTestProvider) HalQueue() any  { return p.queue }

// plainProvider has no HAL accessors.
type plainProvider struct{ *halTestProvider }

func (plainProvider) HalDevice() {}

func TestFromProvider(t *testing.T) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	defer instance.Destroy()
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer openDev.Device.Destroy()

	d, err := FromProvider(&halTestProvider{device: openDev.Device, queue: openDev.Queue}, 0)
	if err != nil {
		t.Fatalf("FromProvider: %v", err)
	}
	if !strings.Contains(d.Name(), "Noop") {
		t.Errorf("Name() = %q", d.Name())
	}
	b := createBuffer(t, d, 16, compute.UsageStorage)
	if err := b.Write(make([]byte, 16)); err != nil {
		t.Errorf("Write through provider device: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	if _, err := FromProvider(plainProvider{&halTestProvider{}}, 0); !errors.Is(err, ErrNoHALAccess) {
		t.Errorf("FromProvider(no HAL) = %v", err)
	}
	if _, err := FromProvider(&halTestProvider{}, 0); !errors.Is(err, ErrNoHALAccess) {
		t.Errorf("FromProvider(nil device) = %v", err)
	}
	if _, err := FromProvider(nil, 0); !errors.Is(err, ErrNoHALAccess) {
		t.Errorf("FromProvider(nil) = %v", err)
	}
}

// TestBackendBasicKernel runs the basic kernel on a real backend and checks
// it bit for bit against the native variant. Set SHADERCOMPAT_TEST_BACKEND
// to "vulkan" or "software" to enable it.
func TestBackendBasicKernel(t *testing.T) {
	backend := os.Getenv("SHADERCOMPAT_TEST_BACKEND")
	if backend == "" {
		t.Skip("SHADERCOMPAT_TEST_BACKEND not set")
	}
	if testing.Short() {
		t.Skip("skipping GPU integration test in short mode")
	}
	d, err := Open(Config{Backend: backend})
	if err != nil {
		t.Skipf("%s not available: %v", backend, err)
	}
	defer d.Close()

	const w, h = 37, 21
	in := make([]float32, w*h)
	for i := range in {
		in[i] = float32(i%11) * 0.75
	}
	params := createBuffer(t, d, kernel.UniformSize, compute.UsageUniform)
	src := createBuffer(t, d, w*h*4, compute.UsageStorage)
	dst := createBuffer(t, d, w*h*4, compute.UsageStorage|compute.UsageHostVisible)
	_ = params.Write(kernel.BasicParams{Width: w, Height: h}.Bytes())
	_ = src.Write(kernel.F32Bytes(in))
	pl := createPipeline(t, d, kernel.Basic)

	err = d.Submit([]compute.Pass{{
		Pipeline: pl,
		Buffers:  []compute.Buffer{params, src, dst},
		Groups:   kernel.Groups(kernel.Basic, w, h, 1),
	}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	mapped, err := dst.Mapped()
	if err != nil {
		t.Fatalf("Mapped: %v", err)
	}
	got := kernel.F32(mapped)
	for y := range h {
		for x := range w {
			i := y*w + x
			want := in[i] * (float32(x)*0.5 + float32(y)*0.25)
			if got[i] != want {
				t.Fatalf("pixel (%d,%d): device=%v native=%v", x, y, got[i], want)
			}
		}
	}
}
