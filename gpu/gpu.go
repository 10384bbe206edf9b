// Package gpu selects the device a cross-validation run dispatches to.
//
// Open accepts a backend name and returns a compute.Device:
//
//	"vulkan"     wgpu HAL on Vulkan
//	"software"   wgpu HAL software backend
//	"opencl"     OpenCL (requires building with -tags opencl)
//	"reference"  the in-process ReferenceDevice, no GPU involved
//	"auto"       vulkan, then opencl, then reference
//
// Usage:
//
//	dev, err := gpu.Open("auto")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//	app, err := shadercompat.NewApp(dev)
package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"

	shadercompat "github.com/gogpu/shadercompat"
	"github.com/gogpu/shadercompat/compute"
	gpuimpl "github.com/gogpu/shadercompat/internal/gpu"
	"github.com/gogpu/shadercompat/internal/opencl"
)

// Backend names accepted by Open.
const (
	Auto      = "auto"
	Vulkan    = gpuimpl.BackendVulkan
	Software  = gpuimpl.BackendSoftware
	OpenCL    = "opencl"
	Reference = "reference"
)

// ErrUnknownBackend is returned by Open for names it does not recognize.
var ErrUnknownBackend = errors.New("gpu: unknown backend")

// Config configures Open.
type Config struct {
	// Backend is one of the names above. Empty means Auto.
	Backend string

	// MemoryMB caps device memory for the wgpu backends. Zero uses the
	// default budget.
	MemoryMB int

	// Workers sizes the reference device pool. Zero uses GOMAXPROCS.
	Workers int
}

// Backends returns every name Open accepts.
func Backends() []string {
	return []string{Auto, Vulkan, Software, OpenCL, Reference}
}

// Open opens the named backend with default settings.
func Open(name string) (compute.Device, error) {
	return OpenConfig(Config{Backend: name})
}

// OpenConfig opens the device described by cfg.
func OpenConfig(cfg Config) (compute.Device, error) {
	switch cfg.Backend {
	case Vulkan, Software:
		dev, err := gpuimpl.Open(gpuimpl.Config{Backend: cfg.Backend, MemoryMB: cfg.MemoryMB})
		if err != nil {
			return nil, err
		}
		return dev, nil
	case OpenCL:
		dev, err := opencl.Open()
		if err != nil {
			return nil, err
		}
		return dev, nil
	case Reference:
		return compute.NewReferenceDevice(cfg.Workers), nil
	case Auto, "":
		return openAuto(cfg)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}

// openAuto tries the hardware backends in order and falls back to the
// reference device when none of them can be opened.
func openAuto(cfg Config) (compute.Device, error) {
	var errs []error
	for _, name := range []string{Vulkan, OpenCL} {
		next := cfg
		next.Backend = name
		dev, err := OpenConfig(next)
		if err == nil {
			return dev, nil
		}
		shadercompat.Logger().Warn("gpu: backend unavailable", "backend", name, "err", err)
		errs = append(errs, err)
	}
	shadercompat.Logger().Warn("gpu: falling back to reference device", "err", errors.Join(errs...))
	return compute.NewReferenceDevice(cfg.Workers), nil
}

// FromProvider wraps the device and queue of a host application, so the
// harness shares its GPU instead of opening a second instance.
//
// The provider must also expose its HAL device and queue, as gogpu's
// providers do.
func FromProvider(provider gpucontext.DeviceProvider, memoryMB int) (compute.Device, error) {
	dev, err := gpuimpl.FromProvider(provider, memoryMB)
	if err != nil {
		return nil, err
	}
	return dev, nil
}
