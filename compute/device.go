// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package compute defines the device abstraction the harness dispatches
// kernels through.
//
// A Device owns buffers and pipelines and executes ordered sequences of
// compute passes. Submit blocks until every pass has completed and every
// host-visible buffer holds the results, so a Submit call is one full
// device round trip. Implementations live in internal/gpu (wgpu HAL),
// internal/opencl and in this package (ReferenceDevice).
package compute

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/shadercompat/internal/parallel"
	"github.com/gogpu/shadercompat/kernel"
)

var (
	// ErrDeviceClosed is returned by operations on a closed device.
	ErrDeviceClosed = errors.New("compute: device is closed")

	// ErrBufferDestroyed is returned by operations on a destroyed buffer.
	ErrBufferDestroyed = errors.New("compute: buffer has been destroyed")

	// ErrNotHostVisible is returned by Mapped for buffers created without
	// UsageHostVisible.
	ErrNotHostVisible = errors.New("compute: buffer is not host-visible")

	// ErrInvalidBufferSize is returned for zero or negative buffer sizes.
	ErrInvalidBufferSize = errors.New("compute: invalid buffer size")

	// ErrWriteOutOfRange is returned when Write data exceeds the buffer.
	ErrWriteOutOfRange = errors.New("compute: write exceeds buffer size")

	// ErrForeignObject is returned when a buffer or pipeline created by
	// another device is passed to Submit.
	ErrForeignObject = errors.New("compute: object belongs to another device")

	// ErrBadPass is returned for passes whose bindings do not match the
	// pipeline's kernel.
	ErrBadPass = errors.New("compute: malformed pass")
)

// BufferUsage is a set of buffer capabilities.
type BufferUsage uint8

const (
	// UsageStorage allows binding as a storage buffer.
	UsageStorage BufferUsage = 1 << iota

	// UsageUniform allows binding as a parameter block.
	UsageUniform

	// UsageHostVisible makes the buffer contents readable through Mapped
	// after Submit returns.
	UsageHostVisible
)

// Has reports whether u contains every flag in f.
func (u BufferUsage) Has(f BufferUsage) bool { return u&f == f }

func (u BufferUsage) String() string {
	if u == 0 {
		return "none"
	}
	var parts []string
	for _, f := range []struct {
		flag BufferUsage
		name string
	}{{UsageStorage, "storage"}, {UsageUniform, "uniform"}, {UsageHostVisible, "host-visible"}} {
		if u.Has(f.flag) {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// BufferDesc describes a buffer to create.
type BufferDesc struct {
	Label string
	Size  int
	Usage BufferUsage
}

// Buffer is a device buffer.
type Buffer interface {
	// Size returns the buffer size in bytes.
	Size() int

	// Usage returns the usage the buffer was created with.
	Usage() BufferUsage

	// Write copies data to the start of the buffer. It must not be called
	// while a Submit using the buffer is in progress.
	Write(data []byte) error

	// Mapped returns a host view of the buffer contents as of the last
	// completed Submit. The view stays valid until the buffer is destroyed
	// and must not be modified.
	Mapped() ([]byte, error)

	// Destroy releases the buffer. It is safe to call more than once.
	Destroy()
}

// Pipeline is a kernel prepared for dispatch on one device.
type Pipeline interface {
	Kernel() kernel.Kernel
	Destroy()
}

// Pass is one dispatch of a pipeline.
type Pass struct {
	Pipeline Pipeline

	// Buffers is indexed like the kernel's bindings. The entry for a
	// kernel.Constants binding is nil; its contents come from Constants.
	Buffers []Buffer

	// Constants is the per-pass root constant block, if the kernel has a
	// kernel.Constants binding.
	Constants []byte

	// Groups is the number of thread groups in each dimension.
	Groups parallel.Grid
}

// Device executes compute passes.
type Device interface {
	// Name identifies the device and its backend, e.g. "vulkan: NVIDIA ...".
	Name() string

	CreateBuffer(desc BufferDesc) (Buffer, error)
	CreatePipeline(k kernel.Kernel) (Pipeline, error)

	// Submit executes passes in order. Each pass observes every write of
	// the passes before it. Submit returns after all work has completed.
	Submit(passes []Pass) error

	// Close releases the device. Buffers and pipelines must be destroyed
	// first.
	Close() error
}

// CheckPass verifies the structural shape of p against its kernel: one
// buffer per binding, no buffer in the constants slot, constants present
// exactly when the kernel declares them, and a non-empty group grid.
func CheckPass(p Pass) error {
	if p.Pipeline == nil {
		return fmt.Errorf("%w: nil pipeline", ErrBadPass)
	}
	k := p.Pipeline.Kernel()
	bindings := k.Bindings()
	if len(p.Buffers) != len(bindings) {
		return fmt.Errorf("%w: %s has %d buffers, want %d", ErrBadPass, k.Name(), len(p.Buffers), len(bindings))
	}
	hasConstants := false
	for i, b := range bindings {
		switch {
		case b.Kind == kernel.Constants:
			hasConstants = true
			if p.Buffers[i] != nil {
				return fmt.Errorf("%w: %s binding %d is a constants slot", ErrBadPass, k.Name(), i)
			}
		case p.Buffers[i] == nil:
			return fmt.Errorf("%w: %s binding %d (%s) is unbound", ErrBadPass, k.Name(), i, b.Name)
		}
	}
	if hasConstants && len(p.Constants) < kernel.UniformSize {
		return fmt.Errorf("%w: %s needs a %d-byte constant block", ErrBadPass, k.Name(), kernel.UniformSize)
	}
	if !hasConstants && len(p.Constants) != 0 {
		return fmt.Errorf("%w: %s takes no constants", ErrBadPass, k.Name())
	}
	if p.Groups.Lanes() <= 0 {
		return fmt.Errorf("%w: %s dispatch %v is empty", ErrBadPass, k.Name(), p.Groups)
	}
	return nil
}

// BindArgs assembles kernel arguments from raw binding bytes. views[i] is
// ignored for the constants slot, which receives constants instead.
func BindArgs(k kernel.Kernel, views [][]byte, constants []byte) kernel.Args {
	args := kernel.Args{Buffers: make([][]byte, len(views))}
	for i, b := range k.Bindings() {
		if b.Kind == kernel.Constants {
			args.Buffers[i] = constants
			continue
		}
		args.Buffers[i] = views[i]
	}
	return args
}
