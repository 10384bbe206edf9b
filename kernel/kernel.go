// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package kernel defines compute kernels that run identically on a GPU
// device and on CPU threads.
//
// A Kernel has two variants sharing one definition. The native variant is
// Invoke, a Go function executing one invocation of the dispatch grid. The
// device variant is Shader, the WGSL (and OpenCL C) source compiled by a
// device backend. Both variants read their inputs only through the bound
// buffers and the invocation coordinates, never through timers or device
// state, so the same dispatch produces the same output on every backend.
//
// Bindings are described by Bindings. Args.Buffers[i] holds the raw bytes of
// binding i in the little-endian layout the device sees.
package kernel

import (
	"errors"
	"fmt"

	"github.com/gogpu/shadercompat/internal/parallel"
	"github.com/gogpu/shadercompat/vecmath"
)

// TileSize is the edge of the square thread group used by every kernel.
const TileSize = 16

// MaxExtent bounds image width and height. Squared pixel distances of
// images up to this size fit in int32.
const MaxExtent = 16384

var (
	// ErrBindingCount is returned when Args does not match Bindings.
	ErrBindingCount = errors.New("kernel: wrong number of bound buffers")

	// ErrBufferTooSmall is returned when a bound buffer cannot hold the
	// region a dispatch would touch.
	ErrBufferTooSmall = errors.New("kernel: bound buffer too small")

	// ErrInvalidExtent is returned for image sizes outside [1, MaxExtent].
	ErrInvalidExtent = errors.New("kernel: invalid image extent")

	// ErrInvalidParams is returned for parameter blocks a kernel cannot use.
	ErrInvalidParams = errors.New("kernel: invalid parameters")
)

// BindingKind describes how a kernel accesses a bound buffer.
type BindingKind int

const (
	// Params is the immutable parameter block (uniform).
	Params BindingKind = iota

	// Constants is the per-pass root constant block (uniform). Devices
	// supply it from Pass.Constants rather than from a bound buffer.
	Constants

	// ReadOnly is a storage buffer the kernel only reads.
	ReadOnly

	// ReadWrite is a storage buffer the kernel writes.
	ReadWrite
)

func (k BindingKind) String() string {
	switch k {
	case Params:
		return "params"
	case Constants:
		return "constants"
	case ReadOnly:
		return "read-only"
	case ReadWrite:
		return "read-write"
	}
	return fmt.Sprintf("BindingKind(%d)", int(k))
}

// Uniform reports whether the binding is a uniform block.
func (k BindingKind) Uniform() bool { return k == Params || k == Constants }

// Binding is one buffer slot of a kernel. The slot number is its index in
// Kernel.Bindings and equals the @binding attribute in the WGSL source.
type Binding struct {
	Name string
	Kind BindingKind
}

// Shader is the device-compiled variant of a kernel.
type Shader struct {
	// Label names GPU objects created for the kernel.
	Label string

	// WGSL is the complete WGSL module; its entry point is EntryPoint.
	WGSL       string
	EntryPoint string

	// CLKernel is the __kernel function in OpenCLSource implementing the
	// same computation. Arguments follow binding order.
	CLKernel string
}

// Invocation identifies one invocation of a dispatch.
type Invocation struct {
	Global vecmath.Uint3 // Group*WorkgroupSize + Local
	Local  vecmath.Uint3
	Group  vecmath.Uint3
}

// Args holds the buffers bound to one dispatch, indexed like Bindings.
type Args struct {
	Buffers [][]byte
}

// Kernel is a compute kernel with a native and a device variant.
type Kernel interface {
	// Name is a short identifier such as "basic" or "jfa_flood".
	Name() string

	// Bindings lists the buffer slots in binding order.
	Bindings() []Binding

	// WorkgroupSize is the thread-group shape, the same for both variants.
	WorkgroupSize() vecmath.Uint3

	// Shader returns the device variant.
	Shader() Shader

	// Validate checks that args can be dispatched safely.
	Validate(args Args) error

	// Invoke runs one invocation. Invocations outside the image do nothing.
	Invoke(inv Invocation, args Args)
}

// Groups returns the group grid that covers a width x height x depth
// dispatch of k.
func Groups(k Kernel, width, height, depth int) parallel.Grid {
	ws := k.WorkgroupSize()
	return parallel.GroupsFor(width, height, depth, int(ws.X), int(ws.Y), int(ws.Z))
}

// checkBindings verifies the binding count and the parameter block size.
func checkBindings(k Kernel, args Args) error {
	bindings := k.Bindings()
	if len(args.Buffers) != len(bindings) {
		return fmt.Errorf("%w: %s has %d, want %d", ErrBindingCount, k.Name(), len(args.Buffers), len(bindings))
	}
	for i, b := range bindings {
		if b.Kind.Uniform() && len(args.Buffers[i]) < UniformSize {
			return fmt.Errorf("%w: %s %q is %d bytes, want %d", ErrBufferTooSmall, k.Name(), b.Name, len(args.Buffers[i]), UniformSize)
		}
	}
	return nil
}

// checkSize verifies that binding slot holds at least want bytes.
func checkSize(k Kernel, args Args, slot, want int) error {
	if got := len(args.Buffers[slot]); got < want {
		return fmt.Errorf("%w: %s %q is %d bytes, want %d", ErrBufferTooSmall, k.Name(), k.Bindings()[slot].Name, got, want)
	}
	return nil
}

func checkExtent(width, height uint32) error {
	if width < 1 || height < 1 || width > MaxExtent || height > MaxExtent {
		return fmt.Errorf("%w: %dx%d", ErrInvalidExtent, width, height)
	}
	return nil
}

var tile = vecmath.Uint3{X: TileSize, Y: TileSize, Z: 1}
