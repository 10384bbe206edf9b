//go:build !nogpu

// Package gpu runs compute kernels on a GPU through the gogpu/wgpu HAL.
//
// This is an internal package used by the shadercompat harness. It
// implements compute.Device on top of hal.Device: kernel WGSL is compiled
// to SPIR-V with gogpu/naga, bind group layouts are derived from the
// kernel's binding list, and every Submit is encoded into a single command
// buffer.
//
// # Devices
//
// Open creates a private HAL instance on the Vulkan backend (or the wgpu
// software backend, which interprets SPIR-V on the CPU). FromProvider wraps
// the device of a gpucontext.DeviceProvider such as a gogpu window; the
// provider keeps ownership of the device.
//
// # Submission
//
// A submission with passes P0..Pn is recorded as
//
//	P0, barrier, P1, barrier, ..., Pn, barrier, copy host-visible buffers to staging
//
// followed by Queue.Submit and Device.WaitIdle. Readback maps the staging
// buffer, copies it into host memory and unmaps it again.
//
// # Memory
//
// Buffer allocations are tracked by a MemoryBudget. Host-visible buffers
// count twice because each has a staging copy.
//
// # Build tags
//
// Building with -tags nogpu replaces the package with stubs whose
// constructors fail, for hosts without a Vulkan loader.
package gpu
