// Package opencl implements compute.Device on top of OpenCL.
//
// The device is only available when the module is built with the opencl
// build tag, which links against the system OpenCL ICD loader. Without the
// tag Open returns ErrUnavailable.
package opencl

import "errors"

var (
	// ErrUnavailable is returned by Open in builds without the opencl tag.
	ErrUnavailable = errors.New("opencl: support is not enabled; rebuild with -tags opencl")

	// ErrNoPlatform is returned when the ICD loader reports no platform.
	ErrNoPlatform = errors.New("opencl: no platforms available; ensure a vendor driver is installed and detected by `clinfo`")

	// ErrNoDevice is returned when no platform exposes a GPU or CPU device.
	ErrNoDevice = errors.New("opencl: no suitable devices found")
)
