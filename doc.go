// Package shadercompat cross-validates compute kernels between a device
// and native CPU threads.
//
// # Overview
//
// Every kernel in the kernel package has two variants sharing one
// definition: a WGSL/OpenCL C shader for the device and a Go body that the
// CPU task-launch runtime (internal/parallel) runs one thread group per
// task. An App runs a test on both paths with identical inputs and compares
// the outputs elementwise.
//
// # Quick Start
//
//	dev, err := gpu.Open("auto")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
//	app, err := shadercompat.NewApp(dev, shadercompat.WithSize(256, 256))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer app.Close()
//
//	res, err := app.RunDistanceFieldTest()
//	if errors.Is(err, shadercompat.ErrMismatch) {
//		log.Print(res.Mismatch)
//	}
//
// # Tests
//
// RunBasicTest dispatches the elementwise kernel and requires bitwise
// agreement. RunDistanceFieldTest runs the jump-flood pipeline (init, one
// flood pass per power-of-two step with ping-pong seed buffers, resolve)
// and requires agreement within the configured tolerance, 1e-3 by default.
//
// # Halting
//
// The first mismatch halts the App: the mismatch is recorded and every
// later Run call returns ErrHalted without dispatching anything. Reset
// re-arms the App once the divergence has been investigated.
package shadercompat

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
