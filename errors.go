package shadercompat

import "errors"

var (
	// ErrHalted is returned by Run calls after a mismatch halted the App.
	// Reset re-arms it.
	ErrHalted = errors.New("shadercompat: halted after cross-validation mismatch")

	// ErrMismatch is returned by the Run call whose comparison failed. The
	// returned Result carries the Mismatch.
	ErrMismatch = errors.New("shadercompat: device and CPU outputs differ")

	// ErrInitFailed wraps any device resource failure while building an App.
	ErrInitFailed = errors.New("shadercompat: failed to initialize")

	// ErrNilDevice is returned by NewApp without a device.
	ErrNilDevice = errors.New("shadercompat: nil device")

	// ErrInvalidOption is returned by NewApp for out-of-range options.
	ErrInvalidOption = errors.New("shadercompat: invalid option")

	// ErrClosed is returned by Run calls on a closed App.
	ErrClosed = errors.New("shadercompat: app is closed")
)
