package parallel

import "errors"

var (
	// ErrBadAlignment is returned when an alignment is not a positive power of two.
	ErrBadAlignment = errors.New("parallel: alignment must be a positive power of two")

	// ErrAllocFailed is returned when an aligned block cannot be provided.
	ErrAllocFailed = errors.New("parallel: aligned allocation failed")

	// ErrNoTaskGroup is returned by Launch on a handle that has no task group.
	// A task group is established by Alloc and released by Sync.
	ErrNoTaskGroup = errors.New("parallel: launch without task group (call Alloc first)")

	// ErrLaunchInFlight is returned when a handle is launched twice without Sync.
	ErrLaunchInFlight = errors.New("parallel: launch already in flight on this handle")

	// ErrInvalidCount is returned for launch counts below one or whose
	// product does not fit in an int.
	ErrInvalidCount = errors.New("parallel: launch counts must be positive")

	// ErrNilKernel is returned when Launch is called without a kernel function.
	ErrNilKernel = errors.New("parallel: nil kernel function")

	// ErrWorkerPanic reports a worker that panicked while running a kernel.
	// Results of the launch must not be used.
	ErrWorkerPanic = errors.New("parallel: worker panicked")
)
