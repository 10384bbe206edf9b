package parallel

import (
	"fmt"
	"unsafe"
)

// maxAllocSize bounds a single aligned block. Larger requests fail with
// ErrAllocFailed instead of panicking inside make.
const maxAllocSize = 1 << 40

// AlignedAlloc returns a zeroed block of size bytes whose first byte is
// aligned to alignment. The block is ordinary Go memory: it stays valid for
// as long as the caller references it.
func AlignedAlloc(size, alignment int) ([]byte, error) {
	if alignment <= 0 || alignment&(alignment-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadAlignment, alignment)
	}
	if size < 0 || size > maxAllocSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrAllocFailed, size)
	}

	raw := make([]byte, size+alignment-1)
	off := 0
	if len(raw) > 0 {
		addr := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
		if rem := int(addr & uintptr(alignment-1)); rem != 0 {
			off = alignment - rem
		}
	}
	return raw[off : off+size : off+size], nil
}

// IsAligned reports whether the first byte of b is aligned to alignment.
// Empty slices are always aligned.
func IsAligned(b []byte, alignment int) bool {
	if len(b) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))&uintptr(alignment-1) == 0
}
