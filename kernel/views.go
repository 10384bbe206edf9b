package kernel

import "unsafe"

// F32 reinterprets b as float32 values. Trailing bytes that do not form a
// whole value are ignored. b must be 4-byte aligned.
func F32(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(unsafe.SliceData(b))), len(b)/4)
}

// I32 reinterprets b as int32 values. b must be 4-byte aligned.
func I32(b []byte) []int32 {
	if len(b) < 4 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(unsafe.SliceData(b))), len(b)/4)
}

// F32Bytes reinterprets v as its raw bytes without copying.
func F32Bytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(v))), len(v)*4)
}
