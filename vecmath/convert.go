package vecmath

import "math"

// ToFloat2 converts an integer vector to float32 per component.
func ToFloat2[T Integer](v Vec2[T]) Float2 {
	return Float2{X: float32(v.X), Y: float32(v.Y)}
}

// ToFloat3 converts an integer vector to float32 per component.
func ToFloat3[T Integer](v Vec3[T]) Float3 {
	return Float3{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}

// ToFloat4 converts an integer vector to float32 per component.
func ToFloat4[T Integer](v Vec4[T]) Float4 {
	return Float4{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z), W: float32(v.W)}
}

// ToInt2 truncates each component toward zero.
func ToInt2(v Float2) Int2 {
	return Int2{X: F32ToI32(v.X), Y: F32ToI32(v.Y)}
}

// ToInt3 truncates each component toward zero.
func ToInt3(v Float3) Int3 {
	return Int3{X: F32ToI32(v.X), Y: F32ToI32(v.Y), Z: F32ToI32(v.Z)}
}

// ToInt4 truncates each component toward zero.
func ToInt4(v Float4) Int4 {
	return Int4{X: F32ToI32(v.X), Y: F32ToI32(v.Y), Z: F32ToI32(v.Z), W: F32ToI32(v.W)}
}

// ToUint2 truncates each component toward zero. Negative values become 0.
func ToUint2(v Float2) Uint2 {
	return Uint2{X: F32ToU32(v.X), Y: F32ToU32(v.Y)}
}

// ToUint3 truncates each component toward zero. Negative values become 0.
func ToUint3(v Float3) Uint3 {
	return Uint3{X: F32ToU32(v.X), Y: F32ToU32(v.Y), Z: F32ToU32(v.Z)}
}

// ToUint4 truncates each component toward zero. Negative values become 0.
func ToUint4(v Float4) Uint4 {
	return Uint4{X: F32ToU32(v.X), Y: F32ToU32(v.Y), Z: F32ToU32(v.Z), W: F32ToU32(v.W)}
}

// F32ToI32 converts f to int32 the way a shader cast does: truncation toward
// zero, saturation at the int32 range, and 0 for NaN.
func F32ToI32(f float32) int32 {
	switch {
	case math.IsNaN(float64(f)):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int32(f)
}

// F32ToU32 converts f to uint32 with truncation toward zero, saturating at
// 0 and MaxUint32. NaN converts to 0.
func F32ToU32(f float32) uint32 {
	switch {
	case math.IsNaN(float64(f)), f <= 0:
		return 0
	case f >= math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(f)
}
