// Package vecmath provides fixed-size shader-style vectors for kernels that
// must run unchanged on the CPU and on a GPU device.
//
// Vectors are small value types over the four shading-language scalars:
// int32, uint32, float32 and bool. Element access uses the named fields
// X, Y, Z and W, and every constructor fills them in that order:
//
//	p := vecmath.V2[int32](3, 4)
//	f := vecmath.ToFloat2(p)       // Float2{3, 4}
//	d := vecmath.Length2(f)        // 5
//
// # Numeric semantics
//
// Conversions follow shader casting rules. Float to integer conversion
// truncates toward zero and saturates at the bounds of the destination type;
// NaN converts to zero. Integer to float conversion yields the nearest
// representable float32.
//
// [Dot2], [Dot3] and [Dot4] round every product to float32 and accumulate in
// x, y, z, w order. The explicit rounding keeps the compiler from fusing a
// multiply and an add, so the CPU result matches a device that evaluates the
// same expression one operation at a time. Length is the correctly rounded
// square root of that dot product, and the length of a zero vector is exactly 0.
package vecmath
