package vecmath

// Add2 returns a + b per component.
func Add2[T Number](a, b Vec2[T]) Vec2[T] { return Vec2[T]{X: a.X + b.X, Y: a.Y + b.Y} }

// Sub2 returns a - b per component.
func Sub2[T Number](a, b Vec2[T]) Vec2[T] { return Vec2[T]{X: a.X - b.X, Y: a.Y - b.Y} }

// Mul2 returns a * b per component.
func Mul2[T Number](a, b Vec2[T]) Vec2[T] { return Vec2[T]{X: a.X * b.X, Y: a.Y * b.Y} }

// Scale2 returns v * s per component.
func Scale2[T Number](v Vec2[T], s T) Vec2[T] { return Vec2[T]{X: v.X * s, Y: v.Y * s} }

// Add3 returns a + b per component.
func Add3[T Number](a, b Vec3[T]) Vec3[T] {
	return Vec3[T]{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z}
}

// Sub3 returns a - b per component.
func Sub3[T Number](a, b Vec3[T]) Vec3[T] {
	return Vec3[T]{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}

// Mul3 returns a * b per component.
func Mul3[T Number](a, b Vec3[T]) Vec3[T] {
	return Vec3[T]{X: a.X * b.X, Y: a.Y * b.Y, Z: a.Z * b.Z}
}

// Scale3 returns v * s per component.
func Scale3[T Number](v Vec3[T], s T) Vec3[T] {
	return Vec3[T]{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Add4 returns a + b per component.
func Add4[T Number](a, b Vec4[T]) Vec4[T] {
	return Vec4[T]{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z, W: a.W + b.W}
}

// Sub4 returns a - b per component.
func Sub4[T Number](a, b Vec4[T]) Vec4[T] {
	return Vec4[T]{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z, W: a.W - b.W}
}

// Mul4 returns a * b per component.
func Mul4[T Number](a, b Vec4[T]) Vec4[T] {
	return Vec4[T]{X: a.X * b.X, Y: a.Y * b.Y, Z: a.Z * b.Z, W: a.W * b.W}
}

// Scale4 returns v * s per component.
func Scale4[T Number](v Vec4[T], s T) Vec4[T] {
	return Vec4[T]{X: v.X * s, Y: v.Y * s, Z: v.Z * s, W: v.W * s}
}

// All2 reports whether every component is true.
func All2(v Bool2) bool { return v.X && v.Y }

// Any2 reports whether some component is true.
func Any2(v Bool2) bool { return v.X || v.Y }

// All3 reports whether every component is true.
func All3(v Bool3) bool { return v.X && v.Y && v.Z }

// Any3 reports whether some component is true.
func Any3(v Bool3) bool { return v.X || v.Y || v.Z }

// All4 reports whether every component is true.
func All4(v Bool4) bool { return v.X && v.Y && v.Z && v.W }

// Any4 reports whether some component is true.
func Any4(v Bool4) bool { return v.X || v.Y || v.Z || v.W }

// Less2 compares a < b per component.
func Less2[T Number](a, b Vec2[T]) Bool2 { return Bool2{X: a.X < b.X, Y: a.Y < b.Y} }

// Min2 returns the per-component minimum.
func Min2[T Number](a, b Vec2[T]) Vec2[T] { return Vec2[T]{X: min(a.X, b.X), Y: min(a.Y, b.Y)} }

// Max2 returns the per-component maximum.
func Max2[T Number](a, b Vec2[T]) Vec2[T] { return Vec2[T]{X: max(a.X, b.X), Y: max(a.Y, b.Y)} }

// Abs2 returns the per-component absolute value. Unsigned vectors are
// returned unchanged.
func Abs2[T Number](v Vec2[T]) Vec2[T] { return Vec2[T]{X: abs(v.X), Y: abs(v.Y)} }

// Clamp2 limits every component of v to [lo, hi].
func Clamp2[T Number](v, lo, hi Vec2[T]) Vec2[T] { return Min2(Max2(v, lo), hi) }

func abs[T Number](x T) T {
	var zero T
	if x < zero {
		return -x
	}
	return x
}
