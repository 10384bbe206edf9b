package vecmath

import "fmt"

// Elem is the set of scalar types a shader vector can hold.
type Elem interface {
	~int32 | ~uint32 | ~float32 | ~bool
}

// Number is the subset of Elem with arithmetic.
type Number interface {
	~int32 | ~uint32 | ~float32
}

// Integer is the subset of Number with integral values.
type Integer interface {
	~int32 | ~uint32
}

// Vec2 is a two-component vector.
type Vec2[T Elem] struct {
	X, Y T
}

// Vec3 is a three-component vector.
type Vec3[T Elem] struct {
	X, Y, Z T
}

// Vec4 is a four-component vector.
type Vec4[T Elem] struct {
	X, Y, Z, W T
}

// Shading-language names for the instantiated vector types.
type (
	Float2 = Vec2[float32]
	Float3 = Vec3[float32]
	Float4 = Vec4[float32]

	Int2 = Vec2[int32]
	Int3 = Vec3[int32]
	Int4 = Vec4[int32]

	Uint2 = Vec2[uint32]
	Uint3 = Vec3[uint32]
	Uint4 = Vec4[uint32]

	Bool2 = Vec2[bool]
	Bool3 = Vec3[bool]
	Bool4 = Vec4[bool]
)

// V2 returns the vector (x, y).
func V2[T Elem](x, y T) Vec2[T] {
	return Vec2[T]{X: x, Y: y}
}

// V3 returns the vector (x, y, z).
func V3[T Elem](x, y, z T) Vec3[T] {
	return Vec3[T]{X: x, Y: y, Z: z}
}

// V4 returns the vector (x, y, z, w).
func V4[T Elem](x, y, z, w T) Vec4[T] {
	return Vec4[T]{X: x, Y: y, Z: z, W: w}
}

// Splat2 returns a vector with both components set to s.
func Splat2[T Elem](s T) Vec2[T] { return Vec2[T]{X: s, Y: s} }

// Splat3 returns a vector with all three components set to s.
func Splat3[T Elem](s T) Vec3[T] { return Vec3[T]{X: s, Y: s, Z: s} }

// Splat4 returns a vector with all four components set to s.
func Splat4[T Elem](s T) Vec4[T] { return Vec4[T]{X: s, Y: s, Z: s, W: s} }

// XY returns the first two components.
func (v Vec3[T]) XY() Vec2[T] { return Vec2[T]{X: v.X, Y: v.Y} }

// XYZ returns the first three components.
func (v Vec4[T]) XYZ() Vec3[T] { return Vec3[T]{X: v.X, Y: v.Y, Z: v.Z} }

func (v Vec2[T]) String() string {
	return fmt.Sprintf("(%v, %v)", v.X, v.Y)
}

func (v Vec3[T]) String() string {
	return fmt.Sprintf("(%v, %v, %v)", v.X, v.Y, v.Z)
}

func (v Vec4[T]) String() string {
	return fmt.Sprintf("(%v, %v, %v, %v)", v.X, v.Y, v.Z, v.W)
}
