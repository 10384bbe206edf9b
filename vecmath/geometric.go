package vecmath

import "math"

// Dot2 returns a.X*b.X + a.Y*b.Y.
func Dot2(a, b Float2) float32 {
	return float32(a.X*b.X) + float32(a.Y*b.Y)
}

// Dot3 returns a.X*b.X + a.Y*b.Y + a.Z*b.Z, accumulated left to right.
func Dot3(a, b Float3) float32 {
	s := float32(a.X*b.X) + float32(a.Y*b.Y)
	return s + float32(a.Z*b.Z)
}

// Dot4 returns the four-component dot product, accumulated left to right.
func Dot4(a, b Float4) float32 {
	s := float32(a.X*b.X) + float32(a.Y*b.Y)
	s = s + float32(a.Z*b.Z)
	return s + float32(a.W*b.W)
}

// Length2 returns sqrt(Dot2(v, v)).
func Length2(v Float2) float32 {
	return sqrt32(Dot2(v, v))
}

// Length3 returns sqrt(Dot3(v, v)).
func Length3(v Float3) float32 {
	return sqrt32(Dot3(v, v))
}

// Length4 returns sqrt(Dot4(v, v)).
func Length4(v Float4) float32 {
	return sqrt32(Dot4(v, v))
}

// sqrt32 is correctly rounded: float64 carries more than twice the float32
// significand, so rounding the float64 root once gives the float32 root.
func sqrt32(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}
