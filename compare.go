package shadercompat

import (
	"fmt"
	"math"
)

// Tolerance decides whether two output values agree.
type Tolerance struct {
	eps   float32
	exact bool
}

// Exact requires bitwise-identical values.
func Exact() Tolerance { return Tolerance{exact: true} }

// Within accepts values whose absolute difference is at most eps.
// NaN never agrees with anything.
func Within(eps float32) Tolerance { return Tolerance{eps: eps} }

// Accepts reports whether device and cpu agree under t.
func (t Tolerance) Accepts(device, cpu float32) bool {
	if t.exact {
		return math.Float32bits(device) == math.Float32bits(cpu)
	}
	d := float64(device) - float64(cpu)
	return math.Abs(d) <= float64(t.eps)
}

func (t Tolerance) String() string {
	if t.exact {
		return "exact"
	}
	return fmt.Sprintf("|d| <= %g", t.eps)
}

// Verification is the outcome of Compare.
type Verification struct {
	Tolerance Tolerance

	// Len is the number of compared elements, the longer of both inputs.
	Len int

	// Mismatches counts the disagreeing elements. Elements present on one
	// side only count as mismatches.
	Mismatches int

	// First is the index of the first mismatch, or -1. Device and CPU hold
	// the values at First; a missing value is NaN.
	First       int
	Device, CPU float32

	// MaxAbsErr and MaxULP are taken over the elements present on both
	// sides.
	MaxAbsErr float64
	MaxULP    uint32
}

// OK reports whether every element agreed.
func (v Verification) OK() bool { return v.Mismatches == 0 }

func (v Verification) String() string {
	if v.OK() {
		return fmt.Sprintf("%d values agree (%s, max |d| %g, max %d ulp)", v.Len, v.Tolerance, v.MaxAbsErr, v.MaxULP)
	}
	return fmt.Sprintf("%d of %d values differ (%s), first at %d: device=%v cpu=%v",
		v.Mismatches, v.Len, v.Tolerance, v.First, v.Device, v.CPU)
}

// Compare compares device against cpu elementwise under tol.
func Compare(device, cpu []float32, tol Tolerance) Verification {
	v := Verification{Tolerance: tol, First: -1}
	n := min(len(device), len(cpu))
	v.Len = max(len(device), len(cpu))

	for i := range n {
		a, b := device[i], cpu[i]
		if d := math.Abs(float64(a) - float64(b)); d > v.MaxAbsErr {
			v.MaxAbsErr = d
		}
		if u := ulpDistance(a, b); u > v.MaxULP {
			v.MaxULP = u
		}
		if tol.Accepts(a, b) {
			continue
		}
		if v.First < 0 {
			v.First, v.Device, v.CPU = i, a, b
		}
		v.Mismatches++
	}

	if len(device) != len(cpu) {
		if v.First < 0 {
			v.First = n
			v.Device, v.CPU = valueAt(device, n), valueAt(cpu, n)
		}
		v.Mismatches += v.Len - n
	}
	return v
}

func valueAt(s []float32, i int) float32 {
	if i < len(s) {
		return s[i]
	}
	return float32(math.NaN())
}

// ulpDistance returns the number of representable float32 values between
// a and b. Values of opposite sign are measured through zero; NaN is
// infinitely far from everything.
func ulpDistance(a, b float32) uint32 {
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return math.MaxUint32
	}
	ia, ib := orderedBits(a), orderedBits(b)
	if ia > ib {
		ia, ib = ib, ia
	}
	d := uint64(ib - ia)
	if d > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(d)
}

// orderedBits maps float32 bit patterns onto integers that sort like the
// floats they encode, with +0 and -0 both at zero.
func orderedBits(f float32) int64 {
	b := int64(math.Float32bits(f) &^ (1 << 31))
	if math.Signbit(float64(f)) {
		return -b
	}
	return b
}
