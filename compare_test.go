package shadercompat

import (
	"math"
	"strings"
	"testing"
)

func TestTolerance(t *testing.T) {
	nan := float32(math.NaN())
	negZero := float32(math.Copysign(0, -1))
	tests := []struct {
		name string
		tol  Tolerance
		a, b float32
		want bool
	}{
		{"exact equal", Exact(), 1.5, 1.5, true},
		{"exact one ulp", Exact(), 1, math.Nextafter32(1, 2), false},
		{"exact signed zero", Exact(), 0, negZero, false},
		{"exact NaN", Exact(), nan, nan, true},
		{"within inside", Within(1e-3), 10, 10.0005, true},
		{"within boundary", Within(0.5), 1, 1.5, true},
		{"within outside", Within(1e-3), 10, 10.01, false},
		{"within signed zero", Within(0), 0, negZero, true},
		{"within NaN", Within(1), nan, nan, false},
		{"within inf", Within(1), float32(math.Inf(1)), float32(math.Inf(1)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tol.Accepts(tt.a, tt.b); got != tt.want {
				t.Errorf("%v.Accepts(%v, %v) = %v, want %v", tt.tol, tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	t.Run("agree", func(t *testing.T) {
		v := Compare([]float32{1, 2, 3}, []float32{1, 2, 3}, Exact())
		if !v.OK() || v.First != -1 || v.Len != 3 || v.MaxAbsErr != 0 {
			t.Errorf("Compare = %+v", v)
		}
		if !strings.Contains(v.String(), "3 values agree") {
			t.Errorf("String() = %q", v.String())
		}
	})

	t.Run("first mismatch", func(t *testing.T) {
		v := Compare([]float32{1, 2, 3, 4}, []float32{1, 2.5, 3, 5}, Exact())
		if v.OK() || v.First != 1 || v.Device != 2 || v.CPU != 2.5 || v.Mismatches != 2 {
			t.Errorf("Compare = %+v", v)
		}
		if v.MaxAbsErr != 1 {
			t.Errorf("MaxAbsErr = %v, want 1", v.MaxAbsErr)
		}
		if !strings.Contains(v.String(), "first at 1") {
			t.Errorf("String() = %q", v.String())
		}
	})

	t.Run("tolerance", func(t *testing.T) {
		v := Compare([]float32{1, 2}, []float32{1.0005, 2}, Within(1e-3))
		if !v.OK() || v.MaxULP == 0 {
			t.Errorf("Compare = %+v", v)
		}
	})

	t.Run("length", func(t *testing.T) {
		v := Compare([]float32{1, 2}, []float32{1, 2, 3, 4}, Exact())
		if v.OK() || v.First != 2 || v.Mismatches != 2 || v.Len != 4 {
			t.Errorf("Compare = %+v", v)
		}
		if !math.IsNaN(float64(v.Device)) || v.CPU != 3 {
			t.Errorf("values at First = %v, %v", v.Device, v.CPU)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if v := Compare(nil, nil, Exact()); !v.OK() || v.First != -1 {
			t.Errorf("Compare(nil, nil) = %+v", v)
		}
	})
}

func TestULPDistance(t *testing.T) {
	negZero := float32(math.Copysign(0, -1))
	smallest := math.Float32frombits(1)
	tests := []struct {
		a, b float32
		want uint32
	}{
		{1, 1, 0},
		{1, math.Nextafter32(1, 2), 1},
		{0, negZero, 0},
		{smallest, -smallest, 2},
		{float32(math.NaN()), 1, math.MaxUint32},
	}
	for _, tt := range tests {
		if got := ulpDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("ulpDistance(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
		if got := ulpDistance(tt.b, tt.a); got != tt.want {
			t.Errorf("ulpDistance(%v, %v) = %d, want %d", tt.b, tt.a, got, tt.want)
		}
	}
}
