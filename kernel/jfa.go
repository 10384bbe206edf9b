package kernel

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/gogpu/shadercompat/vecmath"
)

// SeedNone marks a seed slot that has not found a seed yet. A stored seed is
// the pixel coordinate pair (x, y); the empty seed is (SeedNone, SeedNone).
const SeedNone = -1

// SeedPlanes is the number of seed planes in a seed buffer. Plane 0 holds
// the nearest foreground pixel of every pixel, plane 1 the nearest
// background pixel. Init and flood dispatches use depth SeedPlanes.
const SeedPlanes = 2

// SeedBufferSize returns the byte size of a seed buffer for a width x height
// image: SeedPlanes planes of int32 (x, y) pairs.
func SeedBufferSize(width, height int) int {
	return SeedPlanes * width * height * 8
}

// FloodSteps returns the step indices of the flood passes for a
// width x height image, from ceil(log2(max(width, height))) down to 0.
func FloodSteps(width, height int) []uint32 {
	n := max(width, height)
	top := 0
	if n > 1 {
		top = bits.Len(uint(n - 1))
	}
	steps := make([]uint32, 0, top+1)
	for k := top; k >= 0; k-- {
		steps = append(steps, uint32(k))
	}
	return steps
}

// floodOffsets is the fixed candidate order of a flood pass after the
// pixel's own seed. Ties keep the earlier candidate.
var floodOffsets = [8]vecmath.Int2{
	{X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
	{X: -1, Y: 0}, {X: 1, Y: 0},
	{X: -1, Y: 1}, {X: 0, Y: 1}, {X: 1, Y: 1},
}

// JFAInit writes the initial seeds: a foreground pixel seeds itself in
// plane 0, a background pixel seeds itself in plane 1, every other slot is
// empty.
//
// Bindings: 0 params (FieldParams), 1 image, 2 seeds.
var JFAInit Kernel = jfaInit{}

// JFAFlood runs one jump-flood pass with offset 1 << Step, reading one seed
// buffer and writing the other.
//
// Bindings: 0 params (FieldParams), 1 constants (PassConstants),
// 2 seeds in, 3 seeds out.
var JFAFlood Kernel = jfaFlood{}

// JFAResolve turns the flooded seeds into a signed distance: negative
// inside the foreground, positive outside, clamped to MaxDistance.
//
// Bindings: 0 params (FieldParams), 1 seeds, 2 distance.
var JFAResolve Kernel = jfaResolve{}

type (
	jfaInit    struct{}
	jfaFlood   struct{}
	jfaResolve struct{}
)

func (jfaInit) Name() string    { return "jfa_init" }
func (jfaFlood) Name() string   { return "jfa_flood" }
func (jfaResolve) Name() string { return "jfa_resolve" }

func (jfaInit) Bindings() []Binding {
	return []Binding{
		{Name: "params", Kind: Params},
		{Name: "image", Kind: ReadOnly},
		{Name: "seeds", Kind: ReadWrite},
	}
}

func (jfaFlood) Bindings() []Binding {
	return []Binding{
		{Name: "params", Kind: Params},
		{Name: "pass", Kind: Constants},
		{Name: "seeds_in", Kind: ReadOnly},
		{Name: "seeds_out", Kind: ReadWrite},
	}
}

func (jfaResolve) Bindings() []Binding {
	return []Binding{
		{Name: "params", Kind: Params},
		{Name: "seeds", Kind: ReadOnly},
		{Name: "distance", Kind: ReadWrite},
	}
}

func (jfaInit) WorkgroupSize() vecmath.Uint3    { return tile }
func (jfaFlood) WorkgroupSize() vecmath.Uint3   { return tile }
func (jfaResolve) WorkgroupSize() vecmath.Uint3 { return tile }

func (jfaInit) Shader() Shader {
	return Shader{Label: "jfa_init", WGSL: jfaInitWGSL, EntryPoint: "main", CLKernel: "jfa_init"}
}

func (jfaFlood) Shader() Shader {
	return Shader{Label: "jfa_flood", WGSL: jfaFloodWGSL, EntryPoint: "main", CLKernel: "jfa_flood"}
}

func (jfaResolve) Shader() Shader {
	return Shader{Label: "jfa_resolve", WGSL: jfaResolveWGSL, EntryPoint: "main", CLKernel: "jfa_resolve"}
}

func validateField(p FieldParams) error {
	if err := checkExtent(p.Width, p.Height); err != nil {
		return err
	}
	m := float64(p.MaxDistance)
	if math.IsNaN(m) || math.IsInf(m, 0) || m <= 0 {
		return fmt.Errorf("%w: max distance %v", ErrInvalidParams, p.MaxDistance)
	}
	if math.IsNaN(float64(p.Threshold)) {
		return fmt.Errorf("%w: threshold is NaN", ErrInvalidParams)
	}
	return nil
}

func (k jfaInit) Validate(args Args) error {
	if err := checkBindings(k, args); err != nil {
		return err
	}
	p := DecodeFieldParams(args.Buffers[0])
	if err := validateField(p); err != nil {
		return err
	}
	w, h := int(p.Width), int(p.Height)
	if err := checkSize(k, args, 1, w*h*4); err != nil {
		return err
	}
	return checkSize(k, args, 2, SeedBufferSize(w, h))
}

func (k jfaFlood) Validate(args Args) error {
	if err := checkBindings(k, args); err != nil {
		return err
	}
	p := DecodeFieldParams(args.Buffers[0])
	if err := validateField(p); err != nil {
		return err
	}
	if step := DecodePassConstants(args.Buffers[1]).Step; step >= 31 {
		return fmt.Errorf("%w: flood step %d", ErrInvalidParams, step)
	}
	n := SeedBufferSize(int(p.Width), int(p.Height))
	if err := checkSize(k, args, 2, n); err != nil {
		return err
	}
	return checkSize(k, args, 3, n)
}

func (k jfaResolve) Validate(args Args) error {
	if err := checkBindings(k, args); err != nil {
		return err
	}
	p := DecodeFieldParams(args.Buffers[0])
	if err := validateField(p); err != nil {
		return err
	}
	w, h := int(p.Width), int(p.Height)
	if err := checkSize(k, args, 1, SeedBufferSize(w, h)); err != nil {
		return err
	}
	return checkSize(k, args, 2, w*h*4)
}

func loadSeed(seeds []int32, slot uint32) vecmath.Int2 {
	return vecmath.Int2{X: seeds[2*slot], Y: seeds[2*slot+1]}
}

func storeSeed(seeds []int32, slot uint32, s vecmath.Int2) {
	seeds[2*slot] = s.X
	seeds[2*slot+1] = s.Y
}

func dist2(p, s vecmath.Int2) int32 {
	d := vecmath.Sub2(p, s)
	return d.X*d.X + d.Y*d.Y
}

func (jfaInit) Invoke(inv Invocation, args Args) {
	p := DecodeFieldParams(args.Buffers[0])
	x, y, plane := inv.Global.X, inv.Global.Y, inv.Global.Z
	if x >= p.Width || y >= p.Height || plane >= SeedPlanes {
		return
	}
	i := y*p.Width + x
	foreground := F32(args.Buffers[1])[i] >= p.Threshold
	seed := vecmath.Int2{X: SeedNone, Y: SeedNone}
	if foreground == (plane == 0) {
		seed = vecmath.V2(int32(x), int32(y))
	}
	storeSeed(I32(args.Buffers[2]), plane*p.Width*p.Height+i, seed)
}

func (jfaFlood) Invoke(inv Invocation, args Args) {
	p := DecodeFieldParams(args.Buffers[0])
	x, y, plane := inv.Global.X, inv.Global.Y, inv.Global.Z
	if x >= p.Width || y >= p.Height || plane >= SeedPlanes {
		return
	}
	step := int32(1) << DecodePassConstants(args.Buffers[1]).Step
	in, out := I32(args.Buffers[2]), I32(args.Buffers[3])
	base := plane * p.Width * p.Height
	w, h := int32(p.Width), int32(p.Height)
	pos := vecmath.V2(int32(x), int32(y))

	best := loadSeed(in, base+y*p.Width+x)
	bestD := int32(-1)
	if best.X != SeedNone {
		bestD = dist2(pos, best)
	}
	for _, off := range floodOffsets {
		q := vecmath.Add2(pos, vecmath.Scale2(off, step))
		if q.X < 0 || q.Y < 0 || q.X >= w || q.Y >= h {
			continue
		}
		c := loadSeed(in, base+uint32(q.Y)*p.Width+uint32(q.X))
		if c.X == SeedNone {
			continue
		}
		if d := dist2(pos, c); bestD < 0 || d < bestD {
			best, bestD = c, d
		}
	}
	storeSeed(out, base+y*p.Width+x, best)
}

func (jfaResolve) Invoke(inv Invocation, args Args) {
	p := DecodeFieldParams(args.Buffers[0])
	x, y := inv.Global.X, inv.Global.Y
	if x >= p.Width || y >= p.Height || inv.Global.Z != 0 {
		return
	}
	i := y*p.Width + x
	seeds := I32(args.Buffers[1])
	pos := vecmath.V2(int32(x), int32(y))
	outer := loadSeed(seeds, i)
	inner := loadSeed(seeds, p.Width*p.Height+i)

	// A foreground pixel is its own nearest foreground seed.
	var d float32
	switch {
	case outer == pos && inner.X == SeedNone:
		d = -p.MaxDistance
	case outer == pos:
		d = -vecmath.Length2(vecmath.ToFloat2(vecmath.Sub2(pos, inner)))
	case outer.X == SeedNone:
		d = p.MaxDistance
	default:
		d = vecmath.Length2(vecmath.ToFloat2(vecmath.Sub2(pos, outer)))
	}
	F32(args.Buffers[2])[i] = min(max(d, -p.MaxDistance), p.MaxDistance)
}
