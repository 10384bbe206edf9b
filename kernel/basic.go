package kernel

import "github.com/gogpu/shadercompat/vecmath"

// Basic scales each element by the dot product of its pixel position with
// (0.5, 0.25):
//
//	out[i] = in[i] * dot(float2(x, y), float2(0.5, 0.25))   where i = y*width + x
//
// Bindings: 0 params (BasicParams), 1 input, 2 output.
var Basic Kernel = basic{}

var basicWeights = vecmath.Float2{X: 0.5, Y: 0.25}

type basic struct{}

func (basic) Name() string { return "basic" }

func (basic) Bindings() []Binding {
	return []Binding{
		{Name: "params", Kind: Params},
		{Name: "input", Kind: ReadOnly},
		{Name: "output", Kind: ReadWrite},
	}
}

func (basic) WorkgroupSize() vecmath.Uint3 { return tile }

func (basic) Shader() Shader {
	return Shader{Label: "basic", WGSL: basicWGSL, EntryPoint: "main", CLKernel: "basic_main"}
}

func (k basic) Validate(args Args) error {
	if err := checkBindings(k, args); err != nil {
		return err
	}
	p := DecodeBasicParams(args.Buffers[0])
	if err := checkExtent(p.Width, p.Height); err != nil {
		return err
	}
	n := int(p.Width) * int(p.Height) * 4
	if err := checkSize(k, args, 1, n); err != nil {
		return err
	}
	return checkSize(k, args, 2, n)
}

func (basic) Invoke(inv Invocation, args Args) {
	p := DecodeBasicParams(args.Buffers[0])
	x, y := inv.Global.X, inv.Global.Y
	if x >= p.Width || y >= p.Height || inv.Global.Z != 0 {
		return
	}
	i := y*p.Width + x
	in, out := F32(args.Buffers[1]), F32(args.Buffers[2])
	pos := vecmath.ToFloat2(vecmath.V2(x, y))
	out[i] = in[i] * vecmath.Dot2(pos, basicWeights)
}
