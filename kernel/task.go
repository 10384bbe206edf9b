package kernel

import (
	"github.com/gogpu/shadercompat/internal/parallel"
	"github.com/gogpu/shadercompat/vecmath"
)

// TaskFunc adapts k to the CPU task-launch ABI. Each task is one thread
// group: (i0, i1, i2) is the group index, and the task runs every
// invocation of the group in x-fastest order. The launch data must be the
// dispatch's Args.
func TaskFunc(k Kernel) parallel.KernelFunc {
	ws := k.WorkgroupSize()
	return func(data any, _, _, _, _, i0, i1, i2, _, _, _ int) {
		args := data.(Args)
		group := vecmath.V3(uint32(i0), uint32(i1), uint32(i2))
		base := vecmath.V3(group.X*ws.X, group.Y*ws.Y, group.Z*ws.Z)
		for lz := range ws.Z {
			for ly := range ws.Y {
				for lx := range ws.X {
					local := vecmath.V3(lx, ly, lz)
					k.Invoke(Invocation{
						Global: vecmath.Add3(base, local),
						Local:  local,
						Group:  group,
					}, args)
				}
			}
		}
	}
}
