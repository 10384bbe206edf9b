package shadercompat

import (
	"fmt"

	"github.com/gogpu/shadercompat/compute"
	"github.com/gogpu/shadercompat/internal/parallel"
	"github.com/gogpu/shadercompat/kernel"
)

// hostAlignment is the alignment of CPU-path output and seed buffers.
const hostAlignment = 64

// cpuPass runs one dispatch of k on the CPU task-launch runtime and waits
// for it. Parameter and constant blocks are staged in task-group memory
// from Alloc, which also establishes the group; they are released by Sync.
// It returns the number of lanes the launch skipped.
func (a *App) cpuPass(k kernel.Kernel, views [][]byte, constants []byte, groups parallel.Grid) (skipped int, err error) {
	args := compute.BindArgs(k, views, constants)
	for i, b := range k.Bindings() {
		if !b.Kind.Uniform() {
			continue
		}
		block, err := a.cpu.Alloc(kernel.UniformSize, kernel.UniformSize)
		if err != nil {
			_ = a.cpu.Sync()
			return 0, fmt.Errorf("%s: staging %s: %w", k.Name(), b.Name, err)
		}
		copy(block, args.Buffers[i])
		args.Buffers[i] = block
	}

	if err := k.Validate(args); err != nil {
		_ = a.cpu.Sync()
		return 0, err
	}
	if err := a.cpu.Launch(kernel.TaskFunc(k), args, groups.X, groups.Y, groups.Z); err != nil {
		_ = a.cpu.Sync()
		return 0, fmt.Errorf("%s: launch: %w", k.Name(), err)
	}
	if err := a.cpu.Sync(); err != nil {
		return 0, fmt.Errorf("%s: %w", k.Name(), err)
	}

	stats := a.cpu.LastLaunch()
	return stats.Lanes - stats.Executed, nil
}

// cpuBasic runs the basic kernel over input on the CPU path.
func (a *App) cpuBasic(input []float32) ([]float32, int, error) {
	w, h := a.opts.width, a.opts.height
	out, err := parallel.AlignedAlloc(w*h*4, hostAlignment)
	if err != nil {
		return nil, 0, err
	}
	params := kernel.BasicParams{Width: uint32(w), Height: uint32(h)}.Bytes()
	skipped, err := a.cpuPass(kernel.Basic,
		[][]byte{params, kernel.F32Bytes(input), out}, nil,
		kernel.Groups(kernel.Basic, w, h, 1))
	if err != nil {
		return nil, 0, err
	}
	return kernel.F32(out), skipped, nil
}

// cpuSeeds runs the init pass and returns the seed buffer.
func (a *App) cpuSeeds(image []float32) ([]byte, int, error) {
	w, h := a.opts.width, a.opts.height
	seeds, err := parallel.AlignedAlloc(kernel.SeedBufferSize(w, h), hostAlignment)
	if err != nil {
		return nil, 0, err
	}
	skipped, err := a.cpuPass(kernel.JFAInit,
		[][]byte{a.fieldParams(), kernel.F32Bytes(image), seeds}, nil,
		kernel.Groups(kernel.JFAInit, w, h, kernel.SeedPlanes))
	if err != nil {
		return nil, 0, err
	}
	return seeds, skipped, nil
}

// cpuDistanceField runs init, every flood pass and resolve on the CPU
// path. Each pass is a separate launch joined by Sync before the next one
// reads its output.
func (a *App) cpuDistanceField(image []float32) ([]float32, int, error) {
	w, h := a.opts.width, a.opts.height
	params := a.fieldParams()

	read, total, err := a.cpuSeeds(image)
	if err != nil {
		return nil, 0, err
	}
	write, err := parallel.AlignedAlloc(len(read), hostAlignment)
	if err != nil {
		return nil, 0, err
	}
	out, err := parallel.AlignedAlloc(w*h*4, hostAlignment)
	if err != nil {
		return nil, 0, err
	}

	seedGroups := kernel.Groups(kernel.JFAFlood, w, h, kernel.SeedPlanes)
	for _, step := range kernel.FloodSteps(w, h) {
		pc := kernel.PassConstants{Step: step}.Bytes()
		skipped, err := a.cpuPass(kernel.JFAFlood, [][]byte{params, nil, read, write}, pc, seedGroups)
		if err != nil {
			return nil, 0, fmt.Errorf("step %d: %w", step, err)
		}
		total += skipped
		read, write = write, read
	}

	skipped, err := a.cpuPass(kernel.JFAResolve,
		[][]byte{params, read, out}, nil,
		kernel.Groups(kernel.JFAResolve, w, h, 1))
	if err != nil {
		return nil, 0, err
	}
	return kernel.F32(out), total + skipped, nil
}

func (a *App) fieldParams() []byte {
	return kernel.FieldParams{
		Width:       uint32(a.opts.width),
		Height:      uint32(a.opts.height),
		MaxDistance: a.opts.maxDistance,
		Threshold:   a.opts.threshold,
	}.Bytes()
}
