package shadercompat

import (
	"fmt"

	"github.com/gogpu/shadercompat/compute"
	"github.com/gogpu/shadercompat/kernel"
)

// bufferSet creates device buffers for one run and destroys them together.
type bufferSet struct {
	dev  compute.Device
	bufs []compute.Buffer
}

func (s *bufferSet) create(label string, size int, usage compute.BufferUsage, data []byte) (compute.Buffer, error) {
	b, err := s.dev.CreateBuffer(compute.BufferDesc{Label: label, Size: size, Usage: usage})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	s.bufs = append(s.bufs, b)
	if data != nil {
		if err := b.Write(data); err != nil {
			return nil, fmt.Errorf("write %s: %w", label, err)
		}
	}
	return b, nil
}

func (s *bufferSet) destroy() {
	for _, b := range s.bufs {
		b.Destroy()
	}
	s.bufs = nil
}

// readback copies the float32 contents of a host-visible buffer after
// Submit. The copy outlives the buffer.
func readback(b compute.Buffer, n int) ([]float32, error) {
	data, err := b.Mapped()
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	copy(out, kernel.F32(data))
	return out, nil
}

// deviceBasic runs the basic kernel over input on the device.
func (a *App) deviceBasic(input []float32) ([]float32, int, error) {
	w, h := a.opts.width, a.opts.height
	set := &bufferSet{dev: a.dev}
	defer set.destroy()

	params, err := set.create("basic params", kernel.UniformSize, compute.UsageUniform,
		kernel.BasicParams{Width: uint32(w), Height: uint32(h)}.Bytes())
	if err != nil {
		return nil, 0, err
	}
	in, err := set.create("basic input", w*h*4, compute.UsageStorage, kernel.F32Bytes(input))
	if err != nil {
		return nil, 0, err
	}
	out, err := set.create("basic output", w*h*4, compute.UsageStorage|compute.UsageHostVisible, nil)
	if err != nil {
		return nil, 0, err
	}

	passes := []compute.Pass{{
		Pipeline: a.basic,
		Buffers:  []compute.Buffer{params, in, out},
		Groups:   kernel.Groups(kernel.Basic, w, h, 1),
	}}
	if err := a.dev.Submit(passes); err != nil {
		return nil, 0, err
	}
	res, err := readback(out, w*h)
	return res, len(passes), err
}

// deviceDistanceField records init, the flood passes with alternating seed
// buffers, and resolve into a single Submit.
func (a *App) deviceDistanceField(image []float32) ([]float32, int, error) {
	w, h := a.opts.width, a.opts.height
	set := &bufferSet{dev: a.dev}
	defer set.destroy()

	params, err := set.create("field params", kernel.UniformSize, compute.UsageUniform, a.fieldParams())
	if err != nil {
		return nil, 0, err
	}
	img, err := set.create("field image", w*h*4, compute.UsageStorage, kernel.F32Bytes(image))
	if err != nil {
		return nil, 0, err
	}
	seeds := [2]compute.Buffer{}
	for i := range seeds {
		seeds[i], err = set.create(fmt.Sprintf("seeds %d", i), kernel.SeedBufferSize(w, h), compute.UsageStorage, nil)
		if err != nil {
			return nil, 0, err
		}
	}
	out, err := set.create("distance", w*h*4, compute.UsageStorage|compute.UsageHostVisible, nil)
	if err != nil {
		return nil, 0, err
	}

	passes := []compute.Pass{{
		Pipeline: a.init,
		Buffers:  []compute.Buffer{params, img, seeds[0]},
		Groups:   kernel.Groups(kernel.JFAInit, w, h, kernel.SeedPlanes),
	}}
	read := 0
	for _, step := range kernel.FloodSteps(w, h) {
		passes = append(passes, compute.Pass{
			Pipeline:  a.flood,
			Buffers:   []compute.Buffer{params, nil, seeds[read], seeds[1-read]},
			Constants: kernel.PassConstants{Step: step}.Bytes(),
			Groups:    kernel.Groups(kernel.JFAFlood, w, h, kernel.SeedPlanes),
		})
		read = 1 - read
	}
	passes = append(passes, compute.Pass{
		Pipeline: a.resolve,
		Buffers:  []compute.Buffer{params, seeds[read], out},
		Groups:   kernel.Groups(kernel.JFAResolve, w, h, 1),
	})

	Logger().Debug("shadercompat: distance field passes", "passes", len(passes), "seed_bytes", kernel.SeedBufferSize(w, h))
	if err := a.dev.Submit(passes); err != nil {
		return nil, 0, err
	}
	res, err := readback(out, w*h)
	return res, len(passes), err
}
