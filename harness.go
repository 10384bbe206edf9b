package shadercompat

import (
	"fmt"
	"log/slog"
	"time"
)

// Test names used in results and logs.
const (
	TestBasic         = "basic"
	TestDistanceField = "distance-field"
)

// sampleCount is the number of leading output values logged per path.
const sampleCount = 10

// Mismatch is the first divergence of a failed comparison.
type Mismatch struct {
	Test  string
	Index int
	X, Y  int

	Device, CPU float32
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: output[%d] (x=%d, y=%d): device=%v cpu=%v", m.Test, m.Index, m.X, m.Y, m.Device, m.CPU)
}

// Result is the outcome of one Run call.
type Result struct {
	Test          string
	Width, Height int

	// Device and CPU are the complete outputs of both paths.
	Device, CPU []float32

	Verification Verification

	// Mismatch is set when the comparison failed.
	Mismatch *Mismatch

	// Passes is the number of dispatches per path.
	Passes int

	// SkippedLanes counts CPU lanes the launch mode never ran.
	SkippedLanes int

	DeviceTime, CPUTime time.Duration
}

// OK reports whether both paths agreed.
func (r Result) OK() bool { return r.Mismatch == nil && r.Verification.OK() }

// RunBasicTest dispatches the elementwise kernel on the device and on the
// CPU and requires bitwise-identical outputs.
func (a *App) RunBasicTest() (Result, error) {
	return a.run(TestBasic, Exact(), a.basicInput, a.deviceBasic, a.cpuBasic)
}

// RunDistanceFieldTest runs the jump-flood distance field on the device and
// on the CPU and requires agreement within the configured tolerance.
func (a *App) RunDistanceFieldTest() (Result, error) {
	return a.run(TestDistanceField, Within(a.opts.tolerance), a.fieldInput, a.deviceDistanceField, a.cpuDistanceField)
}

type pathFunc func(input []float32) (out []float32, n int, err error)

// run drives Dispatch-Device, Dispatch-CPU, Compare and either stays ready
// or halts.
func (a *App) run(test string, tol Tolerance, input []float32, device, cpu pathFunc) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case StateClosed:
		return Result{}, ErrClosed
	case StateHalted:
		return Result{}, fmt.Errorf("%w: %s", ErrHalted, a.mismatch)
	}

	log := Logger().With("test", test)
	res := Result{Test: test, Width: a.opts.width, Height: a.opts.height}

	start := time.Now()
	out, passes, err := device(input)
	if err != nil {
		return res, fmt.Errorf("shadercompat: %s: device path: %w", test, err)
	}
	res.Device, res.Passes, res.DeviceTime = out, passes, time.Since(start)
	logSamples(log, "device", out)

	start = time.Now()
	out, skipped, err := cpu(input)
	if err != nil {
		return res, fmt.Errorf("shadercompat: %s: cpu path: %w", test, err)
	}
	res.CPU, res.SkippedLanes, res.CPUTime = out, skipped, time.Since(start)
	logSamples(log, "cpu", out)
	if skipped > 0 {
		log.Warn("shadercompat: cpu launch skipped lanes", "mode", a.opts.mode, "skipped", skipped)
	}

	res.Verification = Compare(res.Device, res.CPU, tol)
	a.runs++
	if res.Verification.OK() {
		log.Info("shadercompat: outputs agree",
			"values", res.Verification.Len,
			"max_abs_err", res.Verification.MaxAbsErr,
			"device_time", res.DeviceTime,
			"cpu_time", res.CPUTime,
		)
		return res, nil
	}

	v := res.Verification
	m := &Mismatch{
		Test:   test,
		Index:  v.First,
		X:      v.First % a.opts.width,
		Y:      v.First / a.opts.width,
		Device: v.Device,
		CPU:    v.CPU,
	}
	res.Mismatch = m
	a.mismatch = m
	a.state = StateHalted
	log.Error("shadercompat: cross-validation mismatch",
		"index", m.Index,
		"x", m.X,
		"y", m.Y,
		"device", m.Device,
		"cpu", m.CPU,
		"mismatches", v.Mismatches,
	)
	return res, fmt.Errorf("%w: %s", ErrMismatch, m)
}

func logSamples(log *slog.Logger, path string, out []float32) {
	for i := range min(sampleCount, len(out)) {
		log.Debug("output", "path", path, "index", i, "value", out[i])
	}
}
