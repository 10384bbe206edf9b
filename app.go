package shadercompat

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/gogpu/shadercompat/compute"
	"github.com/gogpu/shadercompat/internal/parallel"
	"github.com/gogpu/shadercompat/kernel"
)

// State is the automation state of an App.
type State int

const (
	// StateReady accepts Run calls.
	StateReady State = iota

	// StateHalted rejects Run calls with ErrHalted until Reset.
	StateHalted

	// StateClosed rejects every call with ErrClosed.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateHalted:
		return "halted"
	case StateClosed:
		return "closed"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// App holds everything one cross-validation session needs: the device and
// its pipelines, the CPU launch handle, the test inputs, and the run state.
//
// Run calls are serialized. The App does not own the device; Close
// releases the pipelines only.
type App struct {
	dev  compute.Device
	opts options

	basic   compute.Pipeline
	init    compute.Pipeline
	flood   compute.Pipeline
	resolve compute.Pipeline

	basicInput []float32
	fieldInput []float32

	mu       sync.Mutex
	cpu      *parallel.Handle
	state    State
	runs     int
	mismatch *Mismatch
}

// NewApp creates the pipelines of every kernel on dev. A device failure is
// reported as ErrInitFailed.
func NewApp(dev compute.Device, opts ...Option) (*App, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	a := &App{
		dev:        dev,
		opts:       o,
		basicInput: o.basicInput,
		fieldInput: o.fieldInput,
		cpu:        parallel.NewHandle(parallel.Config{Workers: o.workers, Mode: o.mode}),
	}
	if a.basicInput == nil {
		a.basicInput = FilledImage(o.width, o.height, 1)
	}
	if a.fieldInput == nil {
		a.fieldInput = CrossImage(o.width, o.height, DefaultArmWidth, DefaultArmLength)
	}

	for _, p := range []struct {
		dst *compute.Pipeline
		k   kernel.Kernel
	}{
		{&a.basic, kernel.Basic},
		{&a.init, kernel.JFAInit},
		{&a.flood, kernel.JFAFlood},
		{&a.resolve, kernel.JFAResolve},
	} {
		pl, err := dev.CreatePipeline(p.k)
		if err != nil {
			a.destroyPipelines()
			return nil, fmt.Errorf("%w: pipeline %s on %s: %w", ErrInitFailed, p.k.Name(), dev.Name(), err)
		}
		*p.dst = pl
	}

	workers := o.workers
	if workers <= 0 {
		workers = parallel.HostCores()
	}
	Logger().Info("shadercompat: app ready",
		"device", dev.Name(),
		"size", fmt.Sprintf("%dx%d", o.width, o.height),
		"workers", workers,
		"mode", o.mode,
	)
	return a, nil
}

// Device returns the device the App dispatches to.
func (a *App) Device() compute.Device { return a.dev }

// Size returns the image extent of both tests.
func (a *App) Size() (width, height int) { return a.opts.width, a.opts.height }

// State returns the automation state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Runs returns the number of completed comparisons, passed or failed.
func (a *App) Runs() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runs
}

// Mismatch returns the mismatch that halted the App, or nil.
func (a *App) Mismatch() *Mismatch {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mismatch
}

// Reset clears a recorded mismatch and re-arms a halted App.
func (a *App) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateHalted {
		a.state = StateReady
	}
	a.mismatch = nil
}

// Close destroys the pipelines. The device stays open.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateClosed {
		return nil
	}
	a.state = StateClosed
	a.destroyPipelines()
	return nil
}

func (a *App) destroyPipelines() {
	for _, p := range []*compute.Pipeline{&a.basic, &a.init, &a.flood, &a.resolve} {
		if *p != nil {
			(*p).Destroy()
			*p = nil
		}
	}
}
