package shadercompat

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/shadercompat/compute"
	"github.com/gogpu/shadercompat/kernel"
)

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	dev := compute.NewReferenceDevice(4)
	t.Cleanup(func() { _ = dev.Close() })

	app, err := NewApp(dev, opts...)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestRunBasicTestAllWhite(t *testing.T) {
	app := newTestApp(t)

	res, err := app.RunBasicTest()
	if err != nil {
		t.Fatalf("RunBasicTest: %v", err)
	}
	if !res.OK() || res.Verification.Len != DefaultSize*DefaultSize {
		t.Fatalf("verification = %v", res.Verification)
	}
	if res.Verification.MaxULP != 0 {
		t.Errorf("MaxULP = %d, want 0", res.Verification.MaxULP)
	}
	for _, p := range []struct{ x, y int }{{0, 0}, {1, 0}, {0, 1}, {255, 255}, {17, 200}} {
		want := 0.5*float32(p.x) + 0.25*float32(p.y)
		if got := res.CPU[p.y*DefaultSize+p.x]; got != want {
			t.Errorf("output(%d,%d) = %v, want %v", p.x, p.y, got, want)
		}
	}
	if res.Passes != 1 || res.SkippedLanes != 0 {
		t.Errorf("passes = %d, skipped = %d", res.Passes, res.SkippedLanes)
	}
	if app.Runs() != 1 || app.State() != StateReady {
		t.Errorf("runs = %d, state = %v", app.Runs(), app.State())
	}
}

func TestRunBasicTestOddSize(t *testing.T) {
	const w, h = 45, 19
	in := make([]float32, w*h)
	for i := range in {
		in[i] = float32(i%13) - 6
	}
	app := newTestApp(t, WithSize(w, h), WithBasicInput(in), WithWorkers(3))

	res, err := app.RunBasicTest()
	if err != nil {
		t.Fatalf("RunBasicTest: %v", err)
	}
	if !res.OK() {
		t.Fatalf("verification = %v", res.Verification)
	}
}

func TestRunDistanceFieldCross(t *testing.T) {
	const size = 256
	app := newTestApp(t, WithMaxDistance(512))

	res, err := app.RunDistanceFieldTest()
	if err != nil {
		t.Fatalf("RunDistanceFieldTest: %v", err)
	}
	if !res.OK() {
		t.Fatalf("verification = %v", res.Verification)
	}
	if want := len(kernel.FloodSteps(size, size)) + 2; res.Passes != want {
		t.Errorf("passes = %d, want %d", res.Passes, want)
	}

	img := CrossImage(size, size, DefaultArmWidth, DefaultArmLength)
	truth := BruteForceDistance(img, size, size, DefaultThreshold, 0, 0)
	got := res.CPU[0]
	if got <= 0 {
		t.Fatalf("distance(0,0) = %v, want positive", got)
	}
	if d := math.Abs(float64(got - truth)); d > 1e-3 {
		t.Errorf("distance(0,0) = %v, ground truth %v", got, truth)
	}
}

func TestDistanceFieldSigns(t *testing.T) {
	const w, h = 64, 48
	img := CrossImage(w, h, 8, 14)
	app := newTestApp(t, WithSize(w, h), WithFieldInput(img))

	res, err := app.RunDistanceFieldTest()
	if err != nil {
		t.Fatalf("RunDistanceFieldTest: %v", err)
	}

	inside := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && img[y*w+x] >= DefaultThreshold
	}
	for y := range h {
		for x := range w {
			d := res.CPU[y*w+x]
			if inside(x, y) != (d < 0) {
				t.Fatalf("distance(%d,%d) = %v, inside = %v", x, y, d, inside(x, y))
			}
			boundary := false
			for _, n := range [][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				if n[0] >= 0 && n[1] >= 0 && n[0] < w && n[1] < h && inside(n[0], n[1]) != inside(x, y) {
					boundary = true
				}
			}
			if boundary && math.Abs(float64(d)) > 1 {
				t.Fatalf("boundary distance(%d,%d) = %v, want |d| <= 1", x, y, d)
			}
		}
	}
}

func TestInitSeedsMarkForeground(t *testing.T) {
	const w, h = 256, 256
	app := newTestApp(t)
	img := CrossImage(w, h, DefaultArmWidth, DefaultArmLength)

	buf, skipped, err := app.cpuSeeds(img)
	if err != nil {
		t.Fatalf("cpuSeeds: %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d", skipped)
	}
	seeds := kernel.I32(buf)
	for plane := range kernel.SeedPlanes {
		for i, v := range img {
			x, y := int32(i%w), int32(i/w)
			s := seeds[2*(plane*w*h+i):]
			own := (v >= DefaultThreshold) == (plane == 0)
			switch {
			case own && (s[0] != x || s[1] != y):
				t.Fatalf("plane %d seed(%d,%d) = (%d,%d), want own", plane, x, y, s[0], s[1])
			case !own && (s[0] != kernel.SeedNone || s[1] != kernel.SeedNone):
				t.Fatalf("plane %d seed(%d,%d) = (%d,%d), want sentinel", plane, x, y, s[0], s[1])
			}
		}
	}
}

func TestCPUPathDeterministic(t *testing.T) {
	const w, h = 96, 80
	img := CrossImage(w, h, 12, 30)

	var first []float32
	for _, workers := range []int{1, 3, 8} {
		app := newTestApp(t, WithSize(w, h), WithWorkers(workers))
		for range 2 {
			out, _, err := app.cpuDistanceField(img)
			if err != nil {
				t.Fatalf("cpuDistanceField: %v", err)
			}
			if first == nil {
				first = out
				continue
			}
			for i := range first {
				if math.Float32bits(out[i]) != math.Float32bits(first[i]) {
					t.Fatalf("workers=%d: out[%d] = %v, want %v", workers, i, out[i], first[i])
				}
			}
		}
	}
}

func TestSingleLaneModeHalts(t *testing.T) {
	app := newTestApp(t, WithLaunchMode(LaunchSingleLane), WithWorkers(2))

	res, err := app.RunBasicTest()
	if !errors.Is(err, ErrMismatch) {
		t.Fatalf("RunBasicTest error = %v, want ErrMismatch", err)
	}
	// Groups (0,0) and (1,0) ran; x = 32 on row 0 is the first pixel of a
	// skipped group.
	want := Mismatch{Test: TestBasic, Index: 32, X: 32, Y: 0, Device: 16, CPU: 0}
	if res.Mismatch == nil || *res.Mismatch != want {
		t.Fatalf("mismatch = %v, want %v", res.Mismatch, want)
	}
	if res.SkippedLanes != 16*16-2 {
		t.Errorf("skipped = %d, want %d", res.SkippedLanes, 16*16-2)
	}
	if app.State() != StateHalted || app.Mismatch() == nil {
		t.Fatalf("state = %v, mismatch = %v", app.State(), app.Mismatch())
	}

	passes := app.Device().(*compute.ReferenceDevice).PassCount()
	if _, err := app.RunDistanceFieldTest(); !errors.Is(err, ErrHalted) {
		t.Fatalf("RunDistanceFieldTest after halt = %v, want ErrHalted", err)
	}
	if got := app.Device().(*compute.ReferenceDevice).PassCount(); got != passes {
		t.Errorf("halted app dispatched %d passes", got-passes)
	}
	if app.Runs() != 1 {
		t.Errorf("runs = %d, want 1", app.Runs())
	}

	app.Reset()
	if app.State() != StateReady || app.Mismatch() != nil {
		t.Fatalf("after Reset: state = %v, mismatch = %v", app.State(), app.Mismatch())
	}
	if _, err := app.RunBasicTest(); !errors.Is(err, ErrMismatch) {
		t.Errorf("second run = %v, want ErrMismatch", err)
	}
}

func TestClosedApp(t *testing.T) {
	app := newTestApp(t)
	if err := app.Close(); err != nil {
		t.Fatal(err)
	}
	if err := app.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if _, err := app.RunBasicTest(); !errors.Is(err, ErrClosed) {
		t.Errorf("RunBasicTest after Close = %v", err)
	}
}

// faultyDevice fails pipeline creation after a number of successes, or
// every Submit.
type faultyDevice struct {
	*compute.ReferenceDevice
	pipelinesLeft int
	failSubmit    bool
	destroyed     int
}

var errInjected = errors.New("injected failure")

func (d *faultyDevice) CreatePipeline(k kernel.Kernel) (compute.Pipeline, error) {
	if d.pipelinesLeft == 0 {
		return nil, errInjected
	}
	d.pipelinesLeft--
	pl, err := d.ReferenceDevice.CreatePipeline(k)
	if err != nil {
		return nil, err
	}
	return &countedPipeline{Pipeline: pl, dev: d}, nil
}

func (d *faultyDevice) Submit(passes []compute.Pass) error {
	if d.failSubmit {
		return errInjected
	}
	for i := range passes {
		passes[i].Pipeline = passes[i].Pipeline.(*countedPipeline).Pipeline
	}
	return d.ReferenceDevice.Submit(passes)
}

type countedPipeline struct {
	compute.Pipeline
	dev *faultyDevice
}

func (p *countedPipeline) Destroy() {
	p.dev.destroyed++
	p.Pipeline.Destroy()
}

func TestNewAppInitFailure(t *testing.T) {
	dev := &faultyDevice{ReferenceDevice: compute.NewReferenceDevice(1), pipelinesLeft: 2}
	defer dev.Close()

	app, err := NewApp(dev)
	if !errors.Is(err, ErrInitFailed) || !errors.Is(err, errInjected) {
		t.Fatalf("NewApp error = %v, want ErrInitFailed wrapping the device error", err)
	}
	if app != nil {
		t.Error("NewApp returned an app on failure")
	}
	if dev.destroyed != 2 {
		t.Errorf("destroyed %d pipelines, want 2", dev.destroyed)
	}
}

func TestDeviceErrorDoesNotHalt(t *testing.T) {
	dev := &faultyDevice{ReferenceDevice: compute.NewReferenceDevice(1), pipelinesLeft: -1, failSubmit: true}
	defer dev.Close()

	app, err := NewApp(dev, WithSize(32, 32))
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	if _, err := app.RunBasicTest(); !errors.Is(err, errInjected) {
		t.Fatalf("RunBasicTest = %v, want injected error", err)
	}
	if app.State() != StateReady || app.Runs() != 0 {
		t.Errorf("state = %v, runs = %d", app.State(), app.Runs())
	}

	dev.failSubmit = false
	if _, err := app.RunBasicTest(); err != nil {
		t.Errorf("RunBasicTest after recovery = %v", err)
	}
}

func TestNewAppRejectsBadInput(t *testing.T) {
	dev := compute.NewReferenceDevice(1)
	defer dev.Close()

	tests := []struct {
		name string
		opts []Option
		want error
	}{
		{"zero size", []Option{WithSize(0, 4)}, ErrInvalidOption},
		{"too large", []Option{WithSize(kernel.MaxExtent+1, 4)}, ErrInvalidOption},
		{"negative distance", []Option{WithMaxDistance(-1)}, ErrInvalidOption},
		{"infinite distance", []Option{WithMaxDistance(float32(math.Inf(1)))}, ErrInvalidOption},
		{"NaN threshold", []Option{WithThreshold(float32(math.NaN()))}, ErrInvalidOption},
		{"negative tolerance", []Option{WithTolerance(-1)}, ErrInvalidOption},
		{"bad mode", []Option{WithLaunchMode(LaunchMode(7))}, ErrInvalidOption},
		{"short basic input", []Option{WithSize(4, 4), WithBasicInput(make([]float32, 15))}, ErrInvalidOption},
		{"short field input", []Option{WithSize(4, 4), WithFieldInput(make([]float32, 17))}, ErrInvalidOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewApp(dev, tt.opts...); !errors.Is(err, tt.want) {
				t.Errorf("NewApp() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := NewApp(nil); !errors.Is(err, ErrNilDevice) {
		t.Errorf("NewApp(nil) = %v", err)
	}
}
