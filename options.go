package shadercompat

import (
	"fmt"
	"math"

	"github.com/gogpu/shadercompat/internal/parallel"
	"github.com/gogpu/shadercompat/kernel"
)

// Defaults used by NewApp.
const (
	DefaultSize        = 256
	DefaultMaxDistance = 64
	DefaultThreshold   = 0.5
	DefaultTolerance   = 1e-3

	// Cross shape of the default distance-field input.
	DefaultArmWidth  = 32
	DefaultArmLength = 85
)

// LaunchMode selects how CPU workers cover the lanes of a launch.
type LaunchMode = parallel.Mode

const (
	// LaunchStriped runs every lane: worker r takes lanes r, r+W, r+2W, ...
	LaunchStriped = parallel.ModeStriped

	// LaunchSingleLane runs one lane per worker and skips the rest. It
	// reproduces a known-defective CPU emulation; the harness reports it as
	// a mismatch whenever a dispatch has more groups than workers.
	LaunchSingleLane = parallel.ModeSingleLane
)

// ParseLaunchMode parses "striped" or "single-lane".
func ParseLaunchMode(s string) (LaunchMode, error) {
	return parallel.ParseMode(s)
}

// Option configures an App during creation.
//
// Example:
//
//	app, err := shadercompat.NewApp(dev,
//		shadercompat.WithSize(512, 512),
//		shadercompat.WithWorkers(4),
//	)
type Option func(*options)

// options holds the configuration of an App.
type options struct {
	width, height int
	workers       int
	mode          LaunchMode
	maxDistance   float32
	threshold     float32
	tolerance     float32

	basicInput []float32
	fieldInput []float32
}

func defaultOptions() options {
	return options{
		width:       DefaultSize,
		height:      DefaultSize,
		mode:        LaunchStriped,
		maxDistance: DefaultMaxDistance,
		threshold:   DefaultThreshold,
		tolerance:   DefaultTolerance,
	}
}

// WithSize sets the image extent of both tests.
func WithSize(width, height int) Option {
	return func(o *options) {
		o.width, o.height = width, height
	}
}

// WithWorkers sets the CPU worker count per launch. Zero or negative uses
// the number of host cores available to the process.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithLaunchMode selects the CPU lane coverage.
func WithLaunchMode(m LaunchMode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithMaxDistance sets the distance clamp of the distance-field test.
func WithMaxDistance(d float32) Option {
	return func(o *options) {
		o.maxDistance = d
	}
}

// WithThreshold sets the foreground threshold of the distance-field test.
func WithThreshold(t float32) Option {
	return func(o *options) {
		o.threshold = t
	}
}

// WithTolerance sets the absolute error bound of the distance-field
// comparison. The basic test always compares bitwise.
func WithTolerance(eps float32) Option {
	return func(o *options) {
		o.tolerance = eps
	}
}

// WithBasicInput replaces the all-ones input of the basic test. The slice
// must hold width*height values and is not copied.
func WithBasicInput(img []float32) Option {
	return func(o *options) {
		o.basicInput = img
	}
}

// WithFieldInput replaces the cross-shaped input of the distance-field
// test. The slice must hold width*height values and is not copied.
func WithFieldInput(img []float32) Option {
	return func(o *options) {
		o.fieldInput = img
	}
}

func (o *options) validate() error {
	if o.width < 1 || o.height < 1 || o.width > kernel.MaxExtent || o.height > kernel.MaxExtent {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidOption, o.width, o.height)
	}
	if !(o.maxDistance > 0) || math.IsInf(float64(o.maxDistance), 0) {
		return fmt.Errorf("%w: max distance %v", ErrInvalidOption, o.maxDistance)
	}
	if math.IsNaN(float64(o.threshold)) {
		return fmt.Errorf("%w: threshold is NaN", ErrInvalidOption)
	}
	if !(o.tolerance >= 0) {
		return fmt.Errorf("%w: tolerance %v", ErrInvalidOption, o.tolerance)
	}
	if o.mode != LaunchStriped && o.mode != LaunchSingleLane {
		return fmt.Errorf("%w: launch mode %v", ErrInvalidOption, o.mode)
	}
	n := o.width * o.height
	if o.basicInput != nil && len(o.basicInput) != n {
		return fmt.Errorf("%w: basic input has %d values, want %d", ErrInvalidOption, len(o.basicInput), n)
	}
	if o.fieldInput != nil && len(o.fieldInput) != n {
		return fmt.Errorf("%w: field input has %d values, want %d", ErrInvalidOption, len(o.fieldInput), n)
	}
	return nil
}
