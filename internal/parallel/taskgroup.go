package parallel

import (
	"context"
	"fmt"
	"math"
	"runtime/pprof"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// KernelFunc is the calling convention shared by every CPU kernel entry.
//
// threadRank and threadCount identify the worker. laneRank and laneCount
// identify the lane being executed within the whole launch (in
// ModeSingleLane they repeat the worker identity). i0, i1, i2 are the lane
// coordinates within the launch extent count0 x count1 x count2.
type KernelFunc func(data any, threadRank, threadCount, laneRank, laneCount, i0, i1, i2, count0, count1, count2 int)

// Mode selects how workers cover the lanes of a launch.
type Mode int

const (
	// ModeStriped gives worker r the lanes r, r+W, r+2W, ... so every lane
	// of the launch runs exactly once.
	ModeStriped Mode = iota

	// ModeSingleLane gives each worker exactly one lane, rank mod W. Lanes
	// beyond the worker count never run. It reproduces the coarse emulation
	// some CPU shader runtimes use and exists so the cross-validation harness
	// can demonstrate the coverage gap.
	ModeSingleLane
)

// String returns the mode name used by flags and logs.
func (m Mode) String() string {
	switch m {
	case ModeStriped:
		return "striped"
	case ModeSingleLane:
		return "single-lane"
	default:
		return "mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseMode parses the names returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "striped", "":
		return ModeStriped, nil
	case "single-lane", "single":
		return ModeSingleLane, nil
	}
	return 0, fmt.Errorf("parallel: unknown launch mode %q", s)
}

// Config configures a Handle.
type Config struct {
	// Workers is the number of worker goroutines per launch.
	// Zero or negative means HostCores().
	Workers int

	// Mode selects lane coverage. The zero value is ModeStriped.
	Mode Mode
}

// LaunchStats describes the most recently synced launch.
type LaunchStats struct {
	Workers  int
	Lanes    int // count0*count1*count2
	Executed int // lanes that actually ran
}

// TaskGroup is the state behind one launch: the worker count fixed at
// creation, the allocations made for the launch, and the running workers.
// It lives from the first Alloc on a Handle until the matching Sync.
type TaskGroup struct {
	workers int
	mode    Mode

	blocks [][]byte

	fn     KernelFunc
	data   any
	counts [3]int

	eg       *errgroup.Group
	executed atomic.Int64
}

// Workers returns the worker count fixed when the group was created.
func (g *TaskGroup) Workers() int { return g.workers }

// Handle owns at most one TaskGroup at a time.
//
// The lifecycle is Alloc (creates the group on first use), Launch, Sync
// (joins all workers and releases the group together with every block
// allocated through the handle). After Sync the handle can be reused
// starting again with Alloc.
//
// Thread safety: Handle is safe for concurrent use, but Launch must not be
// called again before Sync.
type Handle struct {
	cfg Config

	mu    sync.Mutex
	group *TaskGroup
	last  LaunchStats
}

// NewHandle returns an idle handle.
func NewHandle(cfg Config) *Handle {
	return &Handle{cfg: cfg}
}

// Alloc returns a zeroed block of size bytes aligned to alignment. The first
// call on an idle handle creates the task group. The block stays owned by the
// task group and is released at Sync; callers keep long-lived buffers
// elsewhere (see AlignedAlloc).
func (h *Handle) Alloc(size, alignment int) ([]byte, error) {
	block, err := AlignedAlloc(size, alignment)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.group == nil {
		workers := h.cfg.Workers
		if workers <= 0 {
			workers = HostCores()
		}
		h.group = &TaskGroup{workers: workers, mode: h.cfg.Mode}
	}
	h.group.blocks = append(h.group.blocks, block)
	return block, nil
}

// Group returns the live task group, or nil when the handle is idle.
func (h *Handle) Group() *TaskGroup {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.group
}

// Launch starts the workers of the task group on fn and returns without
// waiting. The launch extent is count0 x count1 x count2 lanes.
func (h *Handle) Launch(fn KernelFunc, data any, count0, count1, count2 int) error {
	if fn == nil {
		return ErrNilKernel
	}
	if count0 < 1 || count1 < 1 || count2 < 1 {
		return fmt.Errorf("%w: %dx%dx%d", ErrInvalidCount, count0, count1, count2)
	}
	if count1 > math.MaxInt/count0 || count2 > math.MaxInt/(count0*count1) {
		return fmt.Errorf("%w: %dx%dx%d overflows the lane count", ErrInvalidCount, count0, count1, count2)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	g := h.group
	if g == nil {
		return ErrNoTaskGroup
	}
	if g.eg != nil {
		return ErrLaunchInFlight
	}

	g.fn = fn
	g.data = data
	g.counts = [3]int{count0, count1, count2}
	g.eg = new(errgroup.Group)
	for rank := range g.workers {
		g.eg.Go(func() error { return g.run(rank) })
	}
	return nil
}

// Sync blocks until every worker of the current launch has returned, then
// releases the task group and its allocations. Sync on an idle handle is a
// no-op. The returned error is non-nil when a worker panicked; the launch
// produced no trustworthy output in that case.
func (h *Handle) Sync() error {
	h.mu.Lock()
	g := h.group
	var eg *errgroup.Group
	if g != nil {
		eg = g.eg
	}
	h.mu.Unlock()
	if g == nil {
		return nil
	}

	var err error
	if eg != nil {
		err = eg.Wait()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.group == g {
		if eg != nil {
			h.last = LaunchStats{
				Workers:  g.workers,
				Lanes:    g.counts[0] * g.counts[1] * g.counts[2],
				Executed: int(g.executed.Load()),
			}
		}
		g.blocks = nil
		h.group = nil
	}
	return err
}

// LastLaunch returns statistics of the most recently synced launch.
func (h *Handle) LastLaunch() LaunchStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// run executes the lanes owned by one worker.
func (g *TaskGroup) run(rank int) (err error) {
	name := "worker-" + strconv.Itoa(rank)
	ctx := pprof.WithLabels(context.Background(), pprof.Labels("worker", name))
	pprof.SetGoroutineLabels(ctx)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrWorkerPanic, name, r)
		}
	}()

	c0, c1, c2 := g.counts[0], g.counts[1], g.counts[2]
	total := c0 * c1 * c2
	grid := Grid{X: c0, Y: c1, Z: c2}

	if g.mode == ModeSingleLane {
		lane := rank % g.workers
		if lane < total {
			i0, i1, i2 := grid.Coord(lane)
			g.fn(g.data, rank, g.workers, rank, g.workers, i0, i1, i2, c0, c1, c2)
			g.executed.Add(1)
		}
		return nil
	}

	var n int64
	for lane := rank; lane < total; lane += g.workers {
		i0, i1, i2 := grid.Coord(lane)
		g.fn(g.data, rank, g.workers, lane, total, i0, i1, i2, c0, c1, c2)
		n++
	}
	g.executed.Add(n)
	return nil
}
