//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"sync"
)

// ErrMemoryBudgetExceeded is returned when an allocation would exceed the
// device memory budget.
var ErrMemoryBudgetExceeded = errors.New("gpu: memory budget exceeded")

const (
	// DefaultMaxMemoryMB is the default device memory budget.
	DefaultMaxMemoryMB = 2048

	// MinMemoryMB is the smallest accepted budget.
	MinMemoryMB = 16
)

// MemoryStats contains device buffer usage statistics.
type MemoryStats struct {
	// TotalBytes is the memory budget in bytes.
	TotalBytes uint64

	// UsedBytes is the memory held by live buffers.
	UsedBytes uint64

	// PeakBytes is the largest UsedBytes observed.
	PeakBytes uint64

	// AvailableBytes is the remaining budget.
	AvailableBytes uint64

	// BufferCount is the number of live buffers.
	BufferCount int

	// Utilization is UsedBytes / TotalBytes.
	Utilization float64
}

// String returns a human-readable summary.
func (s MemoryStats) String() string {
	return fmt.Sprintf("Memory[%.1f%% used, %d/%d MB, peak %d MB, %d buffers]",
		s.Utilization*100,
		s.UsedBytes/(1024*1024),
		s.TotalBytes/(1024*1024),
		s.PeakBytes/(1024*1024),
		s.BufferCount)
}

// MemoryBudget tracks device buffer allocations against a fixed budget.
// Buffers hold data the harness still needs, so nothing is evicted; an
// allocation that does not fit fails instead.
//
// MemoryBudget is safe for concurrent use.
type MemoryBudget struct {
	mu      sync.Mutex
	budget  uint64
	used    uint64
	peak    uint64
	buffers int
}

// NewMemoryBudget returns a budget of maxMB megabytes. Values below
// MinMemoryMB select DefaultMaxMemoryMB.
func NewMemoryBudget(maxMB int) *MemoryBudget {
	if maxMB < MinMemoryMB {
		maxMB = DefaultMaxMemoryMB
	}
	return &MemoryBudget{budget: uint64(maxMB) * 1024 * 1024}
}

// Reserve accounts for a new buffer of size bytes.
func (m *MemoryBudget) Reserve(label string, size uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.used+size > m.budget {
		return fmt.Errorf("%w: %q needs %d bytes, %d of %d available",
			ErrMemoryBudgetExceeded, label, size, m.budget-m.used, m.budget)
	}
	m.used += size
	m.peak = max(m.peak, m.used)
	m.buffers++
	return nil
}

// Release returns size bytes of a destroyed buffer to the budget.
func (m *MemoryBudget) Release(size uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.used -= min(size, m.used)
	if m.buffers > 0 {
		m.buffers--
	}
}

// Stats returns a snapshot of the budget.
func (m *MemoryBudget) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := MemoryStats{
		TotalBytes:     m.budget,
		UsedBytes:      m.used,
		PeakBytes:      m.peak,
		AvailableBytes: m.budget - m.used,
		BufferCount:    m.buffers,
	}
	if m.budget > 0 {
		s.Utilization = float64(m.used) / float64(m.budget)
	}
	return s
}
