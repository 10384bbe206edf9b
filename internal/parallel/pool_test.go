package parallel

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestWorkerPool_DefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewWorkerPool(n)
		if pool.Workers() != runtime.GOMAXPROCS(0) {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want GOMAXPROCS", n, pool.Workers())
		}
		pool.Close()
	}
}

func TestWorkerPool_ExecuteRange(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	for _, n := range []int{1, 3, 16, 1000, 4097} {
		hits := make([]atomic.Int32, n)
		if err := pool.ExecuteRange(n, func(i int) { hits[i].Add(1) }); err != nil {
			t.Fatalf("ExecuteRange(%d): %v", n, err)
		}
		for i := range hits {
			if got := hits[i].Load(); got != 1 {
				t.Fatalf("n=%d: index %d ran %d times", n, i, got)
			}
		}
	}
}

func TestWorkerPool_ExecuteRangeEmpty(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	if err := pool.ExecuteRange(0, func(int) { t.Error("called") }); err != nil {
		t.Errorf("ExecuteRange(0) = %v", err)
	}
}

func TestWorkerPool_Panic(t *testing.T) {
	pool := NewWorkerPool(3)
	defer pool.Close()

	var ran atomic.Int32
	err := pool.ExecuteRange(100, func(i int) {
		if i == 42 {
			panic("boom")
		}
		ran.Add(1)
	})
	if !errors.Is(err, ErrWorkerPanic) {
		t.Fatalf("err = %v, want ErrWorkerPanic", err)
	}
	// The pool must stay usable.
	if err := pool.ExecuteRange(10, func(int) {}); err != nil {
		t.Errorf("pool unusable after panic: %v", err)
	}
}

func TestWorkerPool_Close(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close()

	if pool.IsRunning() {
		t.Error("pool running after Close")
	}
	if err := pool.ExecuteRange(5, func(int) {}); err == nil {
		t.Error("ExecuteRange on closed pool succeeded")
	}
}

func TestWorkerPool_CloseDuringExecute(t *testing.T) {
	for range 50 {
		pool := NewWorkerPool(4)
		var ran atomic.Int64
		finished := make(chan error, 1)

		go func() {
			finished <- pool.ExecuteRange(4096, func(int) { ran.Add(1) })
		}()
		go pool.Close()

		select {
		case err := <-finished:
			if err == nil && ran.Load() != 4096 {
				t.Fatalf("ExecuteRange succeeded after running %d of 4096 indices", ran.Load())
			}
			if err != nil && ran.Load() != 0 {
				t.Fatalf("ExecuteRange failed after running %d indices", ran.Load())
			}
		case <-time.After(5 * time.Second):
			t.Fatal("ExecuteRange blocked after Close")
		}
		pool.Close()
	}
}
