package parallel

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool is a persistent set of goroutines that executes indexed work.
//
// Each worker owns a queue and steals from the other queues when its own is
// empty, which keeps all cores busy when work items take uneven time. Unlike
// Handle, a pool outlives individual dispatches; the software reference
// device keeps one for its whole lifetime.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers int

	// queues holds one buffered queue per worker.
	queues []chan func()

	// submit is held shared while work is queued and exclusively by Close,
	// so every queued item is in a queue before the workers drain and exit.
	submit sync.RWMutex

	done chan struct{}
	wg   sync.WaitGroup

	running atomic.Bool
}

// NewWorkerPool starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)
	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case work := <-own:
			work()
		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drain(own)
				return
			case work := <-own:
				work()
			}
		}
	}
}

func (p *WorkerPool) drain(queue chan func()) {
	for {
		select {
		case work := <-queue:
			work()
		default:
			return
		}
	}
}

func (p *WorkerPool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case work := <-p.queues[i]:
			return work
		default:
		}
	}
	return nil
}

// ExecuteRange calls fn(i) for every i in [0, n) and waits for all calls to
// return. Indices are split into contiguous chunks spread round-robin over
// the worker queues. A panic inside fn is recovered and reported as
// ErrWorkerPanic after the remaining work has finished.
//
// ExecuteRange on a closed pool runs nothing and returns an error.
func (p *WorkerPool) ExecuteRange(n int, fn func(i int)) error {
	if n <= 0 {
		return nil
	}
	p.submit.RLock()
	if !p.running.Load() {
		p.submit.RUnlock()
		return fmt.Errorf("parallel: execute on closed pool")
	}

	chunk := max(DivCeil(n, p.workers*4), 1)
	chunks := DivCeil(n, chunk)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	wg.Add(chunks)
	for c := range chunks {
		lo := c * chunk
		hi := min(lo+chunk, n)
		work := func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errOnce.Do(func() {
						firstErr = fmt.Errorf("%w: index range [%d,%d): %v", ErrWorkerPanic, lo, hi, r)
					})
				}
			}()
			for i := lo; i < hi; i++ {
				fn(i)
			}
		}

		p.queues[c%p.workers] <- work
	}
	p.submit.RUnlock()

	wg.Wait()
	return firstErr
}

// Close stops the workers after the queued work has drained.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	p.submit.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.submit.Unlock()
		return
	}
	p.submit.Unlock()
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool accepts work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}
