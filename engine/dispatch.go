package engine

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum slot count to fan out to workers.
// Below this, evaluating on the calling goroutine is faster than the handoff.
const parallelThreshold = 64

// Kernel evaluates slots [start, end).
type Kernel func(start, end int)

// Dispatcher runs a kernel over [0, n). Dispatch must not block for longer
// than it takes to hand out the work; Wait blocks until every slot is done.
// A Dispatcher is driven from a single goroutine.
type Dispatcher interface {
	Dispatch(n int, kernel Kernel)
	Wait()
	Close()
}

// Inline runs the kernel synchronously inside Dispatch. It is the reference
// dispatcher for tests and single-threaded hosts.
type Inline struct{}

// Dispatch evaluates every slot before returning.
func (Inline) Dispatch(n int, kernel Kernel) {
	if n > 0 {
		kernel(0, n)
	}
}

// Wait is a no-op.
func (Inline) Wait() {}

// Close is a no-op.
func (Inline) Close() {}

// workChunk represents a range of slots for a worker to process.
type workChunk struct {
	start, end int
	kernel     Kernel
}

// Pool is a persistent worker pool that evaluates chunks of slots in parallel.
type Pool struct {
	numWorkers int
	batchSize  int

	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running

	pending int // chunks dispatched and not yet waited for
}

// NewPool creates a pool with numWorkers goroutines (GOMAXPROCS when <= 0).
// Work is split into at most numWorkers chunks of at least batchSize slots.
// Workers start lazily on the first parallel dispatch.
func NewPool(numWorkers, batchSize int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Pool{
		numWorkers: numWorkers,
		batchSize:  batchSize,
	}
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int { return p.numWorkers }

// startWorkers launches persistent worker goroutines.
func (p *Pool) startWorkers() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *Pool) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			chunk.kernel(chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// Dispatch hands [0, n) to the workers and returns without waiting. Small
// ranges are evaluated on the calling goroutine.
func (p *Pool) Dispatch(n int, kernel Kernel) {
	if n <= 0 {
		return
	}
	if n < parallelThreshold || p.numWorkers == 1 {
		kernel(0, n)
		return
	}

	if !p.running {
		p.startWorkers()
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	if chunkSize < p.batchSize {
		chunkSize = p.batchSize
	}

	// At most numWorkers chunks, so the buffered channel never blocks
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		p.workChan <- workChunk{start: start, end: end, kernel: kernel}
		p.pending++
	}
}

// Wait blocks until every dispatched chunk has completed.
func (p *Pool) Wait() {
	for ; p.pending > 0; p.pending-- {
		<-p.doneChan
	}
}

// Close waits for outstanding work and stops the workers.
func (p *Pool) Close() {
	p.Wait()
	p.stopWorkers()
}
