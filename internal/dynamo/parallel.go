package dynamo

import (
	"runtime"
	"sync"
)

// Range is a half-open index interval [Start, End).
type Range struct {
	Start, End int
}

func (r Range) Len() int { return r.End - r.Start }

// Partition splits [0, n) into parts contiguous, non-overlapping ranges of
// n/parts indices each; the last range absorbs the remainder.
func Partition(n, parts int) []Range {
	if parts < 1 {
		parts = 1
	}
	if n < 0 {
		n = 0
	}
	size := n / parts
	out := make([]Range, parts)
	for w := range out {
		out[w] = Range{Start: w * size, End: (w + 1) * size}
	}
	out[parts-1].End = n
	return out
}

// Phase processes the index range [start, end).
type Phase func(start, end int)

// Barrier is a reusable rendezvous point for a fixed number of goroutines.
type Barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	parties    int
	waiting    int
	generation uint64
}

func NewBarrier(parties int) *Barrier {
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until parties goroutines have called Wait for the current
// generation, then releases all of them.
func (b *Barrier) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()
	gen := b.generation
	b.waiting++
	if b.waiting == b.parties {
		b.waiting = 0
		b.generation++
		b.cond.Broadcast()
		return
	}
	for gen == b.generation {
		b.cond.Wait()
	}
}

type job struct {
	r      Range
	phases []Phase
}

// Pool is a fixed set of long-lived workers. Each Run hands every worker one
// range of the index space and drives it through a sequence of phases; no
// worker starts phase k+1 until all workers have finished phase k.
type Pool struct {
	workers int
	jobs    []chan job
	barrier *Barrier
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool starts workers goroutines. Values below one start a single worker.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		workers: workers,
		jobs:    make([]chan job, workers),
		barrier: NewBarrier(workers),
	}
	for w := range p.jobs {
		ch := make(chan job)
		p.jobs[w] = ch
		go p.work(ch)
	}
	return p
}

func (p *Pool) Workers() int { return p.workers }

func (p *Pool) work(ch <-chan job) {
	for j := range ch {
		for k, phase := range j.phases {
			if k > 0 {
				p.barrier.Wait()
			}
			phase(j.r.Start, j.r.End)
		}
		p.wg.Done()
	}
}

// Run partitions [0, n) across the workers and executes phases in order with
// a barrier between consecutive phases. It returns once every worker has
// finished the last phase. Phases must not panic. After Close, Run executes
// the phases on the caller over the whole range.
func (p *Pool) Run(n int, phases ...Phase) {
	if len(phases) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		for _, phase := range phases {
			phase(0, n)
		}
		return
	}

	ranges := Partition(n, p.workers)
	p.wg.Add(p.workers)
	for w, ch := range p.jobs {
		ch <- job{r: ranges[w], phases: phases}
	}
	p.wg.Wait()
}

// Close stops the workers. It is safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, ch := range p.jobs {
		close(ch)
	}
}

// ParallelFor executes fn over [0, n) in chunks of at least minChunk indices
// using short-lived goroutines. It suits one-off reductions outside the step
// loop; the step itself runs on a Pool.
func ParallelFor(n, minChunk int, fn func(start, end int)) {
	numWorkers := runtime.NumCPU()
	if minChunk < 1 {
		minChunk = 1
	}
	if n <= minChunk || numWorkers <= 1 {
		fn(0, n)
		return
	}

	workers := numWorkers
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}
