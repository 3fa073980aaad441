package dynamo

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestPartition(t *testing.T) {
	tests := []struct {
		n, parts int
		want     []Range
	}{
		{10, 2, []Range{{0, 5}, {5, 10}}},
		{10, 3, []Range{{0, 3}, {3, 6}, {6, 10}}},
		{2, 4, []Range{{0, 0}, {0, 0}, {0, 0}, {0, 2}}},
		{5, 0, []Range{{0, 5}}},
		{0, 2, []Range{{0, 0}, {0, 0}}},
	}
	for _, tt := range tests {
		got := Partition(tt.n, tt.parts)
		if len(got) != len(tt.want) {
			t.Errorf("Partition(%d, %d) returned %d ranges", tt.n, tt.parts, len(got))
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Partition(%d, %d)[%d] = %v, want %v", tt.n, tt.parts, i, got[i], tt.want[i])
			}
		}
	}
}

func TestPartitionCovers(t *testing.T) {
	for _, n := range []int{0, 1, 7, 100, 1001} {
		for _, parts := range []int{1, 3, 8, 16} {
			total := 0
			next := 0
			for _, r := range Partition(n, parts) {
				if r.Start != next {
					t.Fatalf("n=%d parts=%d: gap at %d", n, parts, r.Start)
				}
				next = r.End
				total += r.Len()
			}
			if total != n {
				t.Errorf("n=%d parts=%d: covered %d", n, parts, total)
			}
		}
	}
}

func TestBarrierReusable(t *testing.T) {
	const parties, rounds = 4, 50
	b := NewBarrier(parties)
	var counter atomic.Int64
	var wg sync.WaitGroup
	errs := make(chan int64, parties*rounds)

	for w := 0; w < parties; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 1; r <= rounds; r++ {
				counter.Add(1)
				b.Wait()
				if got := counter.Load(); got < int64(r*parties) {
					errs <- got
				}
				b.Wait()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for got := range errs {
		t.Errorf("worker passed the barrier with counter %d", got)
	}
}

func TestPoolRunsEveryIndex(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	hits := make([]int32, 1003)
	pool.Run(len(hits), func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	})
	for i, h := range hits {
		if h != 1 {
			t.Fatalf("index %d visited %d times", i, h)
		}
	}
}

func TestPoolPhaseBarrier(t *testing.T) {
	pool := NewPool(8)
	defer pool.Close()

	n := 800
	src := make([]int, n)
	dst := make([]int, n)

	for round := 1; round <= 20; round++ {
		pool.Run(n,
			func(start, end int) {
				for i := start; i < end; i++ {
					src[i] = round
				}
			},
			func(start, end int) {
				// Every write from the first phase must be visible here,
				// including those made by other workers.
				for i := start; i < end; i++ {
					dst[i] = src[n-1-i]
				}
			},
		)
		for i, v := range dst {
			if v != round {
				t.Fatalf("round %d: dst[%d] = %d", round, i, v)
			}
		}
	}
}

func TestPoolClose(t *testing.T) {
	pool := NewPool(3)
	pool.Close()
	pool.Close()

	var calls int
	var lastStart, lastEnd int
	pool.Run(10, func(start, end int) {
		calls++
		lastStart, lastEnd = start, end
	})
	if calls != 1 || lastStart != 0 || lastEnd != 10 {
		t.Errorf("closed pool should run once over [0,10), got %d calls over [%d,%d)", calls, lastStart, lastEnd)
	}
}

func TestNewPoolMinimumWorkers(t *testing.T) {
	pool := NewPool(0)
	defer pool.Close()
	if pool.Workers() != 1 {
		t.Errorf("expected 1 worker, got %d", pool.Workers())
	}
}

func TestParallelFor(t *testing.T) {
	var sum atomic.Int64
	ParallelFor(10000, 100, func(start, end int) {
		local := int64(0)
		for i := start; i < end; i++ {
			local += int64(i)
		}
		sum.Add(local)
	})
	if want := int64(10000 * 9999 / 2); sum.Load() != want {
		t.Errorf("expected %d, got %d", want, sum.Load())
	}
}
