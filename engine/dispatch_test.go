package engine

import (
	"sync/atomic"
	"testing"
)

func TestPool_CoversEverySlotOnce(t *testing.T) {
	for _, n := range []int{1, 63, 64, 65, 1000, 4097} {
		p := NewPool(4, 16)
		hits := make([]int32, n)

		p.Dispatch(n, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		p.Wait()
		p.Close()

		for i, h := range hits {
			if h != 1 {
				t.Fatalf("n=%d: slot %d evaluated %d times", n, i, h)
			}
		}
	}
}

func TestPool_DispatchDoesNotWait(t *testing.T) {
	p := NewPool(2, 1)
	defer p.Close()

	release := make(chan struct{})
	var done atomic.Int32

	p.Dispatch(200, func(start, end int) {
		<-release
		done.Add(int32(end - start))
	})

	if got := done.Load(); got != 0 {
		t.Fatalf("expected no work finished before release, got %d", got)
	}
	close(release)
	p.Wait()

	if got := done.Load(); got != 200 {
		t.Errorf("expected 200 slots after wait, got %d", got)
	}
}

func TestPool_ReusableAfterClose(t *testing.T) {
	p := NewPool(3, 8)
	var count atomic.Int32
	kernel := func(start, end int) { count.Add(int32(end - start)) }

	p.Dispatch(300, kernel)
	p.Close()
	p.Dispatch(300, kernel)
	p.Close()

	if got := count.Load(); got != 600 {
		t.Errorf("expected 600, got %d", got)
	}
}

func TestPool_DefaultsToGOMAXPROCS(t *testing.T) {
	p := NewPool(0, 0)
	if p.Workers() < 1 {
		t.Errorf("expected at least 1 worker, got %d", p.Workers())
	}
	p.Close()
}

func TestInline_RunsImmediately(t *testing.T) {
	var seen int
	Inline{}.Dispatch(10, func(start, end int) { seen += end - start })
	if seen != 10 {
		t.Errorf("expected 10 slots, got %d", seen)
	}
}
