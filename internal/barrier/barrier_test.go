package barrier_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sts/internal/barrier"
)

func TestMOBarrierReleasesWaitersOnOpen(t *testing.T) {
	b := barrier.NewMOBarrier()
	var wg sync.WaitGroup
	var released atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Wait()
			released.Add(1)
		}()
	}
	time.Sleep(10 * time.Millisecond)
	assert.EqualValues(t, 0, released.Load())
	b.Open()
	wg.Wait()
	assert.EqualValues(t, 8, released.Load())
}

func TestOMBarrierWaitsForAllArrivals(t *testing.T) {
	b := barrier.NewOMBarrier(3)
	var done atomic.Bool
	go func() {
		b.Wait()
		done.Store(true)
	}()
	b.MarkArrival()
	b.MarkArrival()
	time.Sleep(5 * time.Millisecond)
	assert.False(t, done.Load())
	b.MarkArrival()
	require.Eventually(t, done.Load, time.Second, time.Millisecond)
}

func TestOMBarrierAddThreadGrowsArrivalCount(t *testing.T) {
	b := barrier.NewOMBarrier(1)
	b.AddThread() // now needs 2 arrivals
	var done atomic.Bool
	go func() {
		b.Wait()
		done.Store(true)
	}()
	b.MarkArrival()
	time.Sleep(5 * time.Millisecond)
	assert.False(t, done.Load())
	b.MarkArrival()
	require.Eventually(t, done.Load, time.Second, time.Millisecond)
}

func TestMMBarrierReleasesExactlyNEachRoundWithNoLeak(t *testing.T) {
	const n = 10
	const rounds = 50
	b := barrier.NewMMBarrier(n)
	var wg sync.WaitGroup
	counters := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				counters[id] = r
				b.Enter()
			}
		}(i)
	}
	wg.Wait()
	for i := 0; i < n; i++ {
		assert.Equal(t, rounds-1, counters[i])
	}
}

func TestRMOBarrierAllowsReentryWithoutExternalReset(t *testing.T) {
	b := barrier.NewRMOBarrier(1)
	done := make(chan struct{})
	go func() {
		b.Wait(0)
		b.Wait(0)
		close(done)
	}()
	b.Open()
	b.Open()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RMOBarrier waiter never returned from its second Wait")
	}
}

func TestRegistryLookupAndDeregister(t *testing.T) {
	b := barrier.NewMOBarrier()
	barrier.Register("test-barrier", b)
	defer barrier.Deregister("test-barrier")

	got, found := barrier.Lookup("test-barrier")
	require.True(t, found)
	assert.Same(t, b, got)

	barrier.Deregister("test-barrier")
	_, found = barrier.Lookup("test-barrier")
	assert.False(t, found)
}
