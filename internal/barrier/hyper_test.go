package barrier_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sts/internal/barrier"
)

func TestMOHyperBarrierReleasesAllParticipants(t *testing.T) {
	const n = 8
	b := barrier.NewMOHyperBarrier(n, 2)
	var wg sync.WaitGroup
	var released atomic.Int32
	for tid := 1; tid < n; tid++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			b.Enter(id)
			released.Add(1)
		}(tid)
	}
	time.Sleep(10 * time.Millisecond)
	assert.EqualValues(t, 0, released.Load())
	b.Enter(0)
	wg.Wait()
	assert.EqualValues(t, n-1, released.Load())
}

func TestOMHyperBarrierWaitsForAllLeaves(t *testing.T) {
	const n = 8
	b := barrier.NewOMHyperBarrier(n, 2)
	var done atomic.Bool
	go func() {
		b.Enter(0)
		done.Store(true)
	}()
	for tid := 1; tid < n; tid++ {
		time.Sleep(time.Millisecond)
		assert.False(t, done.Load())
		go b.Enter(tid)
	}
	for i := 0; i < 100 && !done.Load(); i++ {
		time.Sleep(time.Millisecond)
	}
	assert.True(t, done.Load())
}
