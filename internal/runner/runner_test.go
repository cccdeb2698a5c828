package runner_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sts/internal/runner"
)

func TestRunnerRunsToCompletionWithoutPausing(t *testing.T) {
	r := runner.New(-1)
	defer r.Close()

	done := make(chan struct{})
	r.Run(func() {
		close(done)
	})
	r.Wait()

	select {
	case <-done:
	default:
		t.Fatal("lambda did not run")
	}
	assert.True(t, r.IsFinished())
}

func TestRunnerPauseSuspendsUntilCont(t *testing.T) {
	r := runner.New(-1)
	defer r.Close()

	stage := make(chan int, 3)
	r.Run(func() {
		stage <- 1
		r.Pause()
		stage <- 2
	})
	r.Wait()

	require.Len(t, stage, 1)
	assert.False(t, r.IsFinished())

	r.Cont()
	r.Wait()

	require.Len(t, stage, 2)
	assert.True(t, r.IsFinished())
}

func TestRunnerReusableAcrossMultipleRuns(t *testing.T) {
	r := runner.New(-1)
	defer r.Close()

	for i := 0; i < 5; i++ {
		got := 0
		r.Run(func() { got = i })
		r.Wait()
		assert.Equal(t, i, got)
		assert.True(t, r.IsFinished())
	}
}

func TestPoolGetReusesReleasedRunnerForSameCore(t *testing.T) {
	p := runner.NewPool()
	p.AddCore(0)
	defer p.Close()

	r1 := p.Get(0)
	r1.Run(func() {})
	r1.Wait()
	p.Release(r1)

	r2 := p.Get(0)
	assert.Same(t, r1, r2)
	p.Release(r2)
}

func TestPoolSharedCoresFallbackWhenCoreNotRegistered(t *testing.T) {
	p := runner.NewPool()
	p.SetSharedCores(true)
	defer p.Close()

	r1 := p.Get(7)
	r1.Run(func() {})
	r1.Wait()
	p.Release(r1)

	r2 := p.Get(9)
	assert.Same(t, r1, r2)
	p.Release(r2)
}

func TestPoolStatsReflectsOutstandingAndIdle(t *testing.T) {
	p := runner.NewPool()
	p.AddCore(0)
	defer p.Close()

	r := p.Get(0)
	stats := p.Stats()
	assert.Equal(t, 1, stats.Outstanding)
	assert.Equal(t, 0, stats.Idle)

	r.Run(func() {})
	r.Wait()
	p.Release(r)

	stats = p.Stats()
	assert.Equal(t, 0, stats.Outstanding)
	assert.Equal(t, 1, stats.Idle)
}

func TestRunnerCloseWaitsForGoroutineExit(t *testing.T) {
	r := runner.New(-1)
	r.Run(func() { time.Sleep(time.Millisecond) })
	r.Wait()
	r.Close()
	assert.True(t, r.IsFinished())
}
