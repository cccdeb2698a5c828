package sts_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sts/internal/barrier"
	"sts/internal/sts"
	"sts/internal/stsrange"
)

func ratio(num, den int64) stsrange.Ratio { return stsrange.NewRatio(num, den) }

// TestEvenSplitLoop is spec.md 8 scenario 1: a 100-element array written by
// a loop task partitioned evenly over 4 threads.
func TestEvenSplitLoop(t *testing.T) {
	sts.Startup(4)
	defer sts.Shutdown()

	sched := sts.CreateSchedule("even-split")
	defer sts.DeleteSchedule("even-split")

	threadIDs := []int{0, 1, 2, 3}
	ranges := make([]sts.Range, 4)
	for i := range ranges {
		ranges[i] = sts.Range{Start: ratio(int64(i), 4), End: ratio(int64(i+1), 4)}
	}
	sched.AssignLoopVector("L", threadIDs, ranges)

	a := make([]int, 101)
	w := sts.CallerWorker()

	sched.NextStep()
	sched.ParallelFor(w, "L", 0, 100, func(_ *sts.Worker, i int64) {
		a[i] = 1
	})
	sched.Wait(w)

	for i := 0; i < 100; i++ {
		assert.Equalf(t, 1, a[i], "a[%d]", i)
	}
	assert.Equal(t, 0, a[100])
}

// TestReductionAccumulatesAcrossSteps is spec.md 8 scenario 3.
func TestReductionAccumulatesAcrossSteps(t *testing.T) {
	sts.Startup(10)
	defer sts.Shutdown()

	sched := sts.CreateSchedule("reduction")
	defer sts.DeleteSchedule("reduction")

	threadIDs := make([]int, 10)
	ranges := make([]sts.Range, 10)
	for i := range threadIDs {
		threadIDs[i] = i
		ranges[i] = sts.Range{Start: ratio(int64(i), 10), End: ratio(int64(i+1), 10)}
	}
	sched.AssignLoopVector("R", threadIDs, ranges)

	w := sts.CallerWorker()

	sched.NextStep()
	red := sts.CreateTaskReduction[int64](sched, "R", 0)
	sts.ParallelForReduce(sched, w, "R", 0, 30, func(w *sts.Worker, i int64) {
		sts.Collect[int64](sched, w, 1)
	}, red)
	sched.Wait(w)
	require.EqualValues(t, 30, red.Result())

	sched.NextStep()
	red2 := sts.CreateTaskReduction[int64](sched, "R", red.Result())
	sts.ParallelForReduce(sched, w, "R", 0, 30, func(w *sts.Worker, i int64) {
		sts.Collect[int64](sched, w, 1)
	}, red2)
	sched.Wait(w)
	assert.EqualValues(t, 60, red2.Result())
}

// TestCoroutineInterleaving is spec.md 8 scenario 5: two tasks assigned to
// thread 0, each other's coroutine successor, print one character per
// pause and must interleave deterministically.
func TestCoroutineInterleaving(t *testing.T) {
	sts.Startup(1)
	defer sts.Shutdown()

	sched := sts.CreateSchedule("coroutine")
	defer sts.DeleteSchedule("coroutine")

	sched.AssignRun("F", 0)
	sched.AssignRun("G", 0)
	sched.SetCoroutine("F", "G")
	sched.SetCoroutine("G", "F")

	const left = "Hlord"
	const right = "elWo "

	var out []byte
	w := sts.CallerWorker()

	sched.NextStep()
	sched.Run(w, "F", func(w *sts.Worker) {
		for i := 0; i < len(left); i++ {
			out = append(out, left[i])
			if i < len(left)-1 {
				sched.Pause(w, 0)
			}
		}
	})
	sched.Run(w, "G", func(w *sts.Worker) {
		for i := 0; i < len(right); i++ {
			out = append(out, right[i])
			if i < len(right)-1 {
				sched.Pause(w, 0)
			}
		}
	})
	sched.Wait(w)

	require.Len(t, out, len(left)+len(right))
	for i := 0; i < len(left); i++ {
		assert.Equal(t, left[i], out[2*i])
	}
	for i := 0; i < len(right); i++ {
		assert.Equal(t, right[i], out[2*i+1])
	}
}

// TestTwoTasksHelperThread is spec.md 8 scenario 2: nthreads=3, F assigned
// to thread 1 ([0,4/6)) and thread 0 ([4/6,1]); G is three STS tasks: G0 and
// G1 each split between thread 2 and thread 0, and a serial middle that runs
// on thread 2 only. Thread 0's
// queue order (G0 half, F half, G1 half) is fixed purely by the order
// assignments were made for it, and the driving code below issues its
// ParallelFor/Run calls in that same order so the master thread's own
// nested-loop-run walks straight through its queue without hitting an
// unpublished task.
func TestTwoTasksHelperThread(t *testing.T) {
	sts.Startup(3)
	defer sts.Shutdown()

	sched := sts.CreateSchedule("two-tasks")
	defer sts.DeleteSchedule("two-tasks")

	sched.AssignLoop("G0", 2, sts.Range{Start: ratio(0, 1), End: ratio(1, 2)})
	sched.AssignLoop("G0", 0, sts.Range{Start: ratio(1, 2), End: ratio(1, 1)})
	sched.AssignRun("middle", 2)
	sched.AssignLoop("F", 1, sts.Range{Start: ratio(0, 1), End: ratio(4, 6)})
	sched.AssignLoop("F", 0, sts.Range{Start: ratio(4, 6), End: ratio(1, 1)})
	sched.AssignLoop("G1", 2, sts.Range{Start: ratio(0, 1), End: ratio(1, 2)})
	sched.AssignLoop("G1", 0, sts.Range{Start: ratio(1, 2), End: ratio(1, 1)})

	var thread0Log, thread1Log, thread2Log []string
	var countF, countG0, countMiddle, countG1 int

	w := sts.CallerWorker()
	sched.NextStep()

	sched.ParallelFor(w, "G0", 0, 200, func(w *sts.Worker, _ int64) {
		countG0++
		if w.ID() == 0 {
			thread0Log = append(thread0Log, "G0")
		} else {
			thread2Log = append(thread2Log, "G0")
		}
	})
	sched.Run(w, "middle", func(w *sts.Worker) {
		countMiddle++
		thread2Log = append(thread2Log, "middle")
	})
	sched.ParallelFor(w, "F", 0, 600, func(w *sts.Worker, _ int64) {
		countF++
		if w.ID() == 0 {
			thread0Log = append(thread0Log, "F")
		} else {
			thread1Log = append(thread1Log, "F")
		}
	})
	sched.ParallelFor(w, "G1", 0, 200, func(w *sts.Worker, _ int64) {
		countG1++
		if w.ID() == 0 {
			thread0Log = append(thread0Log, "G1")
		} else {
			thread2Log = append(thread2Log, "G1")
		}
	})
	sched.Wait(w)

	assert.Equal(t, 600, countF)
	assert.Equal(t, 200, countG0)
	assert.Equal(t, 1, countMiddle)
	assert.Equal(t, 200, countG1)

	require.Len(t, thread1Log, 400)
	for _, e := range thread1Log {
		assert.Equal(t, "F", e)
	}

	require.Len(t, thread0Log, 400)
	assert.Equal(t, strings.Repeat("G0,", 100)+strings.Repeat("F,", 200)+strings.Repeat("G1,", 100), strings.Join(thread0Log, ",")+",")

	require.Len(t, thread2Log, 201)
	assert.Equal(t, strings.Repeat("G0,", 100)+"middle,"+strings.Repeat("G1,", 100), strings.Join(thread2Log, ",")+",")
}

// TestHighPriorityYield is spec.md 8 scenario 6: a high-priority task COMM
// is published on the same thread as a lower-priority task; the
// lower-priority task calls Yield mid-body, which must run COMM immediately
// (out of its natural queue turn) exactly once.
func TestHighPriorityYield(t *testing.T) {
	sts.Startup(1)
	defer sts.Shutdown()

	sched := sts.CreateSchedule("yield")
	defer sts.DeleteSchedule("yield")

	sched.AssignRun("LOW", 0)
	sched.AssignRun("COMM", 0)
	sched.SetHighPriority("COMM", true)

	var order []string
	var commRuns int

	w := sts.CallerWorker()
	sched.NextStep()
	sched.Run(w, "LOW", func(w *sts.Worker) {
		order = append(order, "low-before-yield")
		sched.Yield(w)
		order = append(order, "low-after-yield")
	})
	sched.Run(w, "COMM", func(w *sts.Worker) {
		commRuns++
		order = append(order, "comm")
	})
	sched.Wait(w)

	assert.Equal(t, 1, commRuns)
	require.Equal(t, []string{"low-before-yield", "comm", "low-after-yield"}, order)
}

// TestParallelForDefaultReduce exercises sts.ParallelForDefaultReduce end to
// end: the reduction must actually be merged (Reduce called) against the
// default schedule too, not only against named schedules.
func TestParallelForDefaultReduce(t *testing.T) {
	sts.Startup(4)
	defer sts.Shutdown()

	w := sts.CallerWorker()
	red := sts.CreateTaskReduction[int64](sts.DefaultSchedule(), "default", 0)
	sts.ParallelForDefaultReduce(w, 0, 40, func(w *sts.Worker, _ int64) {
		sts.Collect[int64](sts.DefaultSchedule(), w, 1)
	}, red)

	assert.EqualValues(t, 40, red.Result())
}

// TestManyToManyBarrierInsideLoop is spec.md 8 scenario 4: 10 threads,
// size-100 array, each iteration writes A[i]=1, waits on an MMBarrier(10),
// then writes B[i]=A[i]+A[(i+10)%100].
func TestManyToManyBarrierInsideLoop(t *testing.T) {
	const nthreads = 10
	const n = 100

	sts.Startup(nthreads)
	defer sts.Shutdown()

	sched := sts.CreateSchedule("mm-barrier")
	defer sts.DeleteSchedule("mm-barrier")

	threadIDs := make([]int, nthreads)
	ranges := make([]sts.Range, nthreads)
	for i := range threadIDs {
		threadIDs[i] = i
		ranges[i] = sts.Range{Start: ratio(int64(i), nthreads), End: ratio(int64(i+1), nthreads)}
	}
	sched.AssignLoopVector("B", threadIDs, ranges)

	a := make([]int64, n)
	b := make([]int64, n)

	mm := barrier.NewMMBarrier(nthreads)
	w := sts.CallerWorker()
	sched.NextStep()
	sched.ParallelFor(w, "B", 0, n, func(_ *sts.Worker, i int64) {
		a[i] = 1
		mm.Enter()
		b[i] = a[i] + a[(i+10)%n]
	})
	sched.Wait(w)

	for i := 0; i < n; i++ {
		assert.EqualValues(t, 1, a[i])
		assert.EqualValues(t, 2, b[i])
	}
}
