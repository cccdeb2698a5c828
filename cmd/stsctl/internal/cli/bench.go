package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sts/internal/reduce"
	"sts/internal/sts"
	"sts/internal/stsrange"
)

func ratio(num, den int) stsrange.Ratio { return stsrange.NewRatio(int64(num), int64(den)) }

func newBenchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bench",
		Short: "Run the even-split-loop and reduction scenarios and report elapsed time and results",
		RunE: func(cmd *cobra.Command, args []string) error {
			evenSplitLoopBench()
			reductionBench()
			return nil
		},
	}
}

// evenSplitLoopBench is spec.md 8 scenario 1: a 100-element array written
// by a loop task evenly partitioned over 4 threads.
func evenSplitLoopBench() {
	sts.Startup(4)
	defer sts.Shutdown()

	sched := sts.CreateSchedule("bench-even-split")
	defer sts.DeleteSchedule("bench-even-split")

	threadIDs := []int{0, 1, 2, 3}
	ranges := make([]sts.Range, 4)
	for i := range ranges {
		ranges[i] = sts.Range{Start: ratio(i, 4), End: ratio(i+1, 4)}
	}
	sched.AssignLoopVector("L", threadIDs, ranges)

	a := make([]int, 101)
	w := sts.CallerWorker()

	start := time.Now()
	sched.NextStep()
	sched.ParallelFor(w, "L", 0, 100, func(_ *sts.Worker, i int64) {
		a[i] = 1
	})
	sched.Wait(w)
	elapsed := time.Since(start)

	fmt.Printf("even-split loop: 100 iterations across 4 threads in %s\n", elapsed)
}

// reductionBench is spec.md 8 scenario 3: collect(1) once per iteration
// over 30 iterations on 10 threads, repeated over two steps.
func reductionBench() {
	sts.Startup(10)
	defer sts.Shutdown()

	sched := sts.CreateSchedule("bench-reduction")
	defer sts.DeleteSchedule("bench-reduction")

	threadIDs := make([]int, 10)
	ranges := make([]sts.Range, 10)
	for i := range threadIDs {
		threadIDs[i] = i
		ranges[i] = sts.Range{Start: ratio(i, 10), End: ratio(i+1, 10)}
	}
	sched.AssignLoopVector("R", threadIDs, ranges)

	w := sts.CallerWorker()
	var red *reduce.TaskReduction[int64]
	for step := 0; step < 2; step++ {
		sched.NextStep()
		red = sts.CreateTaskReduction[int64](sched, "R", 0)
		sts.ParallelForReduce(sched, w, "R", 0, 30, func(w *sts.Worker, i int64) {
			sts.Collect[int64](sched, w, 1)
		}, red)
		sched.Wait(w)
		fmt.Printf("reduction step %d result: %d\n", step, red.Result())
	}
}
