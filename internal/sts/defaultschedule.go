package sts

import "sts/internal/stsrange"

// setupDefaultSchedule builds the process-wide default schedule (spec.md
// 4.10): a single loop task named "default" with one subtask per worker
// thread, each owning an even [i/n, (i+1)/n) slice, so a bare ParallelFor
// call made with no schedule set up still fans out across every thread.
func setupDefaultSchedule(s *Scheduler, n int) {
	threadIDs := make([]int, n)
	ranges := make([]Range, n)
	for i := 0; i < n; i++ {
		threadIDs[i] = i
		ranges[i] = Range{
			Start: stsrange.NewRatio(int64(i), int64(n)),
			End:   stsrange.NewRatio(int64(i+1), int64(n)),
		}
	}
	s.AssignLoopVector("default", threadIDs, ranges)
}
