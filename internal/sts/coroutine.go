package sts

import (
	"time"

	"sts/internal/runner"
)

// runCoroutineStep implements the coroutine branch of SubTask::run
// (spec.md 4.7 item 2): attach a runner on first entry and wait for its
// first pause; on later entries, continue the existing runner and wait
// again. Returns true once the callable has actually finished (not merely
// paused).
func (s *SubTask) runCoroutineStep(pool *runner.Pool, w *Worker) bool {
	s.runnerMu.Lock()
	lr := s.lr
	s.runnerMu.Unlock()

	if lr == nil {
		s.times.WaitStart = time.Now()
		lr = s.task.GetRunner(pool, w, s, &s.times)
		s.runnerMu.Lock()
		s.lr = lr
		s.runnerMu.Unlock()
		lr.Wait()
	} else {
		lr.Cont()
		lr.Wait()
	}

	if lr.IsFinished() {
		pool.Release(lr)
		s.runnerMu.Lock()
		s.lr = nil
		s.runnerMu.Unlock()
		s.setDone(true)
		return true
	}
	return false
}
