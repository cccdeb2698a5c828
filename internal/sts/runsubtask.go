package sts

import "sync/atomic"

// runSubTask is the nested execution driver named runSubTask in spec.md
// 4.9: wait for the subtask's resume checkpoint, run it, and — while it
// isn't done and a pause target is available on the same thread — descend
// into that target before looping back. Once the subtask itself is done,
// keep draining any pause targets that are still pending.
func (s *Scheduler) runSubTask(w *Worker, idx int) {
	st := w.queue[idx]
	st.waitForCheckPoint()

	w.pushStack(idx)
	for !st.IsDone() {
		s.runOnce(w, st)
		if st.IsDone() {
			break
		}
		target, ok := s.findPauseTarget(w, idx)
		if !ok {
			// Nothing else on this thread is ready to take over; resuming
			// st again right now would just spin it through its remaining
			// pauses with nobody else getting a turn, so hand control back
			// to whichever frame called into st (the post-loop drain below,
			// or a sibling's own descent) instead of looping here.
			break
		}
		s.runSubTask(w, target)
	}
	w.popStack()

	if idx > 0 {
		w.queue[idx-1].times.NextRunAvail = st.task.FunctorSetTime()
	}

	for {
		target, ok := s.findPauseTarget(w, idx)
		if !ok {
			break
		}
		s.runSubTask(w, target)
	}
}

// runOnce runs st exactly once: directly if it is not a coroutine subtask
// on this thread, or one pause/continue cycle of its lambda runner
// otherwise.
func (s *Scheduler) runOnce(w *Worker, st *SubTask) {
	if !st.task.IsCoroutine() {
		st.RunToCompletion(w)
		return
	}
	st.runCoroutineStep(rt.pool, w)
}

// findPauseTarget walks the subtasks strictly after idx on the caller's
// queue looking for the first whose task label is a successor of idx's
// task, that is not done, has reached its resume checkpoint, and whose
// task's begin-barrier is open, matching spec.md 4.9's findPauseTarget.
func (s *Scheduler) findPauseTarget(w *Worker, idx int) (int, bool) {
	cur := w.queue[idx]
	successors := cur.task.NextTasks()
	if len(successors) == 0 {
		return 0, false
	}
	for j := idx + 1; j < len(w.queue); j++ {
		cand := w.queue[j]
		if !successors[cand.task.label] {
			continue
		}
		if cand.IsDone() {
			continue
		}
		if cand.task.checkpoint.Load() < cand.resumeCheckpoint.Load() {
			continue
		}
		if !cand.task.begin.IsOpen() {
			continue
		}
		return j, true
	}
	return 0, false
}

// Pause is the coroutine suspension entry point, called from inside a
// coroutine task's own body (spec.md 4.9): a cheap fast-path exit when
// nothing has changed since the step began (no functor published and no
// checkpoint set, see markStateChange) and cp is 0, then an actual suspend via the
// current subtask's lambda runner — handing control back to whichever
// frame is driving this subtask (runSubTask's descent, or its post-loop
// drain), so a sibling with a later queue position gets a turn. The
// returned bool only reports whether a pause target was observed to exist
// (or the task's own checkpoint had not yet caught up to cp) at the moment
// of suspension; it does not gate whether suspension itself happens —
// otherwise a coroutine with no later sibling to hand off to (the last one
// in queue order) would run straight through every remaining pause call
// instead of yielding its turn back up the call stack each time.
func (s *Scheduler) Pause(w *Worker, cp int64) bool {
	if atomic.LoadInt64(&w.progressed) == 0 && cp == 0 {
		return false
	}
	idx, ok := w.currentSubtaskIdx()
	if !ok {
		return false
	}
	st := w.queue[idx]
	if !st.task.IsCoroutine() {
		return false
	}
	_, hasTarget := s.findPauseTarget(w, idx)
	worthwhile := hasTarget || st.task.checkpoint.Load() < cp
	st.pause(cp)
	return worthwhile
}

// Yield is the lighter-weight variant used by non-coroutine tasks: if the
// caller's next not-yet-finished queued subtask belongs to a high-priority
// task that is ready, run it immediately, per spec.md 4.9.
func (s *Scheduler) Yield(w *Worker) {
	for j := w.nextSubtaskIdx; j < len(w.queue); j++ {
		st := w.queue[j]
		if st.IsDone() {
			continue
		}
		if st.task.HighPriority() && st.task.IsReady() {
			st.RunToCompletion(w)
		}
		return
	}
}

// processQueue drains every not-yet-done subtask in w's queue in order,
// the body of Worker::processQueue in the original.
func (s *Scheduler) processQueue(w *Worker) {
	for w.nextSubtaskIdx < len(w.queue) {
		idx := w.nextSubtaskIdx
		w.nextSubtaskIdx++
		if w.queue[idx].IsDone() {
			continue
		}
		s.runSubTask(w, idx)
	}
}
