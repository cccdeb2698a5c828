package runner

import "runtime"

// lockRunnerThread pins the calling goroutine to its own OS thread when core
// is non-negative. Go offers no portable way to pin an OS thread to a
// specific CPU core the way pthread_setaffinity_np does in
// original_source/sts/lambdaRunner.h, so this is the best-effort analog:
// giving the runner an OS thread of its own that the Go scheduler will not
// move other goroutines onto, which is the property lrPool's callers
// actually depend on (a coroutine that pauses mid-computation keeps making
// forward progress on a dedicated thread rather than fighting the rest of
// the pool for it).
func lockRunnerThread(core int) {
	if core < 0 {
		return
	}
	runtime.LockOSThread()
}
