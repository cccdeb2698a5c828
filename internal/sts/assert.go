// Package sts is the scheduler's programmatic core: tasks, subtasks,
// workers, and the schedule that ties them together.
package sts

import (
	"fmt"

	"sts/internal/stslog"
)

// assertf checks an invariant the original C++ implementation enforced with
// a bare assert() (see original_source/sts/task.h, lrPool.h, lambdaRunner.h,
// sts.h): a violation means the caller misused the API, not a recoverable
// runtime condition, so it logs the failure and panics rather than
// returning an error a caller might ignore.
func assertf(cond bool, format string, args ...any) {
	if cond {
		return
	}
	msg := fmt.Sprintf(format, args...)
	logger := stslog.Named("assert")
	logger.Error().Msg(msg)
	panic("sts: assertion failed: " + msg)
}
