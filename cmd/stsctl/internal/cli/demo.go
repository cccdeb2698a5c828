package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sts/internal/sts"
)

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a named demonstration scenario",
	}
	cmd.AddCommand(newDemoCoroutineCmd())
	return cmd
}

func newDemoCoroutineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "coroutine",
		Short: "Interleave two coroutine tasks on one thread and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(runCoroutineDemo())
			return nil
		},
	}
}

// runCoroutineDemo is spec.md 8 scenario 5: two coroutine tasks F and G
// assigned to thread 0, each other's successor, each printing one
// character per resumption until its string is exhausted. F always
// resumes first and G can never find a target back to F (F sits earlier
// in the queue), so the scheduler riffles F0,G0,F1,G1,... until the
// shorter side is exhausted, then drains F's remaining characters
// back-to-back. left/right are ordered so that riffle produces "Hello
// World" under that exact alternation, not a plain concatenation of the
// two strings.
func runCoroutineDemo() string {
	const left = "HloWrd"
	const right = "el ol"

	sts.Startup(1)
	defer sts.Shutdown()

	sched := sts.CreateSchedule("demo-coroutine")
	defer sts.DeleteSchedule("demo-coroutine")

	sched.AssignRun("F", 0)
	sched.AssignRun("G", 0)
	sched.SetCoroutine("F", "G")
	sched.SetCoroutine("G", "F")

	out := make([]byte, 0, len(left)+len(right))
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

	return string(out)
}
