package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sts/internal/sts"
	"sts/internal/stsconfig"
)

func newRunCmd() *cobra.Command {
	var steps int
	var threads int

	cmd := &cobra.Command{
		Use:   "run [schedule.yaml]",
		Short: "Load a schedule (or use the built-in default) and run N synthetic steps",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			cfg, err := stsconfig.Load(path)
			if err != nil {
				return fmt.Errorf("load schedule: %w", err)
			}
			if threads > 0 {
				cfg.Threads = threads
			}

			sts.Startup(cfg.Threads)
			defer sts.Shutdown()

			sched, err := stsconfig.Build(cfg)
			if err != nil {
				return fmt.Errorf("build schedule: %w", err)
			}
			defer sts.DeleteSchedule(cfg.Name)

			w := sts.CallerWorker()
			for i := 0; i < steps; i++ {
				sched.NextStep()
				for _, tc := range cfg.Tasks {
					if tc.Kind == "loop" {
						sched.SkipLoop(tc.Label)
					} else {
						sched.SkipRun(tc.Label)
					}
				}
				sched.Wait(w)
			}

			sched.PrintAssignments()
			sched.PrintSubTaskTimes()
			fmt.Printf("ran %d steps of schedule %q on %d threads\n", steps, cfg.Name, cfg.Threads)
			return nil
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 1, "Number of steps to run")
	cmd.Flags().IntVar(&threads, "threads", 0, "Override the schedule file's thread count")

	return cmd
}
