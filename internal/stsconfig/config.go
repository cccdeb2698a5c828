// Package stsconfig loads a declarative schedule description from YAML, so
// an application can describe a fixed multi-thread schedule as data instead
// of a sequence of assign_run/assign_loop calls in source.
package stsconfig

import (
	"fmt"
	"os"

	yaml "github.com/goccy/go-yaml"

	"sts/internal/sts"
	"sts/internal/stsrange"
)

// RatioConfig is a [0,1]-relative boundary expressed as an exact fraction,
// so a YAML schedule file can describe subtask ranges without the
// precision loss stsrange.Ratio is built to avoid.
type RatioConfig struct {
	Num int64 `yaml:"num"`
	Den int64 `yaml:"den"`
}

func (r RatioConfig) ratio() stsrange.Ratio {
	if r.Den == 0 {
		r.Den = 1
	}
	return stsrange.NewRatio(r.Num, r.Den)
}

// AssignmentConfig is one thread's slice of a task: Start/End describe a
// loop task's [0,1] range and are ignored for a "run" kind task, which
// always occupies the task's whole functor slot.
type AssignmentConfig struct {
	Thread int         `yaml:"thread"`
	Start  RatioConfig `yaml:"start"`
	End    RatioConfig `yaml:"end"`
}

// TaskConfig describes one Task and every thread assigned to it.
type TaskConfig struct {
	Label         string             `yaml:"label"`
	Kind          string             `yaml:"kind"` // "run" or "loop"
	Assignments   []AssignmentConfig `yaml:"assignments"`
	Coroutine     bool               `yaml:"coroutine"`
	Continuations []string           `yaml:"continuations"`
	HighPriority  bool               `yaml:"high_priority"`
	AutoBalance   bool               `yaml:"auto_balance"`
}

// ScheduleConfig is the top-level document: a thread count and the ordered
// list of tasks to assign, matching spec.md 4.9's assign_* surface.
type ScheduleConfig struct {
	Name    string       `yaml:"name"`
	Threads int          `yaml:"threads"`
	Tasks   []TaskConfig `yaml:"tasks"`
}

// defaultConfig is used whenever Load is given an empty path or an
// unreadable file, matching the teacher pack's Load-with-defaults
// convention: a caller with no schedule file still gets a schedule that
// runs.
func defaultConfig() ScheduleConfig {
	return ScheduleConfig{
		Name:    "config",
		Threads: 1,
		Tasks: []TaskConfig{
			{
				Label: "default",
				Kind:  "loop",
				Assignments: []AssignmentConfig{
					{Thread: 0, Start: RatioConfig{0, 1}, End: RatioConfig{1, 1}},
				},
			},
		},
	}
}

// Load reads and parses path as YAML, returning defaultConfig() if path is
// empty or the file cannot be read. Malformed YAML for an existing,
// readable file is reported as an error rather than silently ignored,
// since that almost always indicates a typo the caller should see.
func Load(path string) (ScheduleConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ScheduleConfig{}, fmt.Errorf("stsconfig: parse %s: %w", path, err)
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 1
	}
	if cfg.Name == "" {
		cfg.Name = "config"
	}
	return cfg, nil
}

// Build registers a new named schedule from cfg and wires every
// assign_run/assign_loop call cfg describes, returning the ready-to-run
// *sts.Scheduler.
func Build(cfg ScheduleConfig) (*sts.Scheduler, error) {
	s := sts.CreateSchedule(cfg.Name)
	for _, tc := range cfg.Tasks {
		if len(tc.Assignments) == 0 {
			return nil, fmt.Errorf("stsconfig: task %q has no assignments", tc.Label)
		}
		switch tc.Kind {
		case "", "run":
			for _, a := range tc.Assignments {
				s.AssignRun(tc.Label, a.Thread)
			}
		case "loop":
			threadIDs := make([]int, len(tc.Assignments))
			ranges := make([]sts.Range, len(tc.Assignments))
			for i, a := range tc.Assignments {
				threadIDs[i] = a.Thread
				ranges[i] = sts.Range{Start: a.Start.ratio(), End: a.End.ratio()}
			}
			s.AssignLoopVector(tc.Label, threadIDs, ranges)
		default:
			return nil, fmt.Errorf("stsconfig: task %q: unknown kind %q", tc.Label, tc.Kind)
		}
		if tc.Coroutine {
			s.SetCoroutine(tc.Label, tc.Continuations...)
		}
		if tc.HighPriority {
			s.SetHighPriority(tc.Label, true)
		}
		if tc.AutoBalance {
			s.EnableTaskAutoBalancing(tc.Label, true)
		}
	}
	return s, nil
}
