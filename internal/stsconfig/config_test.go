package stsconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sts/internal/sts"
	"sts/internal/stsconfig"
)

func TestLoadMissingPathReturnsDefault(t *testing.T) {
	cfg, err := stsconfig.Load("")
	require.NoError(t, err)
	assert.Equal(t, "config", cfg.Name)
	assert.Equal(t, 1, cfg.Threads)
	require.Len(t, cfg.Tasks, 1)
	assert.Equal(t, "default", cfg.Tasks[0].Label)
}

func TestLoadParsesYAMLAndClampsThreads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sched.yaml")
	data := []byte(`
name: two-thread
threads: -3
tasks:
  - label: A
    kind: run
    assignments:
      - thread: 0
  - label: L
    kind: loop
    assignments:
      - thread: 0
        start: {num: 0, den: 2}
        end: {num: 1, den: 2}
      - thread: 1
        start: {num: 1, den: 2}
        end: {num: 2, den: 2}
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := stsconfig.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "two-thread", cfg.Name)
	assert.Equal(t, 1, cfg.Threads) // negative thread count clamped to 1
	require.Len(t, cfg.Tasks, 2)
	assert.Equal(t, "A", cfg.Tasks[0].Label)
	assert.Equal(t, "loop", cfg.Tasks[1].Kind)
	require.Len(t, cfg.Tasks[1].Assignments, 2)
}

func TestBuildRejectsUnknownKind(t *testing.T) {
	sts.Startup(1)
	defer sts.Shutdown()

	cfg := stsconfig.ScheduleConfig{
		Name:    "bad",
		Threads: 1,
		Tasks: []stsconfig.TaskConfig{
			{
				Label:       "X",
				Kind:        "parallel-ish",
				Assignments: []stsconfig.AssignmentConfig{{Thread: 0}},
			},
		},
	}
	_, err := stsconfig.Build(cfg)
	assert.Error(t, err)
}

func TestBuildRejectsTaskWithNoAssignments(t *testing.T) {
	sts.Startup(1)
	defer sts.Shutdown()

	cfg := stsconfig.ScheduleConfig{
		Name:    "empty",
		Threads: 1,
		Tasks: []stsconfig.TaskConfig{
			{Label: "X", Kind: "run"},
		},
	}
	_, err := stsconfig.Build(cfg)
	assert.Error(t, err)
}

func TestBuildCreatesRunnableSchedule(t *testing.T) {
	sts.Startup(1)
	defer sts.Shutdown()

	cfg, err := stsconfig.Load("")
	require.NoError(t, err)

	sched, err := stsconfig.Build(cfg)
	require.NoError(t, err)
	defer sts.DeleteSchedule(cfg.Name)

	w := sts.CallerWorker()
	ran := false
	sched.NextStep()
	sched.Run(w, "default", func(_ *sts.Worker) { ran = true })
	sched.Wait(w)
	assert.True(t, ran)
}
