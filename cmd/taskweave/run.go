package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/taskweave/taskweave/internal/config"
	"github.com/taskweave/taskweave/internal/store"
	"github.com/taskweave/taskweave/pkg/models"
)

var (
	runAll     bool
	runProject string
)

var runCmd = &cobra.Command{
	Use:   "run [task-id...]",
	Short: "Run the orchestration flow for tasks",
	Long: `Run the orchestration flow for one or more tasks.

Each task is scored for complexity and routed: simple tasks get an enhanced
description and a comprehension test, complex tasks are decomposed into
subtasks. Context retrieved from ingested artifacts grounds both prompts.

Tasks run concurrently up to flow.max_concurrent_tasks. Rerunning a task in
a terminal state is a no-op; rerunning an errored task resumes at the step
that failed.

With --all, runs every task currently in the todo or errored state.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runAll, "all", false, "Run all todo and errored tasks")
	runCmd.Flags().StringVar(&runProject, "project", "default", "Project scope for context retrieval")
}

func runRun(cmd *cobra.Command, args []string) error {
	if !runAll && len(args) == 0 {
		return fmt.Errorf("provide task IDs or --all")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	engine := buildEngine(cfg, db, registry, runProject)

	taskIDs := args
	if runAll {
		taskIDs, err = collectRunnable(store.NewTaskStore(db))
		if err != nil {
			return err
		}
		if len(taskIDs) == 0 {
			fmt.Println("Nothing to run.")
			return nil
		}
	}

	// Stop cleanly on Ctrl-C; committed transitions survive, flows resume
	// on the next run.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := engine.RunMany(ctx, taskIDs)

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Printf("%s %s: %v\n", color.RedString("✗"), res.TaskID, res.Err)
			continue
		}
		fmt.Printf("%s %s: %s%s\n", color.GreenString("✓"), res.TaskID, res.Task.Status, runSummary(res.Task))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d tasks failed", failed, len(results))
	}
	return nil
}

// collectRunnable returns the IDs of all todo and errored tasks.
func collectRunnable(tasks *store.TaskStore) ([]string, error) {
	var ids []string
	for _, status := range []models.TaskStatus{models.TaskStatusTodo, models.TaskStatusErrored} {
		found, err := tasks.FindByFilter(store.TaskFilter{Status: status})
		if err != nil {
			return nil, fmt.Errorf("list %s tasks: %w", status, err)
		}
		for _, t := range found {
			ids = append(ids, t.ID)
		}
	}
	return ids, nil
}

func runSummary(task *models.Task) string {
	switch task.Status {
	case models.TaskStatusDecomposed:
		return fmt.Sprintf(" (%d subtasks)", len(task.SubtaskIDs))
	case models.TaskStatusOrchestrationComplete:
		return fmt.Sprintf(" (%d enhancements, %d tests)", len(task.Enhancements), len(task.ComprehensionTests))
	default:
		return ""
	}
}
