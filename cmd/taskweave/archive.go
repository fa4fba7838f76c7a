package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/taskweave/taskweave/internal/config"
	"github.com/taskweave/taskweave/internal/flow"
	"github.com/taskweave/taskweave/internal/store"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <task-id>",
	Short: "Archive a task",
	Long: `Archive a task from any state. Archived tasks keep their full
revision history but are excluded from runs.`,
	Args: cobra.ExactArgs(1),
	RunE: runArchive,
}

func runArchive(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// Archiving needs no providers or retrieval.
	engine := flow.New(flow.Config{Repo: store.NewTaskStore(db)})

	task, err := engine.Archive(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s Archived task %s (%s)\n", color.GreenString("✓"), task.ID, task.Title)
	return nil
}
