package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskweave",
	Short: "Task orchestration with retrieval-augmented context",
	Long: `Taskweave routes tasks by complexity, enhances simple tasks with
LLM-generated detail, decomposes complex tasks into subtasks, and grounds
both in context retrieved from previously ingested project artifacts.

Core capabilities:
- Scores task complexity deterministically and routes accordingly
- Enhances task descriptions and generates comprehension tests
- Decomposes complex tasks into 3-5 actionable subtasks
- Ingests PRDs, files, and research into an embedded artifact store
- Retrieves relevant context by embedding similarity
- Falls back to a secondary provider when the primary fails`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(retrieveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
