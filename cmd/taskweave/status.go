package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/taskweave/taskweave/internal/config"
	"github.com/taskweave/taskweave/internal/store"
	"github.com/taskweave/taskweave/pkg/models"
)

var (
	statusFilter    string
	statusRevisions bool
)

var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Show task state",
	Long: `Display the state of tasks.

Without arguments, lists tasks grouped by status. With a task ID, shows the
full detail for that task including enhancements, comprehension tests,
subtasks, and the revision history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFilter, "status", "", "Only list tasks in this status")
	statusCmd.Flags().BoolVar(&statusRevisions, "revisions", false, "Include revision history in task detail")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dbPath := resolveDBPath(cfg)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No tasks yet. Run 'taskweave add <title>' to create one.")
		return nil
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	tasks := store.NewTaskStore(db)

	if len(args) == 1 {
		return displayTask(tasks, args[0])
	}
	return displayTaskList(tasks)
}

func displayTaskList(tasks *store.TaskStore) error {
	filter := store.TaskFilter{}
	if statusFilter != "" {
		status := models.TaskStatus(statusFilter)
		if !status.Valid() {
			return fmt.Errorf("unknown status %q", statusFilter)
		}
		filter.Status = status
	}

	all, err := tasks.FindByFilter(filter)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(all) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}

	byStatus := make(map[models.TaskStatus][]*models.Task)
	for _, t := range all {
		byStatus[t.Status] = append(byStatus[t.Status], t)
	}

	order := []models.TaskStatus{
		models.TaskStatusInProgress,
		models.TaskStatusPendingEnhancement,
		models.TaskStatusPendingDecomposition,
		models.TaskStatusPendingComprehensionTest,
		models.TaskStatusTodo,
		models.TaskStatusErrored,
		models.TaskStatusDecomposed,
		models.TaskStatusOrchestrationComplete,
		models.TaskStatusCompleted,
		models.TaskStatusArchived,
	}

	for _, status := range order {
		group := byStatus[status]
		if len(group) == 0 {
			continue
		}
		fmt.Printf("%s (%d)\n", statusColor(status)(string(status)), len(group))
		for _, t := range group {
			complexity := "-"
			if t.Complexity != nil {
				complexity = fmt.Sprintf("%d", *t.Complexity)
			}
			fmt.Printf("  %s  [%s]  %s\n", t.ID, complexity, t.Title)
		}
	}
	return nil
}

func displayTask(tasks *store.TaskStore, id string) error {
	task, err := tasks.FindByID(id)
	if err != nil {
		return fmt.Errorf("find task: %w", err)
	}
	if task == nil {
		return fmt.Errorf("task %q not found", id)
	}

	fmt.Printf("Task %s\n", task.ID)
	fmt.Printf("  Title: %s\n", task.Title)
	fmt.Printf("  Status: %s\n", statusColor(task.Status)(string(task.Status)))
	if task.Complexity != nil {
		fmt.Printf("  Complexity: %d\n", *task.Complexity)
	}
	if task.Description != "" {
		fmt.Printf("  Description: %s\n", excerpt(task.Description, 300))
	}
	if task.Assignee != "" {
		fmt.Printf("  Assignee: %s\n", task.Assignee)
	}
	if task.DueDate != nil {
		fmt.Printf("  Due: %s\n", task.DueDate.Format("2006-01-02"))
	}
	if task.ParentTaskID != "" {
		fmt.Printf("  Parent: %s\n", task.ParentTaskID)
	}
	if task.SourcePRDID != "" {
		fmt.Printf("  Source PRD: %s\n", task.SourcePRDID)
	}
	fmt.Printf("  Updated: %s\n", task.UpdatedAt.Format(time.RFC3339))

	if len(task.Enhancements) > 0 {
		fmt.Println("\nEnhancements:")
		for i, e := range task.Enhancements {
			fmt.Printf("  %d. %s\n", i+1, excerpt(e.EnhancedDescription, 200))
			if e.Reasoning != "" {
				fmt.Printf("     Reasoning: %s\n", excerpt(e.Reasoning, 150))
			}
		}
	}

	if len(task.ComprehensionTests) > 0 {
		fmt.Println("\nComprehension Tests:")
		for i, ct := range task.ComprehensionTests {
			fmt.Printf("  %d. [%s] %s\n", i+1, ct.TestType, ct.Question)
			if ct.Passed != nil {
				fmt.Printf("     Passed: %t\n", *ct.Passed)
			}
		}
	}

	if len(task.SubtaskIDs) > 0 {
		fmt.Println("\nSubtasks:")
		for _, childID := range task.SubtaskIDs {
			child, err := tasks.FindByID(childID)
			if err != nil || child == nil {
				fmt.Printf("  %s (missing)\n", childID)
				continue
			}
			fmt.Printf("  %s  [%s]  %s\n", child.ID, child.Status, child.Title)
		}
	}

	if statusRevisions && len(task.Revisions) > 0 {
		fmt.Println("\nRevisions:")
		for _, rev := range task.Revisions {
			fmt.Printf("  %s  %s -> %s  %s\n",
				rev.CreatedAt.Format(time.RFC3339), rev.OldStatus, rev.NewStatus, rev.Note)
		}
	}
	return nil
}

func statusColor(status models.TaskStatus) func(format string, a ...interface{}) string {
	switch status {
	case models.TaskStatusErrored:
		return color.RedString
	case models.TaskStatusOrchestrationComplete, models.TaskStatusCompleted, models.TaskStatusDecomposed:
		return color.GreenString
	case models.TaskStatusTodo, models.TaskStatusArchived:
		return color.WhiteString
	default:
		return color.YellowString
	}
}
