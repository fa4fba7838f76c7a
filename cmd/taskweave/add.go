package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taskweave/taskweave/internal/config"
	"github.com/taskweave/taskweave/internal/router"
	"github.com/taskweave/taskweave/internal/store"
	"github.com/taskweave/taskweave/pkg/models"
)

var (
	addDescription string
	addAssignee    string
	addDueDate     string
	addParent      string
	addPRD         string
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task",
	Long: `Add a task in the todo state. The task is scored for complexity
immediately so you can see how it would route, but the flow does not start
until 'taskweave run'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "Task description")
	addCmd.Flags().StringVar(&addAssignee, "assignee", "", "Assignee name")
	addCmd.Flags().StringVar(&addDueDate, "due", "", "Due date (YYYY-MM-DD)")
	addCmd.Flags().StringVar(&addParent, "parent", "", "Parent task ID")
	addCmd.Flags().StringVar(&addPRD, "prd", "", "Source PRD identifier")
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	tasks := store.NewTaskStore(db)

	if addParent != "" {
		parent, err := tasks.FindByID(addParent)
		if err != nil {
			return fmt.Errorf("find parent task: %w", err)
		}
		if parent == nil {
			return fmt.Errorf("parent task %q not found", addParent)
		}
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:           uuid.New().String(),
		Title:        strings.Join(args, " "),
		Description:  addDescription,
		Status:       models.TaskStatusTodo,
		Assignee:     addAssignee,
		ParentTaskID: addParent,
		SourcePRDID:  addPRD,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if addDueDate != "" {
		due, err := time.Parse("2006-01-02", addDueDate)
		if err != nil {
			return fmt.Errorf("invalid due date %q (want YYYY-MM-DD): %w", addDueDate, err)
		}
		task.DueDate = &due
	}

	score := router.Score(task)
	task.Complexity = &score

	if err := tasks.Save(task); err != nil {
		return fmt.Errorf("save task: %w", err)
	}

	fmt.Printf("%s Added task %s\n", color.GreenString("✓"), task.ID)
	fmt.Printf("  Title: %s\n", task.Title)
	fmt.Printf("  Complexity: %d (threshold %d, would %s)\n",
		score, cfg.Router.Threshold, routeWord(score, cfg.Router.Threshold))
	return nil
}

func routeWord(score, threshold int) string {
	if router.Route(score, threshold) == router.DecisionDecompose {
		return "decompose"
	}
	return "enhance"
}

// exitErr prints an error to stderr and exits. Used by commands that need to
// fail outside the cobra RunE path.
func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
