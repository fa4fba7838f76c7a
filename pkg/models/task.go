// Package models defines the shared domain types for taskweave.
package models

import "time"

// TaskStatus represents the current state of a task in the orchestration flow.
type TaskStatus string

const (
	// TaskStatusTodo indicates the task has not started.
	TaskStatusTodo TaskStatus = "todo"
	// TaskStatusInProgress indicates the flow has picked up the task.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusPendingEnhancement indicates the task is waiting for an enhancement pass.
	TaskStatusPendingEnhancement TaskStatus = "pending_enhancement"
	// TaskStatusPendingComprehensionTest indicates the task is waiting for a comprehension test.
	TaskStatusPendingComprehensionTest TaskStatus = "pending_comprehension_test"
	// TaskStatusPendingDecomposition indicates the task is waiting to be decomposed.
	TaskStatusPendingDecomposition TaskStatus = "pending_decomposition"
	// TaskStatusDecomposed indicates the task was split into subtasks.
	TaskStatusDecomposed TaskStatus = "decomposed"
	// TaskStatusOrchestrationComplete indicates the automated flow finished.
	TaskStatusOrchestrationComplete TaskStatus = "orchestration_complete"
	// TaskStatusCompleted indicates the task was completed by its assignee.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusArchived indicates the task was archived by an external action.
	TaskStatusArchived TaskStatus = "archived"
	// TaskStatusErrored indicates the flow gave up after provider exhaustion.
	TaskStatusErrored TaskStatus = "errored"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusPendingEnhancement,
		TaskStatusPendingComprehensionTest, TaskStatusPendingDecomposition,
		TaskStatusDecomposed, TaskStatusOrchestrationComplete,
		TaskStatusCompleted, TaskStatusArchived, TaskStatusErrored:
		return true
	default:
		return false
	}
}

// Terminal returns true if the automated flow never advances past this status.
// Errored is terminal for the flow but remains manually retriable.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusDecomposed, TaskStatusOrchestrationComplete,
		TaskStatusCompleted, TaskStatusArchived, TaskStatusErrored:
		return true
	default:
		return false
	}
}

// Task represents a unit of work routed through the orchestration flow.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Complexity is the 0-10 score assigned by the router, nil before scoring.
	Complexity *int `json:"complexity,omitempty"`
	// Assignee is who the task is assigned to.
	Assignee string `json:"assignee,omitempty"`
	// DueDate is when the task is due, if set.
	DueDate *time.Time `json:"due_date,omitempty"`
	// ParentTaskID references the task this was decomposed from, if any.
	// It is a weak back-reference: lookup only, never traversed for ownership.
	ParentTaskID string `json:"parent_task_id,omitempty"`
	// SubtaskIDs lists the children created by decomposition, in creation order.
	SubtaskIDs []string `json:"subtask_ids,omitempty"`
	// SourcePRDID references the PRD this task was parsed from, if any.
	SourcePRDID string `json:"source_prd_id,omitempty"`
	// Enhancements holds the LLM enhancement passes, append-only.
	Enhancements []Enhancement `json:"enhancements,omitempty"`
	// ComprehensionTests holds the generated tests, append-only.
	ComprehensionTests []ComprehensionTest `json:"comprehension_tests,omitempty"`
	// Revisions is the append-only audit log of state transitions.
	Revisions []Revision `json:"revisions,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the task was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// Revision records one entry in a task's audit log: a state transition,
// a failed dispatch attempt, or the reason a task errored.
type Revision struct {
	// OldStatus is the status before the transition.
	OldStatus TaskStatus `json:"old_status"`
	// NewStatus is the status after the transition.
	NewStatus TaskStatus `json:"new_status"`
	// Note carries a human-readable reason, empty for plain transitions.
	Note string `json:"note,omitempty"`
	// CreatedAt is when the revision was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// AddRevision appends an audit entry and bumps UpdatedAt.
func (t *Task) AddRevision(old, new TaskStatus, note string) {
	now := time.Now().UTC()
	t.Revisions = append(t.Revisions, Revision{
		OldStatus: old,
		NewStatus: new,
		Note:      note,
		CreatedAt: now,
	})
	t.UpdatedAt = now
}
