package models

import (
	"testing"
	"time"
)

func TestTaskStatusValid(t *testing.T) {
	valid := []TaskStatus{
		TaskStatusTodo, TaskStatusInProgress, TaskStatusPendingEnhancement,
		TaskStatusPendingComprehensionTest, TaskStatusPendingDecomposition,
		TaskStatusDecomposed, TaskStatusOrchestrationComplete,
		TaskStatusCompleted, TaskStatusArchived, TaskStatusErrored,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("status %q should be valid", s)
		}
	}

	invalid := []TaskStatus{"", "pending", "done", "TODO"}
	for _, s := range invalid {
		if s.Valid() {
			t.Errorf("status %q should be invalid", s)
		}
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	terminal := []TaskStatus{
		TaskStatusDecomposed, TaskStatusOrchestrationComplete,
		TaskStatusCompleted, TaskStatusArchived, TaskStatusErrored,
	}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("status %q should be terminal", s)
		}
	}

	active := []TaskStatus{
		TaskStatusTodo, TaskStatusInProgress, TaskStatusPendingEnhancement,
		TaskStatusPendingComprehensionTest, TaskStatusPendingDecomposition,
	}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("status %q should not be terminal", s)
		}
	}
}

func TestAddRevision(t *testing.T) {
	task := &Task{ID: "t1", Status: TaskStatusTodo, CreatedAt: time.Now()}

	task.AddRevision(TaskStatusTodo, TaskStatusInProgress, "")
	task.AddRevision(TaskStatusInProgress, TaskStatusErrored, "provider exhausted")

	if len(task.Revisions) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(task.Revisions))
	}
	if task.Revisions[0].NewStatus != TaskStatusInProgress {
		t.Errorf("revision 0 new status = %q, want %q", task.Revisions[0].NewStatus, TaskStatusInProgress)
	}
	if task.Revisions[1].Note != "provider exhausted" {
		t.Errorf("revision 1 note = %q, want error reason", task.Revisions[1].Note)
	}
	if task.UpdatedAt.IsZero() {
		t.Error("AddRevision should set UpdatedAt")
	}
}

func TestTestTypeValid(t *testing.T) {
	for _, tt := range []TestType{TestTypeShortAnswer, TestTypeMultipleChoice, TestTypeTrueFalse} {
		if !tt.Valid() {
			t.Errorf("test type %q should be valid", tt)
		}
	}
	if TestType("essay").Valid() {
		t.Error("unknown test type should be invalid")
	}
}

func TestSourceTypeValid(t *testing.T) {
	for _, st := range []SourceType{SourcePRD, SourceFile, SourceWebResearch, SourceUserInput} {
		if !st.Valid() {
			t.Errorf("source type %q should be valid", st)
		}
	}
	if SourceType("email").Valid() {
		t.Error("unknown source type should be invalid")
	}
}
