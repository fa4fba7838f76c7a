package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/taskweave/taskweave/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestTaskStoreRoundTrip(t *testing.T) {
	store := NewTaskStore(openTestDB(t))

	complexity := 8
	due := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	task := &models.Task{
		ID:           "task-1",
		Title:        "Build ingestion pipeline",
		Description:  "Chunk and embed PRD content",
		Status:       models.TaskStatusPendingDecomposition,
		Complexity:   &complexity,
		Assignee:     "dana",
		DueDate:      &due,
		ParentTaskID: "task-0",
		SubtaskIDs:   []string{"c1", "c2"},
		SourcePRDID:  "prd-9",
		Enhancements: []models.Enhancement{
			{EnhancedDescription: "expanded", Reasoning: "added context", CreatedAt: time.Now().UTC()},
		},
		ComprehensionTests: []models.ComprehensionTest{
			{Question: "What store is used?", TestType: models.TestTypeShortAnswer, Difficulty: "easy", CreatedAt: time.Now().UTC()},
		},
		Revisions: []models.Revision{
			{OldStatus: models.TaskStatusTodo, NewStatus: models.TaskStatusInProgress, CreatedAt: time.Now().UTC()},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := store.Save(task); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.FindByID("task-1")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("FindByID returned nil for existing task")
	}
	if got.Title != task.Title || got.Status != task.Status {
		t.Errorf("loaded task = %+v, want title/status from saved task", got)
	}
	if got.Complexity == nil || *got.Complexity != 8 {
		t.Errorf("complexity = %v, want 8", got.Complexity)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("due date = %v, want %v", got.DueDate, due)
	}
	if len(got.SubtaskIDs) != 2 || got.SubtaskIDs[0] != "c1" {
		t.Errorf("subtask ids = %v, want [c1 c2]", got.SubtaskIDs)
	}
	if len(got.Enhancements) != 1 || got.Enhancements[0].EnhancedDescription != "expanded" {
		t.Errorf("enhancements = %v", got.Enhancements)
	}
	if len(got.ComprehensionTests) != 1 || got.ComprehensionTests[0].TestType != models.TestTypeShortAnswer {
		t.Errorf("tests = %v", got.ComprehensionTests)
	}
	if len(got.Revisions) != 1 || got.Revisions[0].NewStatus != models.TaskStatusInProgress {
		t.Errorf("revisions = %v", got.Revisions)
	}
}

func TestTaskStoreSaveOverwrites(t *testing.T) {
	store := NewTaskStore(openTestDB(t))

	task := &models.Task{ID: "t1", Title: "a", Status: models.TaskStatusTodo,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := store.Save(task); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	task.Status = models.TaskStatusInProgress
	if err := store.Save(task); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := store.FindByID("t1")
	if err != nil || got == nil {
		t.Fatalf("FindByID: task=%v err=%v", got, err)
	}
	if got.Status != models.TaskStatusInProgress {
		t.Errorf("status = %q, want in_progress after overwrite", got.Status)
	}
}

func TestTaskStoreFindByIDMissing(t *testing.T) {
	store := NewTaskStore(openTestDB(t))
	got, err := store.FindByID("missing")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got != nil {
		t.Errorf("FindByID(missing) = %v, want nil", got)
	}
}

func TestTaskStoreFindByFilter(t *testing.T) {
	store := NewTaskStore(openTestDB(t))

	base := time.Now().UTC()
	for i, status := range []models.TaskStatus{
		models.TaskStatusTodo, models.TaskStatusTodo, models.TaskStatusErrored,
	} {
		task := &models.Task{
			ID: string(rune('a' + i)), Title: "t", Status: status,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			UpdatedAt: base,
		}
		if i > 0 {
			task.ParentTaskID = "a"
		}
		if err := store.Save(task); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	todos, err := store.FindByFilter(TaskFilter{Status: models.TaskStatusTodo})
	if err != nil {
		t.Fatalf("FindByFilter failed: %v", err)
	}
	if len(todos) != 2 {
		t.Errorf("got %d todo tasks, want 2", len(todos))
	}

	children, err := store.FindByFilter(TaskFilter{ParentID: "a"})
	if err != nil {
		t.Fatalf("FindByFilter failed: %v", err)
	}
	if len(children) != 2 {
		t.Errorf("got %d children, want 2", len(children))
	}

	limited, err := store.FindByFilter(TaskFilter{Limit: 1})
	if err != nil {
		t.Fatalf("FindByFilter failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("got %d tasks with limit 1, want 1", len(limited))
	}
	// Newest first.
	if limited[0].ID != "c" {
		t.Errorf("newest task = %q, want %q", limited[0].ID, "c")
	}
}

func TestArtifactStoreSaveAndFindSimilar(t *testing.T) {
	store := NewArtifactStore(openTestDB(t))

	vectors := map[string][]float32{
		"near":  {1, 0, 0},
		"mid":   {0.7, 0.7, 0},
		"far":   {0, 1, 0},
		"other": {1, 0, 0}, // different project
	}
	for id, vec := range vectors {
		project := "p1"
		if id == "other" {
			project = "p2"
		}
		artifact := &models.Artifact{
			ID: id, ProjectID: project, SourceID: "doc.md",
			SourceType: models.SourceFile, Content: id, Embedding: vec,
			Metadata:  map[string]string{"chunk": id},
			CreatedAt: time.Now().UTC(),
		}
		if err := store.Save(artifact); err != nil {
			t.Fatalf("Save(%s) failed: %v", id, err)
		}
	}

	results, err := store.FindSimilar("p1", []float32{1, 0, 0}, 10, 0.5)
	if err != nil {
		t.Fatalf("FindSimilar failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (far and other-project excluded)", len(results))
	}
	if results[0].Artifact.ID != "near" {
		t.Errorf("nearest = %q, want %q", results[0].Artifact.ID, "near")
	}
	if results[0].Distance > results[1].Distance {
		t.Error("results should be ordered by ascending distance")
	}
	if results[0].Artifact.Metadata["chunk"] != "near" {
		t.Errorf("metadata round trip failed: %v", results[0].Artifact.Metadata)
	}
}

func TestArtifactStoreDimensionMismatchSkipped(t *testing.T) {
	store := NewArtifactStore(openTestDB(t))

	a := &models.Artifact{
		ID: "a1", ProjectID: "p1", SourceID: "s", SourceType: models.SourceFile,
		Content: "x", Embedding: []float32{1, 0}, CreatedAt: time.Now().UTC(),
	}
	if err := store.Save(a); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	results, err := store.FindSimilar("p1", []float32{1, 0, 0}, 10, 1.0)
	if err != nil {
		t.Fatalf("FindSimilar failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("dimension-mismatched artifact should be skipped, got %d results", len(results))
	}
}

func TestArtifactStoreDuplicateIDRejected(t *testing.T) {
	store := NewArtifactStore(openTestDB(t))

	a := &models.Artifact{
		ID: "dup", ProjectID: "p1", SourceID: "s", SourceType: models.SourceFile,
		Content: "x", Embedding: []float32{1}, CreatedAt: time.Now().UTC(),
	}
	if err := store.Save(a); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(a); err == nil {
		t.Error("saving a duplicate artifact id should fail, artifacts are immutable")
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineDistance(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("cosineDistance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVectorEncodeDecode(t *testing.T) {
	vec := []float32{0.5, -1.25, 3.75, 0}
	got := decodeVector(encodeVector(vec))
	if len(got) != len(vec) {
		t.Fatalf("decoded length = %d, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("decoded[%d] = %v, want %v", i, got[i], vec[i])
		}
	}
	if decodeVector(nil) != nil {
		t.Error("decodeVector(nil) should be nil")
	}
}

func TestCountBySource(t *testing.T) {
	store := NewArtifactStore(openTestDB(t))

	for i := 0; i < 3; i++ {
		a := &models.Artifact{
			ID: string(rune('a' + i)), ProjectID: "p1", SourceID: "doc.md",
			SourceType: models.SourceFile, Content: "x",
			Embedding: []float32{1}, CreatedAt: time.Now().UTC(),
		}
		if err := store.Save(a); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	n, err := store.CountBySource("p1", "doc.md")
	if err != nil {
		t.Fatalf("CountBySource failed: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}
