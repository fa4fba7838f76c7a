package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/taskweave/taskweave/internal/provider"
	"github.com/taskweave/taskweave/internal/store"
	"github.com/taskweave/taskweave/pkg/models"
)

// fakeEmbedder returns a canned vector, failing on chunks listed in failOn.
type fakeEmbedder struct {
	vec    []float32
	err    error
	failOn map[string]bool
	calls  int
}

func (f *fakeEmbedder) DispatchEmbedding(ctx context.Context, slot provider.Slot, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.failOn[text] {
		return nil, errors.New("embedding backend unavailable")
	}
	return f.vec, nil
}

// fakeArtifactStore records saves and returns canned similarity results.
type fakeArtifactStore struct {
	saved   []*models.Artifact
	similar []store.SimilarArtifact
	findErr error
	saveErr error
}

func (f *fakeArtifactStore) Save(a *models.Artifact) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, a)
	return nil
}

func (f *fakeArtifactStore) FindSimilar(projectID string, vector []float32, limit int, maxDistance float64) ([]store.SimilarArtifact, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []store.SimilarArtifact
	for _, s := range f.similar {
		if s.Distance <= maxDistance {
			out = append(out, s)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func TestIngestPersistsChunks(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{0.1, 0.2}}
	artifacts := &fakeArtifactStore{}
	svc := NewService(embedder, artifacts, "p1")

	content := "Para one.\n\nPara two.\n\nPara three."
	result, err := svc.Ingest(context.Background(), content, models.SourceFile, "notes.md", Paragraph())
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if len(result.ArtifactIDs) != 3 {
		t.Errorf("got %d artifact ids, want 3", len(result.ArtifactIDs))
	}
	if result.Skipped != 0 {
		t.Errorf("skipped = %d, want 0", result.Skipped)
	}
	if len(artifacts.saved) != 3 {
		t.Fatalf("saved %d artifacts, want 3", len(artifacts.saved))
	}

	first := artifacts.saved[0]
	if first.ProjectID != "p1" || first.SourceID != "notes.md" || first.SourceType != models.SourceFile {
		t.Errorf("artifact fields wrong: %+v", first)
	}
	if first.Metadata["chunk_strategy"] != "paragraph" || first.Metadata["chunk_index"] != "0" {
		t.Errorf("artifact metadata wrong: %v", first.Metadata)
	}
	if len(first.Embedding) != 2 {
		t.Errorf("embedding not attached: %v", first.Embedding)
	}
}

func TestIngestSkipsFailedChunks(t *testing.T) {
	// 1200 chars split at 500: chunk 2 (chars 500-999) fails embedding.
	content := strings.Repeat("a", 500) + strings.Repeat("b", 500) + strings.Repeat("c", 200)
	embedder := &fakeEmbedder{
		vec:    []float32{1},
		failOn: map[string]bool{strings.Repeat("b", 500): true},
	}
	artifacts := &fakeArtifactStore{}
	svc := NewService(embedder, artifacts, "p1")

	result, err := svc.Ingest(context.Background(), content, models.SourceFile, "big.txt", FixedSize(500))
	if err != nil {
		t.Fatalf("Ingest should succeed despite a failed chunk: %v", err)
	}
	if len(result.ArtifactIDs) != 2 {
		t.Errorf("got %d artifacts, want 2 (chunks 1 and 3)", len(result.ArtifactIDs))
	}
	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", result.Skipped)
	}
	for _, a := range artifacts.saved {
		if strings.HasPrefix(a.Content, "b") {
			t.Error("failed chunk should not be persisted")
		}
	}
}

func TestIngestSaveErrorIsFatal(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1}}
	artifacts := &fakeArtifactStore{saveErr: errors.New("disk full")}
	svc := NewService(embedder, artifacts, "p1")

	_, err := svc.Ingest(context.Background(), "some content", models.SourceUserInput, "input", WholeFile())
	if err == nil {
		t.Error("a store failure should fail ingestion")
	}
}

func TestRetrieveFiltersAndOrders(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	artifacts := &fakeArtifactStore{
		similar: []store.SimilarArtifact{
			{Artifact: &models.Artifact{ID: "a", Content: "best"}, Distance: 0.1},
			{Artifact: &models.Artifact{ID: "b", Content: "ok"}, Distance: 0.35},
			{Artifact: &models.Artifact{ID: "c", Content: "weak"}, Distance: 0.6},
		},
	}
	svc := NewService(embedder, artifacts, "p1")

	scored := svc.Retrieve(context.Background(), "query", 3, 0.6)
	if len(scored) != 2 {
		t.Fatalf("got %d results, want 2 (similarity 0.4 filtered out)", len(scored))
	}
	for _, s := range scored {
		if s.Similarity < 0.6 {
			t.Errorf("result %s has similarity %.2f below threshold", s.Artifact.ID, s.Similarity)
		}
	}
	if scored[0].Similarity < scored[1].Similarity {
		t.Error("results should be ordered by descending similarity")
	}
	if scored[0].Artifact.ID != "a" {
		t.Errorf("top result = %q, want %q", scored[0].Artifact.ID, "a")
	}
}

func TestRetrieveDegradesOnEmbeddingFailure(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("embedding service down")}
	svc := NewService(embedder, &fakeArtifactStore{}, "p1")

	scored := svc.Retrieve(context.Background(), "query", 3, 0.6)
	if scored != nil {
		t.Errorf("Retrieve should return empty on embedding failure, got %v", scored)
	}
}

func TestRetrieveDegradesOnStoreFailure(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1}}
	artifacts := &fakeArtifactStore{findErr: errors.New("store unreachable")}
	svc := NewService(embedder, artifacts, "p1")

	scored := svc.Retrieve(context.Background(), "query", 3, 0.6)
	if scored != nil {
		t.Errorf("Retrieve should return empty on store failure, got %v", scored)
	}
}

func TestFormatContext(t *testing.T) {
	if got := FormatContext(nil); got != "" {
		t.Errorf("FormatContext(nil) = %q, want empty", got)
	}

	scored := []Scored{
		{Artifact: &models.Artifact{SourceID: "a.md", Content: "alpha"}, Similarity: 0.91},
		{Artifact: &models.Artifact{SourceID: "b.md", Content: "beta"}, Similarity: 0.65},
	}
	got := FormatContext(scored)
	if !strings.Contains(got, "alpha") || !strings.Contains(got, "beta") {
		t.Errorf("context should include artifact content: %q", got)
	}
	if !strings.Contains(got, "a.md") {
		t.Errorf("context should name the source: %q", got)
	}
	if strings.Index(got, "alpha") > strings.Index(got, "beta") {
		t.Error("context should list higher-similarity artifacts first")
	}
}
