package retrieval

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskweave/taskweave/internal/provider"
	"github.com/taskweave/taskweave/internal/store"
	"github.com/taskweave/taskweave/pkg/models"
)

// Embedder dispatches embedding generation. Implemented by *provider.Registry.
type Embedder interface {
	DispatchEmbedding(ctx context.Context, slot provider.Slot, text string) ([]float32, error)
}

// ArtifactStore is the persistence boundary the service depends on.
// Implemented by *store.ArtifactStore.
type ArtifactStore interface {
	Save(artifact *models.Artifact) error
	FindSimilar(projectID string, vector []float32, limit int, maxDistance float64) ([]store.SimilarArtifact, error)
}

// Scored pairs an artifact with its similarity to the query, in [0,1]-ish
// cosine terms (1 - cosine distance).
type Scored struct {
	Artifact   *models.Artifact
	Similarity float64
}

// IngestResult summarizes an ingestion run.
type IngestResult struct {
	// ArtifactIDs lists the persisted artifacts in chunk order.
	ArtifactIDs []string
	// Skipped counts chunks dropped because their embedding failed.
	Skipped int
}

// Service chunks, embeds, persists, and retrieves artifacts.
type Service struct {
	embedder  Embedder
	artifacts ArtifactStore
	projectID string
}

// NewService creates a retrieval service scoped to a project.
func NewService(embedder Embedder, artifacts ArtifactStore, projectID string) *Service {
	return &Service{embedder: embedder, artifacts: artifacts, projectID: projectID}
}

// Ingest chunks the content, embeds each chunk via the embedding slot, and
// persists the resulting artifacts. Chunks whose embedding fails are skipped
// and counted; ingestion itself still succeeds. It does not deduplicate:
// re-ingesting an unchanged source creates duplicate artifacts.
func (s *Service) Ingest(ctx context.Context, content string, sourceType models.SourceType, sourceID string, strategy Strategy) (IngestResult, error) {
	var result IngestResult

	chunks, err := Chunk(content, strategy)
	if err != nil {
		return result, fmt.Errorf("chunk %s: %w", sourceID, err)
	}

	for i, chunk := range chunks {
		vec, err := s.embedder.DispatchEmbedding(ctx, provider.SlotEmbedding, chunk)
		if err != nil {
			log.Printf("[retrieval] embedding failed for chunk %d of %s, skipping: %v", i+1, sourceID, err)
			result.Skipped++
			continue
		}

		artifact := &models.Artifact{
			ID:         uuid.New().String(),
			ProjectID:  s.projectID,
			SourceID:   sourceID,
			SourceType: sourceType,
			Content:    chunk,
			Embedding:  vec,
			Metadata: map[string]string{
				"chunk_index":    fmt.Sprintf("%d", i),
				"chunk_strategy": strategy.String(),
			},
			CreatedAt: time.Now().UTC(),
		}
		if err := s.artifacts.Save(artifact); err != nil {
			return result, fmt.Errorf("save artifact for chunk %d of %s: %w", i+1, sourceID, err)
		}
		result.ArtifactIDs = append(result.ArtifactIDs, artifact.ID)
	}

	return result, nil
}

// Retrieve embeds the query and returns artifacts with similarity at or
// above minSimilarity, most similar first. Retrieval failures are non-fatal:
// an embedding or store error logs and returns an empty result so callers
// degrade to a context-free prompt.
func (s *Service) Retrieve(ctx context.Context, query string, topK int, minSimilarity float64) []Scored {
	vec, err := s.embedder.DispatchEmbedding(ctx, provider.SlotEmbedding, query)
	if err != nil {
		log.Printf("[retrieval] query embedding failed, continuing without context: %v", err)
		return nil
	}

	// similarity >= minSimilarity  <=>  distance <= 1 - minSimilarity
	found, err := s.artifacts.FindSimilar(s.projectID, vec, topK, 1-minSimilarity)
	if err != nil {
		log.Printf("[retrieval] similarity search failed, continuing without context: %v", err)
		return nil
	}

	scored := make([]Scored, 0, len(found))
	for _, f := range found {
		sim := 1 - f.Distance
		if sim < minSimilarity {
			continue
		}
		scored = append(scored, Scored{Artifact: f.Artifact, Similarity: sim})
	}
	// FindSimilar orders by ascending distance, so scored is already in
	// descending similarity order.
	return scored
}

// FormatContext renders retrieved artifacts as a prompt context section.
// Empty input renders an empty string so prompts omit the section entirely.
func FormatContext(scored []Scored) string {
	if len(scored) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Relevant context from the knowledge base:\n")
	for i, s := range scored {
		fmt.Fprintf(&b, "\n[%d] (source: %s, relevance: %.2f)\n%s\n",
			i+1, s.Artifact.SourceID, s.Similarity, s.Artifact.Content)
	}
	return b.String()
}
