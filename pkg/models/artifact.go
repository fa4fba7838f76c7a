package models

import "time"

// SourceType identifies where an artifact's content came from.
type SourceType string

const (
	// SourcePRD marks content extracted from a product requirement document.
	SourcePRD SourceType = "prd"
	// SourceFile marks content ingested from a local file.
	SourceFile SourceType = "file"
	// SourceWebResearch marks content gathered by web research.
	SourceWebResearch SourceType = "web_research"
	// SourceUserInput marks content supplied directly by a user.
	SourceUserInput SourceType = "user_input"
)

// Valid returns true if the source type is a known value.
func (s SourceType) Valid() bool {
	switch s {
	case SourcePRD, SourceFile, SourceWebResearch, SourceUserInput:
		return true
	default:
		return false
	}
}

// Artifact is a persisted, embedded chunk of source knowledge used for
// retrieval. Artifacts are immutable after creation; re-ingesting a changed
// source creates new artifacts rather than mutating old ones.
type Artifact struct {
	// ID is the unique identifier for this artifact.
	ID string `json:"id"`
	// ProjectID scopes the artifact to a project.
	ProjectID string `json:"project_id"`
	// SourceID is the path, URL, or PRD id the content came from.
	SourceID string `json:"source_id"`
	// SourceType classifies the origin of the content.
	SourceType SourceType `json:"source_type"`
	// Content is the text of the chunk.
	Content string `json:"content"`
	// Embedding is the fixed-length vector for this chunk. The dimension is
	// determined by the embedding provider and is uniform within a project.
	Embedding []float32 `json:"embedding,omitempty"`
	// Metadata holds free-form key/value annotations.
	Metadata map[string]string `json:"metadata,omitempty"`
	// CreatedAt is when the artifact was created.
	CreatedAt time.Time `json:"created_at"`
}
