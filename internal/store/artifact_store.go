package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/taskweave/taskweave/pkg/models"
)

// SimilarArtifact pairs an artifact with its cosine distance to a query
// vector. Lower distance means more similar.
type SimilarArtifact struct {
	Artifact *models.Artifact
	Distance float64
}

// ArtifactStore persists embedded knowledge chunks and answers similarity
// queries. Similarity search loads the project's vectors and scores them by
// cosine distance in memory; artifact volumes here are small enough that an
// ANN index is not warranted.
type ArtifactStore struct {
	db *DB
}

// NewArtifactStore creates an ArtifactStore on an opened database.
func NewArtifactStore(db *DB) *ArtifactStore {
	return &ArtifactStore{db: db}
}

// Save inserts an artifact. Artifacts are immutable; saving an existing id
// is an error.
func (s *ArtifactStore) Save(artifact *models.Artifact) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	metadata, err := json.Marshal(artifact.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.conn.Exec(`
		INSERT INTO artifacts (id, project_id, source_id, source_type, content,
			embedding, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		artifact.ID, artifact.ProjectID, artifact.SourceID,
		string(artifact.SourceType), artifact.Content,
		encodeVector(artifact.Embedding), string(metadata),
		formatTime(artifact.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save artifact %s: %w", artifact.ID, err)
	}
	return nil
}

// FindSimilar returns up to limit artifacts within the project whose cosine
// distance to the query vector is at most maxDistance, nearest first.
// Artifacts whose stored vector dimension differs from the query (e.g. from
// an earlier embedding model) are skipped.
func (s *ArtifactStore) FindSimilar(projectID string, vector []float32, limit int, maxDistance float64) ([]SimilarArtifact, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}

	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	rows, err := s.db.conn.Query(`
		SELECT id, project_id, source_id, source_type, content, embedding,
		       metadata, created_at
		FROM artifacts WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var results []SimilarArtifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		if len(artifact.Embedding) != len(vector) {
			continue
		}
		dist := cosineDistance(vector, artifact.Embedding)
		if dist > maxDistance {
			continue
		}
		results = append(results, SimilarArtifact{Artifact: artifact, Distance: dist})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// CountBySource returns the number of artifacts ingested from a source.
func (s *ArtifactStore) CountBySource(projectID, sourceID string) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var n int
	row := s.db.conn.QueryRow(
		"SELECT COUNT(*) FROM artifacts WHERE project_id = ? AND source_id = ?",
		projectID, sourceID)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count artifacts: %w", err)
	}
	return n, nil
}

func scanArtifact(rows *sql.Rows) (*models.Artifact, error) {
	var (
		artifact   models.Artifact
		sourceType string
		embedding  []byte
		metadata   sql.NullString
		createdAt  string
	)

	err := rows.Scan(&artifact.ID, &artifact.ProjectID, &artifact.SourceID,
		&sourceType, &artifact.Content, &embedding, &metadata, &createdAt)
	if err != nil {
		return nil, err
	}

	artifact.SourceType = models.SourceType(sourceType)
	artifact.Embedding = decodeVector(embedding)
	if metadata.Valid && metadata.String != "" && metadata.String != "null" {
		if err := json.Unmarshal([]byte(metadata.String), &artifact.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	if artifact.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &artifact, nil
}

// encodeVector packs a float32 vector into a little-endian blob.
func encodeVector(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a little-endian blob into a float32 vector.
func decodeVector(buf []byte) []float32 {
	if len(buf) < 4 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

// cosineDistance computes 1 - cosine similarity. Zero-magnitude vectors are
// treated as maximally distant.
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
