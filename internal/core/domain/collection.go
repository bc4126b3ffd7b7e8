package domain

import "time"

// CollectionStatus is the lifecycle state of a retrieval unit.
type CollectionStatus string

const (
	// CollectionPending means ingestion has started but not finished.
	CollectionPending CollectionStatus = "pending"
	// CollectionCompleted means every chunk has been written.
	CollectionCompleted CollectionStatus = "completed"
	// CollectionFailed means ingestion aborted partway. The partial data is
	// kept for inspection rather than deleted.
	CollectionFailed CollectionStatus = "failed"
)

// CollectionMeta is the durable metadata record for a collection.
// The vector store is not trusted as the source of truth for these
// document-level attributes; they live in the metadata store.
type CollectionMeta struct {
	// Name is the derived collection name, unique per document or index.
	Name string `json:"name"`

	// DocumentName is the owning document (or index) name.
	DocumentName string `json:"document_name"`

	// JobID is the ingestion job that produced the collection.
	JobID string `json:"job_id"`

	// Dimension is the embedding dimension fixed at first write.
	// It never changes without deleting and recreating the collection.
	Dimension int `json:"dimension"`

	// EmbeddingModel names the model the vectors were produced with.
	EmbeddingModel string `json:"embedding_model"`

	// ChunkCount is the number of chunks stored, set on completion.
	ChunkCount int `json:"chunk_count"`

	// Status is the lifecycle state.
	Status CollectionStatus `json:"status"`

	// CreatedAt is when ingestion began.
	CreatedAt time.Time `json:"created_at"`

	// CompletedAt is when the last chunk was written.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
