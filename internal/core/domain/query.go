package domain

import "time"

// DefaultTopK is the result bound used when a query does not supply one.
const DefaultTopK = 5

// QueryRequest is an ephemeral retrieval request.
type QueryRequest struct {
	// Question is the natural-language query.
	Question string `json:"question"`

	// TopK bounds the number of returned matches (default DefaultTopK).
	TopK int `json:"top_k"`

	// CollectionID optionally targets a single collection.
	// Empty means search every known collection.
	CollectionID string `json:"collection_id,omitempty"`
}

// Match is one ranked retrieval result with provenance.
type Match struct {
	// ChunkID identifies the matched chunk.
	ChunkID string `json:"chunk_id"`

	// Text is the chunk content.
	Text string `json:"text"`

	// Score is the similarity score, higher is better.
	Score float64 `json:"score"`

	// Collection is the collection the match came from.
	Collection string `json:"collection"`

	// CollectionCreatedAt orders merge ties across collections.
	CollectionCreatedAt time.Time `json:"-"`

	// Metadata is the chunk metadata stored alongside the vector.
	Metadata ChunkMetadata `json:"metadata"`
}

// ReconcileOptions controls a compatibility guard run.
type ReconcileOptions struct {
	// DryRun reports incompatible collections without deleting them.
	DryRun bool
}

// ReconcileReport summarises a compatibility guard run.
type ReconcileReport struct {
	// Checked is the number of collections probed.
	Checked int `json:"checked"`

	// Incompatible lists collections whose stored dimension does not match
	// the active embedding model.
	Incompatible []string `json:"incompatible,omitempty"`

	// Deleted lists collections actually removed. Empty on dry runs.
	Deleted []string `json:"deleted,omitempty"`

	// Missing lists metadata records whose collection no longer exists in
	// the vector store.
	Missing []string `json:"missing,omitempty"`
}
