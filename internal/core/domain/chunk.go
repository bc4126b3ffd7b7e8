package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ChunkMode selects the chunking policy for an ingestion run.
type ChunkMode string

const (
	// ChunkModeAuto uses tuned default window and overlap sizes.
	ChunkModeAuto ChunkMode = "auto"
	// ChunkModeManual uses caller-supplied window and overlap sizes.
	ChunkModeManual ChunkMode = "manual"
)

// Chunk is a bounded contiguous slice of a document's text, the unit of
// embedding and retrieval. Chunks from one pass are contiguous in source
// order and non-overlapping in index.
type Chunk struct {
	// ID is the stable identifier, derived from the job id and index.
	ID string `json:"id"`

	// Index is the ordinal position within the document, from 0.
	Index int `json:"index"`

	// Text is the chunk content.
	Text string `json:"text"`

	// TokenCount is the token-length estimate under the active counter.
	TokenCount int `json:"token_count"`

	// Metadata is carried alongside the vector in the store.
	Metadata ChunkMetadata `json:"metadata"`
}

// ChunkMetadata travels with each vector. It is a closed struct rather than
// an open map so the metadata contract is checkable at compile time.
type ChunkMetadata struct {
	// DocumentName is the owning document name.
	DocumentName string `json:"document_name"`

	// JobID is the ingestion job that produced the chunk.
	JobID string `json:"job_id"`

	// Index is the chunk's ordinal position within the document.
	Index int `json:"chunk_index"`

	// TokenCount is the chunk's token-length estimate.
	TokenCount int `json:"token_count"`

	// SourceCollection is set when a chunk was copied into a combined
	// index collection, naming the collection it came from.
	SourceCollection string `json:"source_collection,omitempty"`
}

// ChunkID derives the stable chunk identifier from the producing job id and
// the chunk's position. Identical inputs always produce the same id.
func ChunkID(jobID string, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s/%d", jobID, index)))
	return hex.EncodeToString(sum[:8])
}
