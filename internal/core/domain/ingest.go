package domain

// IngestRequest describes a document ingestion run.
type IngestRequest struct {
	// FileID references a previously uploaded file.
	FileID string `json:"file_id"`

	// DocumentName is the human-readable document name. It seeds the
	// derived collection name.
	DocumentName string `json:"document_name"`

	// Mode selects the chunking policy (default auto).
	Mode ChunkMode `json:"chunk_mode,omitempty"`

	// ChunkSize is the manual-mode window size in tokens.
	ChunkSize int `json:"chunk_size,omitempty"`

	// ChunkOverlap is the manual-mode overlap in tokens.
	ChunkOverlap int `json:"chunk_overlap,omitempty"`

	// TargetCollectionID optionally names an existing collection to write
	// into instead of deriving a fresh one.
	TargetCollectionID string `json:"target_collection_id,omitempty"`
}
