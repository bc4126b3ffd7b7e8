package domain

import "time"

// JobKind identifies the asynchronous operation a job tracks.
type JobKind string

const (
	// JobKindUpload tracks a file upload.
	JobKindUpload JobKind = "upload"
	// JobKindIngest tracks a document ingestion run.
	JobKindIngest JobKind = "ingest"
	// JobKindCreateIndex tracks the creation of a combined index collection.
	JobKindCreateIndex JobKind = "create-index"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	// JobQueued means the job has been submitted but not started.
	JobQueued JobStatus = "queued"
	// JobRunning means the job's pipeline is executing.
	JobRunning JobStatus = "running"
	// JobCompleted means the job finished successfully. Terminal.
	JobCompleted JobStatus = "completed"
	// JobFailed means the job finished with an error. Terminal.
	JobFailed JobStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is a tracked asynchronous unit of work with a polling-visible
// lifecycle. Exactly one job exists per operation and only that operation
// writes to it.
type Job struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`

	// Kind identifies the operation this job tracks.
	Kind JobKind `json:"kind"`

	// Name is a human-readable label, usually the document name.
	Name string `json:"name"`

	// Status is the current lifecycle state.
	Status JobStatus `json:"status"`

	// Progress is an advisory completion percentage (0-100).
	// It never decreases while the job is running.
	Progress int `json:"progress"`

	// Message is a free-text progress or failure description.
	Message string `json:"message,omitempty"`

	// ChunkCount is the number of chunks produced, set on completion.
	ChunkCount int `json:"chunk_count,omitempty"`

	// CollectionID is the resulting collection, set on completion.
	CollectionID string `json:"collection_id,omitempty"`

	// CreatedAt is when the job was submitted.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the pipeline began executing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt is when the job reached a terminal status.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// JobUpdate describes a partial mutation of a job record.
// Nil fields are left unchanged.
type JobUpdate struct {
	Status       *JobStatus
	Progress     *int
	Message      *string
	ChunkCount   *int
	CollectionID *string
}
