package driving

import "github.com/custodia-labs/kb-cli/internal/core/domain"

// JobTracker is the process-wide registry of asynchronous operations.
// It is in-memory and process-lifetime only; a restart loses job history.
type JobTracker interface {
	// Submit registers a new job in the queued state and returns its id.
	Submit(kind domain.JobKind, name string) string

	// Update applies a partial mutation to a job. Updates to a terminal
	// job fail with domain.ErrJobTerminal; progress never decreases.
	Update(jobID string, upd domain.JobUpdate) error

	// Get returns a snapshot copy of a job.
	// Returns domain.ErrJobNotFound on miss.
	Get(jobID string) (*domain.Job, error)

	// List returns snapshot copies of all jobs, newest first.
	List() []domain.Job
}
