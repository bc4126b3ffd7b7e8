package services

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
	"github.com/custodia-labs/kb-cli/internal/core/ports/driving"
)

// Ensure JobTracker implements the interface.
var _ driving.JobTracker = (*JobTracker)(nil)

// JobTracker is the in-memory job registry. It is mutated by job goroutines
// and read by pollers, so every access goes through the mutex and Get/List
// return copies; nobody acts on a shared record.
type JobTracker struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// NewJobTracker creates an empty job tracker.
func NewJobTracker() *JobTracker {
	return &JobTracker{
		jobs: make(map[string]*domain.Job),
	}
}

// Submit registers a new job in the queued state and returns its id.
func (t *JobTracker) Submit(kind domain.JobKind, name string) string {
	job := &domain.Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		Name:      name,
		Status:    domain.JobQueued,
		CreatedAt: time.Now().UTC(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[job.ID] = job
	return job.ID
}

// Update applies a partial mutation to a job.
//
// Transitions out of a terminal status fail with domain.ErrJobTerminal.
// Progress is clamped to 0-100 and never decreases, so pollers always
// observe a monotonic sequence.
func (t *JobTracker) Update(jobID string, upd domain.JobUpdate) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status.Terminal() {
		return domain.ErrJobTerminal
	}

	now := time.Now().UTC()

	if upd.Status != nil && *upd.Status != job.Status {
		job.Status = *upd.Status
		switch {
		case job.Status == domain.JobRunning:
			job.StartedAt = &now
		case job.Status.Terminal():
			job.FinishedAt = &now
			if job.Status == domain.JobCompleted {
				job.Progress = 100
			}
		}
	}

	if upd.Progress != nil {
		p := *upd.Progress
		if p > 100 {
			p = 100
		}
		if p > job.Progress {
			job.Progress = p
		}
	}

	if upd.Message != nil {
		job.Message = *upd.Message
	}
	if upd.ChunkCount != nil {
		job.ChunkCount = *upd.ChunkCount
	}
	if upd.CollectionID != nil {
		job.CollectionID = *upd.CollectionID
	}

	return nil
}

// Get returns a snapshot copy of a job.
func (t *JobTracker) Get(jobID string) (*domain.Job, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}

	snapshot := *job
	return &snapshot, nil
}

// List returns snapshot copies of all jobs, newest first.
func (t *JobTracker) List() []domain.Job {
	t.mu.RLock()
	defer t.mu.RUnlock()

	jobs := make([]domain.Job, 0, len(t.jobs))
	for _, job := range t.jobs {
		jobs = append(jobs, *job)
	}

	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
		}
		return jobs[i].ID < jobs[j].ID
	})
	return jobs
}
