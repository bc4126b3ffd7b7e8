package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
)

// Ingestor runs ingestion pipelines. Submission returns immediately with a
// job id; the pipeline proceeds asynchronously and reports through the
// JobTracker.
type Ingestor interface {
	// Upload stores a raw document and records a completed upload job.
	// The returned file id can seed a later ingestion run.
	Upload(ctx context.Context, filename string, r io.Reader) (fileID string, jobID string, err error)

	// Ingest submits a document ingestion run.
	Ingest(ctx context.Context, req domain.IngestRequest) (jobID string, err error)

	// CreateIndex submits the creation of a combined index collection from
	// one or more completed collections.
	CreateIndex(ctx context.Context, name string, members []string) (jobID string, err error)
}
