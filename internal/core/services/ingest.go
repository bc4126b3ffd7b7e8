package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/kb-cli/internal/chunker"
	"github.com/custodia-labs/kb-cli/internal/core/domain"
	"github.com/custodia-labs/kb-cli/internal/core/ports/driven"
	"github.com/custodia-labs/kb-cli/internal/core/ports/driving"
	"github.com/custodia-labs/kb-cli/internal/logger"
)

// Ensure Ingestor implements the interface.
var _ driving.Ingestor = (*Ingestor)(nil)

// DefaultEmbedBatchSize is how many chunks are embedded per provider call.
const DefaultEmbedBatchSize = 64

// Index creation accepts this many member collections at most.
const maxIndexMembers = 5

// Ingestor orchestrates the ingestion pipeline: resolve upload, parse,
// chunk, embed, write. Submission returns immediately; the pipeline runs on
// its own goroutine and reports exclusively through its job record.
type Ingestor struct {
	files       driven.FileStore
	parser      driven.Parser
	embedder    driven.EmbeddingService
	collections *CollectionManager
	jobs        driving.JobTracker
	batchSize   int
}

// NewIngestor creates an ingestion orchestrator.
func NewIngestor(
	files driven.FileStore,
	parser driven.Parser,
	embedder driven.EmbeddingService,
	collections *CollectionManager,
	jobs driving.JobTracker,
) *Ingestor {
	return &Ingestor{
		files:       files,
		parser:      parser,
		embedder:    embedder,
		collections: collections,
		jobs:        jobs,
		batchSize:   DefaultEmbedBatchSize,
	}
}

// Upload stores a raw document for later ingestion. Storing is quick, so
// the upload job is recorded synchronously and is already terminal when
// this returns; it exists so uploads show up next to the other job kinds.
func (ing *Ingestor) Upload(ctx context.Context, filename string, r io.Reader) (string, string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", "", fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}

	jobID := ing.jobs.Submit(domain.JobKindUpload, filename)
	ing.setRunning(jobID, "storing upload")

	fileID, err := ing.files.Save(ctx, filename, r)
	if err != nil {
		err = fmt.Errorf("store upload: %w", err)
		ing.fail(jobID, "", err)
		return "", jobID, err
	}

	status := domain.JobCompleted
	message := fmt.Sprintf("stored as %s", fileID)
	if err := ing.jobs.Update(jobID, domain.JobUpdate{Status: &status, Message: &message}); err != nil {
		logger.Warn("Job %s: update failed: %v", jobID, err)
	}
	return fileID, jobID, nil
}

// Ingest submits a document ingestion run and returns its job id.
func (ing *Ingestor) Ingest(ctx context.Context, req domain.IngestRequest) (string, error) {
	if strings.TrimSpace(req.FileID) == "" || strings.TrimSpace(req.DocumentName) == "" {
		return "", fmt.Errorf("%w: file id and document name are required", domain.ErrInvalidInput)
	}
	if req.Mode == "" {
		req.Mode = domain.ChunkModeAuto
	}

	jobID := ing.jobs.Submit(domain.JobKindIngest, req.DocumentName)

	// A poller abandoning the job must not cancel the pipeline; the job
	// runs to a terminal status on a detached context.
	runCtx := context.WithoutCancel(ctx)
	go ing.run(runCtx, jobID, req)

	return jobID, nil
}

// run executes the pipeline for one job. Each step is a distinct failure
// point; the first error lands on the job record and stops the run.
func (ing *Ingestor) run(ctx context.Context, jobID string, req domain.IngestRequest) {
	ing.setRunning(jobID, "resolving upload")

	// 1. Resolve the upload to bytes.
	data, filename, err := ing.files.Read(ctx, req.FileID)
	if err != nil {
		ing.fail(jobID, "", fmt.Errorf("read upload: %w", err))
		return
	}
	ing.progress(jobID, 10, "parsing document")

	// 2. Parse bytes to text.
	text, err := ing.parser.Parse(ctx, data, filename)
	if err != nil {
		ing.fail(jobID, "", fmt.Errorf("parse: %w", err))
		return
	}
	ing.progress(jobID, 20, "chunking text")

	// 3. Chunk.
	chunks, err := chunker.Split(text, chunker.Options{
		Mode:          req.Mode,
		MaxTokens:     req.ChunkSize,
		OverlapTokens: req.ChunkOverlap,
	})
	if err != nil {
		ing.fail(jobID, "", fmt.Errorf("chunk: %w", err))
		return
	}
	for i := range chunks {
		chunks[i].ID = domain.ChunkID(jobID, i)
		chunks[i].Metadata = domain.ChunkMetadata{
			DocumentName: req.DocumentName,
			JobID:        jobID,
			Index:        chunks[i].Index,
			TokenCount:   chunks[i].TokenCount,
		}
	}
	logger.Debug("Job %s: %d chunks from %s", jobID, len(chunks), filename)
	ing.progress(jobID, 30, fmt.Sprintf("embedding %d chunks", len(chunks)))

	// 4. Embed in batches. Completion order is irrelevant because records
	// are assembled by chunk index below.
	embeddings, err := ing.embedChunks(ctx, jobID, chunks)
	if err != nil {
		ing.fail(jobID, "", err)
		return
	}
	ing.progress(jobID, 75, "writing vectors")

	// 5. Determine or create the target collection.
	collectionName, err := ing.resolveCollection(ctx, jobID, req)
	if err != nil {
		ing.fail(jobID, "", fmt.Errorf("resolve collection: %w", err))
		return
	}

	// 6. Write vectors and metadata in chunk index order.
	records := make([]driven.VectorRecord, len(chunks))
	for i, c := range chunks {
		records[i] = driven.VectorRecord{
			ID:        c.ID,
			Embedding: embeddings[i],
			Text:      c.Text,
			Metadata:  c.Metadata,
		}
	}
	if err := ing.collections.WriteChunks(ctx, collectionName, records); err != nil {
		ing.fail(jobID, collectionName, fmt.Errorf("write chunks: %w", err))
		return
	}

	// 7. Mark collection and job completed.
	if err := ing.collections.MarkCompleted(ctx, collectionName, len(chunks)); err != nil {
		ing.fail(jobID, collectionName, fmt.Errorf("finalise collection: %w", err))
		return
	}
	ing.complete(jobID, collectionName, len(chunks))
	logger.Info("Job %s: ingested %s into %s (%d chunks)", jobID, req.DocumentName, collectionName, len(chunks))
}

// embedChunks embeds all chunk texts in batches, reporting progress.
func (ing *Ingestor) embedChunks(ctx context.Context, jobID string, chunks []domain.Chunk) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(chunks))

	for start := 0; start < len(chunks); start += ing.batchSize {
		end := start + ing.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		batch, err := ing.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d-%d: %v", domain.ErrEmbeddingError, start, end-1, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("%w: provider returned %d vectors for %d texts",
				domain.ErrEmbeddingError, len(batch), len(texts))
		}
		embeddings = append(embeddings, batch...)

		// Embedding dominates the pipeline; spread 30..75 across batches.
		p := 30 + 45*end/len(chunks)
		ing.progress(jobID, p, fmt.Sprintf("embedded %d/%d chunks", end, len(chunks)))
	}

	return embeddings, nil
}

// resolveCollection reuses the explicit target collection or derives and
// creates a fresh one from the document name and job id.
func (ing *Ingestor) resolveCollection(ctx context.Context, jobID string, req domain.IngestRequest) (string, error) {
	if req.TargetCollectionID != "" {
		meta, err := ing.collections.Get(ctx, req.TargetCollectionID)
		if err != nil {
			return "", err
		}
		if meta.Dimension != ing.embedder.Dimensions() {
			return "", fmt.Errorf("%w: collection %s has dimension %d, model %s produces %d",
				domain.ErrDimensionMismatch, meta.Name, meta.Dimension,
				ing.embedder.ModelName(), ing.embedder.Dimensions())
		}
		return meta.Name, nil
	}

	name := ing.collections.DeriveName(req.DocumentName, jobID)
	if _, err := ing.collections.Create(ctx, name, req.DocumentName, jobID,
		ing.embedder.Dimensions(), ing.embedder.ModelName()); err != nil {
		return "", err
	}
	return name, nil
}

// CreateIndex submits the creation of a combined index collection.
// Members must exist, be completed and share one embedding dimension.
func (ing *Ingestor) CreateIndex(ctx context.Context, name string, members []string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: index name is required", domain.ErrInvalidInput)
	}
	if len(members) == 0 || len(members) > maxIndexMembers {
		return "", fmt.Errorf("%w: an index needs 1 to %d member collections", domain.ErrInvalidInput, maxIndexMembers)
	}

	dimension := 0
	for _, member := range members {
		meta, err := ing.collections.Get(ctx, member)
		if err != nil {
			return "", fmt.Errorf("member %s: %w", member, err)
		}
		if meta.Status != domain.CollectionCompleted {
			return "", fmt.Errorf("%w: member %s is %s, not completed", domain.ErrInvalidInput, member, meta.Status)
		}
		if dimension == 0 {
			dimension = meta.Dimension
		} else if meta.Dimension != dimension {
			return "", fmt.Errorf("%w: member %s has dimension %d, expected %d",
				domain.ErrDimensionMismatch, member, meta.Dimension, dimension)
		}
	}

	jobID := ing.jobs.Submit(domain.JobKindCreateIndex, name)
	runCtx := context.WithoutCancel(ctx)
	go ing.runCreateIndex(runCtx, jobID, name, members, dimension)

	return jobID, nil
}

// runCreateIndex copies every member collection into the derived index
// collection, recording each record's source collection as provenance.
func (ing *Ingestor) runCreateIndex(ctx context.Context, jobID, name string, members []string, dimension int) {
	ing.setRunning(jobID, "creating index collection")

	indexName := ing.collections.DeriveName("index_"+name, jobID)
	if _, err := ing.collections.Create(ctx, indexName, name, jobID, dimension, ing.embedder.ModelName()); err != nil {
		ing.fail(jobID, "", fmt.Errorf("create index collection: %w", err))
		return
	}

	total := 0
	for i, member := range members {
		records, err := ing.collections.vectors.Export(ctx, member)
		if err != nil {
			ing.fail(jobID, indexName, fmt.Errorf("export %s: %w", member, err))
			return
		}
		for j := range records {
			records[j].Metadata.SourceCollection = member
		}
		if err := ing.collections.WriteChunks(ctx, indexName, records); err != nil {
			ing.fail(jobID, indexName, fmt.Errorf("copy %s: %w", member, err))
			return
		}
		total += len(records)
		p := 10 + 80*(i+1)/len(members)
		ing.progress(jobID, p, fmt.Sprintf("copied %d/%d collections", i+1, len(members)))
	}

	if err := ing.collections.MarkCompleted(ctx, indexName, total); err != nil {
		ing.fail(jobID, indexName, fmt.Errorf("finalise index: %w", err))
		return
	}
	ing.complete(jobID, indexName, total)
	logger.Info("Job %s: index %s built from %d collections (%d chunks)", jobID, indexName, len(members), total)
}

// Job record helpers. The pipeline is the job's only writer, so tracker
// errors here indicate a bug and are only logged.

func (ing *Ingestor) setRunning(jobID, message string) {
	status := domain.JobRunning
	if err := ing.jobs.Update(jobID, domain.JobUpdate{Status: &status, Message: &message}); err != nil {
		logger.Warn("Job %s: update failed: %v", jobID, err)
	}
}

func (ing *Ingestor) progress(jobID string, progress int, message string) {
	if err := ing.jobs.Update(jobID, domain.JobUpdate{Progress: &progress, Message: &message}); err != nil {
		logger.Warn("Job %s: update failed: %v", jobID, err)
	}
}

func (ing *Ingestor) complete(jobID, collectionName string, chunkCount int) {
	status := domain.JobCompleted
	message := fmt.Sprintf("ingested %d chunks into %s", chunkCount, collectionName)
	if err := ing.jobs.Update(jobID, domain.JobUpdate{
		Status:       &status,
		Message:      &message,
		ChunkCount:   &chunkCount,
		CollectionID: &collectionName,
	}); err != nil {
		logger.Warn("Job %s: update failed: %v", jobID, err)
	}
}

// fail marks the job failed and, when a collection was already created,
// leaves it behind in the failed state for inspection.
func (ing *Ingestor) fail(jobID, collectionName string, cause error) {
	logger.Warn("Job %s failed: %v", jobID, cause)

	if collectionName != "" {
		if err := ing.collections.MarkFailed(context.Background(), collectionName); err != nil {
			logger.Warn("Job %s: marking collection %s failed: %v", jobID, collectionName, err)
		}
	}

	status := domain.JobFailed
	message := cause.Error()
	upd := domain.JobUpdate{Status: &status, Message: &message}
	if collectionName != "" {
		upd.CollectionID = &collectionName
	}
	if err := ing.jobs.Update(jobID, upd); err != nil {
		logger.Warn("Job %s: update failed: %v", jobID, err)
	}
}
