package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagememory "github.com/custodia-labs/kb-cli/internal/adapters/driven/storage/memory"
	vectormemory "github.com/custodia-labs/kb-cli/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/kb-cli/internal/core/domain"
	"github.com/custodia-labs/kb-cli/internal/normalisers"
)

// ingestHarness bundles an Ingestor with its backing fakes.
type ingestHarness struct {
	ingestor *Ingestor
	tracker  *JobTracker
	manager  *CollectionManager
	vectors  *vectormemory.Store
	files    *stubFileStore
	embedder *stubEmbedder
}

func newIngestHarness(dimension int) *ingestHarness {
	vectors := vectormemory.NewStore()
	manager := NewCollectionManager(vectors, storagememory.NewCollectionStore())
	tracker := NewJobTracker()
	files := newStubFileStore()
	embedder := newStubEmbedder(dimension)

	return &ingestHarness{
		ingestor: NewIngestor(files, normalisers.NewRegistry(), embedder, manager, tracker),
		tracker:  tracker,
		manager:  manager,
		vectors:  vectors,
		files:    files,
		embedder: embedder,
	}
}

// waitTerminal polls until the job reaches a terminal status.
func waitTerminal(t *testing.T, tracker *JobTracker, jobID string) *domain.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := tracker.Get(jobID)
		require.NoError(t, err)
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal status", jobID)
	return nil
}

// longDocument builds a text that chunks into several windows in auto mode.
func longDocument(tokens int) string {
	parts := make([]string, tokens)
	for i := range parts {
		parts[i] = fmt.Sprintf("token%d", i)
	}
	return strings.Join(parts, " ")
}

func TestIngest_ValidatesRequest(t *testing.T) {
	h := newIngestHarness(8)
	ctx := context.Background()

	_, err := h.ingestor.Ingest(ctx, domain.IngestRequest{FileID: "", DocumentName: "notes"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = h.ingestor.Ingest(ctx, domain.IngestRequest{FileID: "file-1", DocumentName: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngest_AutoModeCompletes(t *testing.T) {
	h := newIngestHarness(8)
	fileID := h.files.add("notes.txt", longDocument(3000))

	jobID, err := h.ingestor.Ingest(context.Background(), domain.IngestRequest{
		FileID:       fileID,
		DocumentName: "notes",
	})
	require.NoError(t, err)

	job := waitTerminal(t, h.tracker, jobID)
	require.Equal(t, domain.JobCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Greater(t, job.ChunkCount, 1)
	require.NotEmpty(t, job.CollectionID)
	assert.Contains(t, job.CollectionID, "kb_notes_")

	meta, err := h.manager.Get(context.Background(), job.CollectionID)
	require.NoError(t, err)
	assert.Equal(t, domain.CollectionCompleted, meta.Status)
	assert.Equal(t, job.ChunkCount, meta.ChunkCount)
	assert.Equal(t, 8, meta.Dimension)
	assert.Equal(t, "stub-embed", meta.EmbeddingModel)

	// Every chunk landed, in index order, tagged with document and job.
	records, err := h.vectors.Export(context.Background(), job.CollectionID)
	require.NoError(t, err)
	require.Len(t, records, job.ChunkCount)
	for i, rec := range records {
		assert.Equal(t, i, rec.Metadata.Index)
		assert.Equal(t, "notes", rec.Metadata.DocumentName)
		assert.Equal(t, jobID, rec.Metadata.JobID)
		assert.Equal(t, domain.ChunkID(jobID, i), rec.ID)
		assert.Len(t, rec.Embedding, 8)
	}
}

func TestIngest_EmbedsInBatches(t *testing.T) {
	h := newIngestHarness(8)
	h.ingestor.batchSize = 2
	fileID := h.files.add("notes.txt", longDocument(3000))

	jobID, err := h.ingestor.Ingest(context.Background(), domain.IngestRequest{
		FileID:       fileID,
		DocumentName: "notes",
	})
	require.NoError(t, err)

	job := waitTerminal(t, h.tracker, jobID)
	require.Equal(t, domain.JobCompleted, job.Status)
	expected := (job.ChunkCount + 1) / 2
	assert.Equal(t, expected, h.embedder.batchCalls())
}

func TestIngest_InvalidChunkConfigFailsWithoutCollection(t *testing.T) {
	h := newIngestHarness(8)
	fileID := h.files.add("notes.txt", longDocument(500))

	jobID, err := h.ingestor.Ingest(context.Background(), domain.IngestRequest{
		FileID:       fileID,
		DocumentName: "notes",
		Mode:         domain.ChunkModeManual,
		ChunkSize:    100,
		ChunkOverlap: 150,
	})
	require.NoError(t, err)

	job := waitTerminal(t, h.tracker, jobID)
	require.Equal(t, domain.JobFailed, job.Status)
	assert.Contains(t, job.Message, domain.ErrInvalidChunkConfig.Error())

	// The job failed before any collection was created.
	metas, err := h.manager.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, metas)
	names, err := h.vectors.ListCollections(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestIngest_MissingFileFails(t *testing.T) {
	h := newIngestHarness(8)

	jobID, err := h.ingestor.Ingest(context.Background(), domain.IngestRequest{
		FileID:       "file-404",
		DocumentName: "notes",
	})
	require.NoError(t, err)

	job := waitTerminal(t, h.tracker, jobID)
	require.Equal(t, domain.JobFailed, job.Status)
	assert.Contains(t, job.Message, domain.ErrFileNotFound.Error())
}

func TestIngest_EmptyDocumentFails(t *testing.T) {
	h := newIngestHarness(8)
	fileID := h.files.add("empty.txt", "   \n\t ")

	jobID, err := h.ingestor.Ingest(context.Background(), domain.IngestRequest{
		FileID:       fileID,
		DocumentName: "empty",
	})
	require.NoError(t, err)

	job := waitTerminal(t, h.tracker, jobID)
	require.Equal(t, domain.JobFailed, job.Status)
	assert.Contains(t, job.Message, domain.ErrEmptyDocument.Error())
}

func TestIngest_EmbeddingFailureFails(t *testing.T) {
	h := newIngestHarness(8)
	h.embedder.failWith = errors.New("provider melted")
	fileID := h.files.add("notes.txt", longDocument(500))

	jobID, err := h.ingestor.Ingest(context.Background(), domain.IngestRequest{
		FileID:       fileID,
		DocumentName: "notes",
	})
	require.NoError(t, err)

	job := waitTerminal(t, h.tracker, jobID)
	require.Equal(t, domain.JobFailed, job.Status)
	assert.Contains(t, job.Message, domain.ErrEmbeddingError.Error())

	// Embedding runs before collection creation, so nothing was created.
	metas, err := h.manager.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, metas)
}

func TestIngest_TargetCollectionReuse(t *testing.T) {
	h := newIngestHarness(8)
	ctx := context.Background()

	_, err := h.manager.Create(ctx, "kb_shared_00000000", "shared", "job-0", 8, "stub-embed")
	require.NoError(t, err)

	fileID := h.files.add("notes.txt", longDocument(200))
	jobID, err := h.ingestor.Ingest(ctx, domain.IngestRequest{
		FileID:             fileID,
		DocumentName:       "notes",
		TargetCollectionID: "kb_shared_00000000",
	})
	require.NoError(t, err)

	job := waitTerminal(t, h.tracker, jobID)
	require.Equal(t, domain.JobCompleted, job.Status)
	assert.Equal(t, "kb_shared_00000000", job.CollectionID)

	info, err := h.vectors.Describe(ctx, "kb_shared_00000000")
	require.NoError(t, err)
	assert.Equal(t, job.ChunkCount, info.Count)
}

func TestIngest_TargetCollectionDimensionMismatch(t *testing.T) {
	h := newIngestHarness(8)
	ctx := context.Background()

	_, err := h.manager.Create(ctx, "kb_wide_00000000", "wide", "job-0", 16, "other-model")
	require.NoError(t, err)

	fileID := h.files.add("notes.txt", longDocument(200))
	jobID, err := h.ingestor.Ingest(ctx, domain.IngestRequest{
		FileID:             fileID,
		DocumentName:       "notes",
		TargetCollectionID: "kb_wide_00000000",
	})
	require.NoError(t, err)

	job := waitTerminal(t, h.tracker, jobID)
	require.Equal(t, domain.JobFailed, job.Status)
	assert.Contains(t, job.Message, domain.ErrDimensionMismatch.Error())
}

// seedCollection ingests a document and returns the completed collection name.
func seedCollection(t *testing.T, h *ingestHarness, document string, tokens int) string {
	t.Helper()
	fileID := h.files.add(document+".txt", longDocument(tokens))
	jobID, err := h.ingestor.Ingest(context.Background(), domain.IngestRequest{
		FileID:       fileID,
		DocumentName: document,
	})
	require.NoError(t, err)
	job := waitTerminal(t, h.tracker, jobID)
	require.Equal(t, domain.JobCompleted, job.Status)
	return job.CollectionID
}

func TestCreateIndex_CombinesCollections(t *testing.T) {
	h := newIngestHarness(8)
	ctx := context.Background()

	first := seedCollection(t, h, "alpha", 600)
	second := seedCollection(t, h, "beta", 900)

	firstInfo, err := h.vectors.Describe(ctx, first)
	require.NoError(t, err)
	secondInfo, err := h.vectors.Describe(ctx, second)
	require.NoError(t, err)

	jobID, err := h.ingestor.CreateIndex(ctx, "combined", []string{first, second})
	require.NoError(t, err)

	job := waitTerminal(t, h.tracker, jobID)
	require.Equal(t, domain.JobCompleted, job.Status)
	assert.Equal(t, firstInfo.Count+secondInfo.Count, job.ChunkCount)
	assert.Contains(t, job.CollectionID, "kb_index_combined_")

	meta, err := h.manager.Get(ctx, job.CollectionID)
	require.NoError(t, err)
	assert.Equal(t, domain.CollectionCompleted, meta.Status)

	// Every copied chunk records the collection it came from.
	records, err := h.vectors.Export(ctx, job.CollectionID)
	require.NoError(t, err)
	require.Len(t, records, job.ChunkCount)
	sources := make(map[string]int)
	for _, rec := range records {
		sources[rec.Metadata.SourceCollection]++
	}
	assert.Equal(t, firstInfo.Count, sources[first])
	assert.Equal(t, secondInfo.Count, sources[second])
}

func TestCreateIndex_Validation(t *testing.T) {
	h := newIngestHarness(8)
	ctx := context.Background()

	completed := seedCollection(t, h, "alpha", 600)
	_, err := h.manager.Create(ctx, "kb_pending_00000000", "pending", "job-0", 8, "stub-embed")
	require.NoError(t, err)
	_, err = h.manager.Create(ctx, "kb_wide_00000000", "wide", "job-0", 16, "other-model")
	require.NoError(t, err)
	require.NoError(t, h.manager.MarkCompleted(ctx, "kb_wide_00000000", 0))

	t.Run("empty name", func(t *testing.T) {
		_, err := h.ingestor.CreateIndex(ctx, " ", []string{completed})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("no members", func(t *testing.T) {
		_, err := h.ingestor.CreateIndex(ctx, "combined", nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("too many members", func(t *testing.T) {
		members := make([]string, 6)
		for i := range members {
			members[i] = completed
		}
		_, err := h.ingestor.CreateIndex(ctx, "combined", members)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown member", func(t *testing.T) {
		_, err := h.ingestor.CreateIndex(ctx, "combined", []string{"kb_missing_00000000"})
		assert.ErrorIs(t, err, domain.ErrCollectionNotFound)
	})

	t.Run("pending member", func(t *testing.T) {
		_, err := h.ingestor.CreateIndex(ctx, "combined", []string{"kb_pending_00000000"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("mismatched dimensions", func(t *testing.T) {
		_, err := h.ingestor.CreateIndex(ctx, "combined", []string{completed, "kb_wide_00000000"})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})
}

func TestUpload_RecordsCompletedJob(t *testing.T) {
	h := newIngestHarness(8)
	ctx := context.Background()

	fileID, jobID, err := h.ingestor.Upload(ctx, "notes.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	require.NotEmpty(t, fileID)

	job, err := h.tracker.Get(jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobKindUpload, job.Kind)
	assert.Equal(t, domain.JobCompleted, job.Status)
	assert.Equal(t, "notes.txt", job.Name)

	data, filename, err := h.files.Read(ctx, fileID)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "notes.txt", filename)
}

func TestUpload_RequiresFilename(t *testing.T) {
	h := newIngestHarness(8)

	_, _, err := h.ingestor.Upload(context.Background(), "  ", strings.NewReader("hello"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
