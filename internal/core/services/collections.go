package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
	"github.com/custodia-labs/kb-cli/internal/core/ports/driven"
	"github.com/custodia-labs/kb-cli/internal/core/ports/driving"
	"github.com/custodia-labs/kb-cli/internal/logger"
)

// Ensure CollectionManager implements the interface.
var _ driving.CollectionManager = (*CollectionManager)(nil)

// CollectionNamePrefix marks collections owned by this system in the store.
const CollectionNamePrefix = "kb_"

// maxCollectionNameLen bounds derived names to what vector stores accept.
const maxCollectionNameLen = 63

// CollectionManager owns collection identity and lifecycle. It is the sole
// writer of collection metadata and the only place collection names are
// formatted, so creation and lookup can never drift apart.
type CollectionManager struct {
	vectors driven.VectorStore
	meta    driven.CollectionStore
}

// NewCollectionManager creates a collection manager.
func NewCollectionManager(vectors driven.VectorStore, meta driven.CollectionStore) *CollectionManager {
	return &CollectionManager{
		vectors: vectors,
		meta:    meta,
	}
}

var nonNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// sanitizeName maps an arbitrary document name onto the store's name
// alphabet: disallowed runes become underscores, the ends are trimmed to
// alphanumerics, and the length is bounded to 3..63.
func sanitizeName(name string) string {
	name = nonNameChars.ReplaceAllString(name, "_")
	name = strings.TrimLeftFunc(name, func(r rune) bool { return !isAlnum(r) })
	name = strings.TrimRightFunc(name, func(r rune) bool { return !isAlnum(r) })
	if len(name) < 3 {
		name = (name + "___")[:3]
	}
	if len(name) > maxCollectionNameLen {
		name = name[:maxCollectionNameLen]
	}
	return name
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// collectionSuffixLen is how much of the job id is kept in derived names.
const collectionSuffixLen = 8

// DeriveName derives the collection name for a document and its ingestion
// job. The job id suffix keeps two uploads of identically named documents
// from colliding, so the document part is capped first and the suffix is
// never truncated away.
func (m *CollectionManager) DeriveName(documentName, jobID string) string {
	suffix := sanitizeName(jobID)
	if len(suffix) > collectionSuffixLen {
		suffix = suffix[:collectionSuffixLen]
	}

	doc := sanitizeName(documentName)
	if max := maxCollectionNameLen - len(CollectionNamePrefix) - len(suffix) - 1; len(doc) > max {
		doc = sanitizeName(doc[:max])
	}

	return fmt.Sprintf("%s%s_%s", CollectionNamePrefix, doc, suffix)
}

// Create creates the collection in the vector store and records its
// metadata with status pending. The dimension is fixed here for the life of
// the collection.
func (m *CollectionManager) Create(ctx context.Context, name, documentName, jobID string, dimension int, model string) (*domain.CollectionMeta, error) {
	if err := m.vectors.CreateCollection(ctx, name, dimension); err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}

	meta := domain.CollectionMeta{
		Name:           name,
		DocumentName:   documentName,
		JobID:          jobID,
		Dimension:      dimension,
		EmbeddingModel: model,
		Status:         domain.CollectionPending,
		CreatedAt:      time.Now().UTC(),
	}
	if err := m.meta.Save(ctx, meta); err != nil {
		return nil, fmt.Errorf("save collection metadata %s: %w", name, err)
	}

	logger.Info("Created collection %s (dimension %d)", name, dimension)
	return &meta, nil
}

// WriteChunks validates every vector against the collection's fixed
// dimension and upserts the batch. A mismatched vector fails with
// domain.ErrDimensionMismatch before anything reaches the store.
func (m *CollectionManager) WriteChunks(ctx context.Context, name string, records []driven.VectorRecord) error {
	meta, err := m.Get(ctx, name)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if len(rec.Embedding) != meta.Dimension {
			return fmt.Errorf("%w: collection %s expects %d, got %d",
				domain.ErrDimensionMismatch, name, meta.Dimension, len(rec.Embedding))
		}
	}

	if err := m.vectors.Upsert(ctx, name, records); err != nil {
		return fmt.Errorf("upsert into %s: %w", name, err)
	}
	return nil
}

// MarkCompleted records a finished ingestion: final chunk count, completed
// status and completion timestamp.
func (m *CollectionManager) MarkCompleted(ctx context.Context, name string, chunkCount int) error {
	meta, err := m.Get(ctx, name)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	meta.ChunkCount = chunkCount
	meta.Status = domain.CollectionCompleted
	meta.CompletedAt = &now
	return m.meta.Save(ctx, *meta)
}

// MarkFailed records an aborted ingestion. The partially written collection
// is kept for inspection rather than deleted.
func (m *CollectionManager) MarkFailed(ctx context.Context, name string) error {
	meta, err := m.Get(ctx, name)
	if err != nil {
		return err
	}
	meta.Status = domain.CollectionFailed
	return m.meta.Save(ctx, *meta)
}

// Get returns the metadata record for a collection.
func (m *CollectionManager) Get(ctx context.Context, name string) (*domain.CollectionMeta, error) {
	meta, err := m.meta.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// ListAll returns metadata for every known collection.
func (m *CollectionManager) ListAll(ctx context.Context) ([]domain.CollectionMeta, error) {
	return m.meta.List(ctx)
}

// Delete removes the collection from the vector store and its metadata.
// A collection already absent from the store still has its metadata removed.
func (m *CollectionManager) Delete(ctx context.Context, name string) error {
	if _, err := m.meta.Get(ctx, name); err != nil {
		return err
	}

	if err := m.vectors.DeleteCollection(ctx, name); err != nil {
		logger.Warn("Vector store delete of %s failed: %v", name, err)
	}
	if err := m.meta.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete collection metadata %s: %w", name, err)
	}

	logger.Info("Deleted collection %s", name)
	return nil
}
