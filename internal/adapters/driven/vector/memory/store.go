// Package memory provides an in-process vector store.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
	"github.com/custodia-labs/kb-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is a map-backed vector store with brute-force cosine search. It
// backs tests and small local knowledge bases where running Qdrant would be
// overkill. Contents do not survive the process.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	dimension int
	records   map[string]driven.VectorRecord
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		collections: make(map[string]*collection),
	}
}

// CreateCollection creates a collection with a fixed dimension. Re-creating
// an existing collection with the same dimension is a no-op.
func (s *Store) CreateCollection(_ context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.collections[name]; ok {
		if existing.dimension != dimension {
			return fmt.Errorf("%w: collection %s exists with dimension %d",
				domain.ErrDimensionMismatch, name, existing.dimension)
		}
		return nil
	}

	s.collections[name] = &collection{
		dimension: dimension,
		records:   make(map[string]driven.VectorRecord),
	}
	return nil
}

// DeleteCollection removes a collection and its vectors.
func (s *Store) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	delete(s.collections, name)
	return nil
}

// ListCollections returns all collection names, sorted.
func (s *Store) ListCollections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Describe probes a collection's dimension and record count.
func (s *Store) Describe(_ context.Context, name string) (*driven.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	return &driven.CollectionInfo{
		Name:      name,
		Dimension: col.dimension,
		Count:     len(col.records),
	}, nil
}

// Upsert writes records into a collection. The whole batch is validated
// before the first write so a bad vector leaves the collection untouched.
func (s *Store) Upsert(_ context.Context, name string, records []driven.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}

	for _, rec := range records {
		if len(rec.Embedding) != col.dimension {
			return fmt.Errorf("%w: collection %s expects %d, got %d",
				domain.ErrDimensionMismatch, name, col.dimension, len(rec.Embedding))
		}
	}
	for _, rec := range records {
		col.records[rec.ID] = rec
	}
	return nil
}

// Query returns up to topK nearest records by cosine similarity.
func (s *Store) Query(_ context.Context, name string, vector []float32, topK int) ([]driven.VectorMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	if len(vector) != col.dimension {
		return nil, fmt.Errorf("%w: collection %s expects %d, got %d",
			domain.ErrDimensionMismatch, name, col.dimension, len(vector))
	}

	matches := make([]driven.VectorMatch, 0, len(col.records))
	for _, rec := range col.records {
		matches = append(matches, driven.VectorMatch{
			ID:       rec.ID,
			Score:    cosine(vector, rec.Embedding),
			Text:     rec.Text,
			Metadata: rec.Metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Export returns every record of a collection, ordered by chunk index.
func (s *Store) Export(_ context.Context, name string) ([]driven.VectorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}

	records := make([]driven.VectorRecord, 0, len(col.records))
	for _, rec := range col.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Metadata.Index != records[j].Metadata.Index {
			return records[i].Metadata.Index < records[j].Metadata.Index
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// cosine computes cosine similarity between two equal-length vectors.
func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
