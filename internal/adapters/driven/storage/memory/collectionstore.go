// Package memory provides in-process metadata storage.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
	"github.com/custodia-labs/kb-cli/internal/core/ports/driven"
)

// Ensure CollectionStore implements the interface.
var _ driven.CollectionStore = (*CollectionStore)(nil)

// CollectionStore keeps collection metadata in a map. It backs tests; real
// deployments use the SQLite store so metadata survives restarts.
type CollectionStore struct {
	mu    sync.RWMutex
	metas map[string]domain.CollectionMeta
}

// NewCollectionStore creates an empty in-memory collection store.
func NewCollectionStore() *CollectionStore {
	return &CollectionStore{
		metas: make(map[string]domain.CollectionMeta),
	}
}

// Save stores or updates a metadata record.
func (s *CollectionStore) Save(_ context.Context, meta domain.CollectionMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metas[meta.Name] = meta
	return nil
}

// Get retrieves a record by collection name.
func (s *CollectionStore) Get(_ context.Context, name string) (*domain.CollectionMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, ok := s.metas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	return &meta, nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *CollectionStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.metas, name)
	return nil
}

// List returns all records ordered by creation time, name as tiebreak.
func (s *CollectionStore) List(_ context.Context) ([]domain.CollectionMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metas := make([]domain.CollectionMeta, 0, len(s.metas))
	for _, meta := range s.metas {
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool {
		if !metas[i].CreatedAt.Equal(metas[j].CreatedAt) {
			return metas[i].CreatedAt.Before(metas[j].CreatedAt)
		}
		return metas[i].Name < metas[j].Name
	})
	return metas, nil
}
