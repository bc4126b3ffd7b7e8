package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
	"github.com/custodia-labs/kb-cli/internal/core/ports/driven"
	"github.com/custodia-labs/kb-cli/internal/core/ports/driving"
	"github.com/custodia-labs/kb-cli/internal/logger"
)

// Ensure Querier implements the interface.
var _ driving.Querier = (*Querier)(nil)

// Querier answers questions against the knowledge base. A question is
// embedded once and searched either in one named collection or fanned out
// across every queryable collection, with the per-collection results merged
// into a single ranking.
type Querier struct {
	embedder    driven.EmbeddingService
	vectors     driven.VectorStore
	collections *CollectionManager
}

// NewQuerier creates a query engine.
func NewQuerier(embedder driven.EmbeddingService, vectors driven.VectorStore, collections *CollectionManager) *Querier {
	return &Querier{
		embedder:    embedder,
		vectors:     vectors,
		collections: collections,
	}
}

// Query embeds the question and returns the top matches.
//
// With an explicit collection the search is restricted to it and a missing
// collection is an error. Without one the search fans out over all
// completed collections whose dimension matches the active model; stale or
// unreadable collections are skipped, not fatal.
func (q *Querier) Query(ctx context.Context, req domain.QueryRequest) ([]domain.Match, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	topK := req.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	vector, err := q.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %v", domain.ErrEmbeddingError, err)
	}

	targets, err := q.resolveTargets(ctx, req.CollectionID, len(vector))
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, nil
	}

	matches, err := q.search(ctx, targets, vector, topK, req.CollectionID != "")
	if err != nil {
		return nil, err
	}

	rankMatches(matches)
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// resolveTargets selects the collections a query runs against.
func (q *Querier) resolveTargets(ctx context.Context, collectionID string, dimension int) ([]domain.CollectionMeta, error) {
	if collectionID != "" {
		meta, err := q.collections.Get(ctx, collectionID)
		if err != nil {
			return nil, err
		}
		return []domain.CollectionMeta{*meta}, nil
	}

	all, err := q.collections.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	targets := make([]domain.CollectionMeta, 0, len(all))
	for _, meta := range all {
		if meta.Status != domain.CollectionCompleted {
			continue
		}
		if meta.Dimension != dimension {
			logger.Debug("Skipping %s: dimension %d, query has %d", meta.Name, meta.Dimension, dimension)
			continue
		}
		targets = append(targets, meta)
	}
	return targets, nil
}

// search queries every target concurrently and pools the raw matches.
//
// In fan-out mode a failing collection is logged and skipped so one stale
// entry cannot hide results from the others; an unreachable store still
// aborts the whole query. A targeted search propagates any failure.
func (q *Querier) search(ctx context.Context, targets []domain.CollectionMeta, vector []float32, topK int, targeted bool) ([]domain.Match, error) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		matches []domain.Match
		fatal   error
	)

	for _, meta := range targets {
		wg.Add(1)
		go func(meta domain.CollectionMeta) {
			defer wg.Done()

			found, err := q.vectors.Query(ctx, meta.Name, vector, topK)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if targeted || errors.Is(err, domain.ErrStoreUnavailable) {
					if fatal == nil {
						fatal = fmt.Errorf("query %s: %w", meta.Name, err)
					}
					return
				}
				logger.Warn("Skipping collection %s: %v", meta.Name, err)
				return
			}
			for _, vm := range found {
				matches = append(matches, domain.Match{
					ChunkID:             vm.ID,
					Text:                vm.Text,
					Score:               vm.Score,
					Collection:          meta.Name,
					CollectionCreatedAt: meta.CreatedAt,
					Metadata:            vm.Metadata,
				})
			}
		}(meta)
	}
	wg.Wait()

	if fatal != nil {
		return nil, fatal
	}
	return matches, nil
}

// rankMatches orders matches by score, best first. Ties break on collection
// age then chunk index so the ranking is stable across runs regardless of
// which goroutine reported first.
func rankMatches(matches []domain.Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if !matches[i].CollectionCreatedAt.Equal(matches[j].CollectionCreatedAt) {
			return matches[i].CollectionCreatedAt.Before(matches[j].CollectionCreatedAt)
		}
		return matches[i].Metadata.Index < matches[j].Metadata.Index
	})
}
