package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
	"github.com/custodia-labs/kb-cli/internal/core/ports/driving"
	"github.com/custodia-labs/kb-cli/internal/logger"
)

// Ensure Reconciler implements the interface.
var _ driving.Reconciler = (*Reconciler)(nil)

// Reconciler compares recorded collection metadata against the vector store
// and the active embedding model, and removes what no longer fits. It runs
// on startup and on demand so a model switch cannot silently serve stale
// vectors.
type Reconciler struct {
	collections *CollectionManager
	dimension   int
	model       string
}

// NewReconciler creates a compatibility guard for the given model identity.
func NewReconciler(collections *CollectionManager, dimension int, model string) *Reconciler {
	return &Reconciler{
		collections: collections,
		dimension:   dimension,
		model:       model,
	}
}

// Reconcile sweeps every recorded collection.
//
// A collection missing from the vector store has its metadata dropped. One
// whose dimension disagrees with the active model is incompatible and gets
// deleted outright. With DryRun set the report is produced but nothing is
// touched.
func (r *Reconciler) Reconcile(ctx context.Context, opts domain.ReconcileOptions) (*domain.ReconcileReport, error) {
	metas, err := r.collections.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	report := &domain.ReconcileReport{}
	for _, meta := range metas {
		report.Checked++

		info, err := r.collections.vectors.Describe(ctx, meta.Name)
		switch {
		case errors.Is(err, domain.ErrCollectionNotFound):
			report.Missing = append(report.Missing, meta.Name)
			logger.Warn("Collection %s is recorded but absent from the store", meta.Name)
			if !opts.DryRun {
				if err := r.collections.meta.Delete(ctx, meta.Name); err != nil {
					return nil, fmt.Errorf("drop metadata for %s: %w", meta.Name, err)
				}
			}
			continue
		case err != nil:
			return nil, fmt.Errorf("describe %s: %w", meta.Name, err)
		}

		if info.Dimension == r.dimension && meta.Dimension == r.dimension {
			continue
		}

		report.Incompatible = append(report.Incompatible, meta.Name)
		logger.Warn("Collection %s has dimension %d, model %s needs %d",
			meta.Name, info.Dimension, r.model, r.dimension)
		if opts.DryRun {
			continue
		}
		if err := r.collections.Delete(ctx, meta.Name); err != nil {
			return nil, fmt.Errorf("delete incompatible %s: %w", meta.Name, err)
		}
		report.Deleted = append(report.Deleted, meta.Name)
	}

	logger.Debug("Reconcile: checked %d, incompatible %d, missing %d, deleted %d",
		report.Checked, len(report.Incompatible), len(report.Missing), len(report.Deleted))
	return report, nil
}
