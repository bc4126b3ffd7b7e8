package driving

import (
	"context"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
)

// CollectionManager exposes collection metadata and explicit lifecycle
// operations to user-facing adapters. Callers never format collection names
// themselves; naming stays behind this interface.
type CollectionManager interface {
	// Get returns the metadata record for a collection.
	Get(ctx context.Context, name string) (*domain.CollectionMeta, error)

	// ListAll returns metadata for every known collection.
	ListAll(ctx context.Context) ([]domain.CollectionMeta, error)

	// Delete removes a collection from the vector store and its metadata.
	Delete(ctx context.Context, name string) error
}

// Reconciler keeps the vector store and the active embedding model
// consistent by removing permanently unqueryable collections.
type Reconciler interface {
	// Reconcile probes every known collection and deletes (or, on dry
	// runs, reports) those whose dimension no longer matches the model.
	Reconcile(ctx context.Context, opts domain.ReconcileOptions) (*domain.ReconcileReport, error)
}
