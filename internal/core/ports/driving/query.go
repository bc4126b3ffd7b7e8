package driving

import (
	"context"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
)

// Querier answers natural-language questions against the knowledge base.
type Querier interface {
	// Query embeds the question once, fans it out across the target
	// collections and returns the merged global top-k matches.
	Query(ctx context.Context, req domain.QueryRequest) ([]domain.Match, error)
}
