package ports

import (
	"context"

	"github.com/kirillkom/kb-orchestrator/internal/core/domain"
)

// QueryService is the inbound contract for the full ask pipeline:
// classify, route, retrieve, synthesize, dispatch.
type QueryService interface {
	Ask(ctx context.Context, query domain.Query) (*domain.DispatchOutcome, error)
}

// SearchService is the inbound contract for retrieval-only search
// (the kb.search surface): routing and filtering without synthesis.
type SearchService interface {
	Search(ctx context.Context, query domain.Query) (*domain.SearchResult, error)
}

// ResultReader is the inbound read model for persisted query results.
type ResultReader interface {
	GetByJobID(ctx context.Context, jobID string) (*domain.Result, error)
}
