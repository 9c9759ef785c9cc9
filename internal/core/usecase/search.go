package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/kirillkom/kb-orchestrator/internal/core/domain"
	"github.com/kirillkom/kb-orchestrator/internal/core/ports"
)

// SearchUseCase is the retrieval-only surface behind kb.search: it routes,
// retrieves from the lean tier and applies the score and language filters,
// without synthesis or fallback.
type SearchUseCase struct {
	routing   RoutingConfig
	detector  ports.LanguageDetector
	retriever ports.PassageRetriever
}

func NewSearchUseCase(
	routing RoutingConfig,
	detector ports.LanguageDetector,
	retriever ports.PassageRetriever,
) *SearchUseCase {
	return &SearchUseCase{
		routing:   routing,
		detector:  detector,
		retriever: retriever,
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, q domain.Query) (*domain.SearchResult, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate search", errors.New("query text is required"))
	}

	q.Text = text
	routing, kbID, err := uc.routing.resolve(uc.detector, q)
	if err != nil {
		return nil, err
	}

	passages, err := uc.retriever.Retrieve(ctx, kbID, text, routing.TopK)
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackend, "search knowledge base", err)
	}
	passages = filterByScore(passages, routing.ScoreFloor)
	passages = filterByLanguage(passages, routing.PartitionID, routing.Language)
	passages = tagPartition(passages, routing.PartitionID)

	return &domain.SearchResult{Content: passages, Routing: routing}, nil
}
