package ports

import (
	"context"

	"github.com/kirillkom/kb-orchestrator/internal/core/domain"
)

// PassageRetriever is the lean retrieval capability of the knowledge backend.
// topK bounds the number of results requested from the backend; an empty
// result list is success, never an error.
type PassageRetriever interface {
	Retrieve(ctx context.Context, knowledgeBaseID, query string, topK int) ([]domain.Passage, error)
}

// RetrieveGenerator is the backend's own retrieval-with-generation capability,
// used as the fallback tier when lean retrieval is down. It returns the
// generated answer text and its supporting reference passages.
type RetrieveGenerator interface {
	RetrieveAndGenerate(ctx context.Context, knowledgeBaseID, query string) (string, []domain.Passage, error)
}

// AnswerGenerator is the primary generation capability for answer synthesis.
type AnswerGenerator interface {
	GenerateFromPrompt(ctx context.Context, prompt string) (string, error)
}

// ModelInvoker is the last-resort direct model invocation used when the
// primary generation capability fails.
type ModelInvoker interface {
	InvokeModel(ctx context.Context, prompt string) (string, error)
}

// LanguageDetector reports the raw ISO 639-1 code of the dominant language,
// or ok=false when nothing can be detected. Must be deterministic.
type LanguageDetector interface {
	DetectCode(text string) (code string, ok bool)
}

// WebhookSender transmits the already-serialized result body to a callback
// URL, signing it when a shared secret is configured.
type WebhookSender interface {
	Send(ctx context.Context, callbackURL string, body []byte) error
}

// EventPublisher emits completed-query events. Publishing is fire-and-forget
// from the orchestrator's perspective.
type EventPublisher interface {
	PublishQueryCompleted(ctx context.Context, result *domain.Result) error
}

// ResultRepository persists and reads completed query results.
type ResultRepository interface {
	EnsureSchema(ctx context.Context) error
	Save(ctx context.Context, result *domain.Result) error
	GetByJobID(ctx context.Context, jobID string) (*domain.Result, error)
}
