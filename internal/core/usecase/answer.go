package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/kb-orchestrator/internal/core/domain"
	"github.com/kirillkom/kb-orchestrator/internal/core/ports"
)

// AnswerQueryUseCase runs the full pipeline: language classification,
// partition routing, two-tier retrieval, answer synthesis and delivery
// dispatch. All state is immutable after construction; each call is
// independent.
type AnswerQueryUseCase struct {
	routing   RoutingConfig
	detector  ports.LanguageDetector
	retriever ports.PassageRetriever
	rag       ports.RetrieveGenerator
	generator ports.AnswerGenerator
	invoker   ports.ModelInvoker
	webhook   ports.WebhookSender
	events    ports.EventPublisher
}

func NewAnswerQueryUseCase(
	routing RoutingConfig,
	detector ports.LanguageDetector,
	retriever ports.PassageRetriever,
	rag ports.RetrieveGenerator,
	generator ports.AnswerGenerator,
	invoker ports.ModelInvoker,
	webhook ports.WebhookSender,
	events ports.EventPublisher,
) *AnswerQueryUseCase {
	return &AnswerQueryUseCase{
		routing:   routing,
		detector:  detector,
		retriever: retriever,
		rag:       rag,
		generator: generator,
		invoker:   invoker,
		webhook:   webhook,
		events:    events,
	}
}

func (uc *AnswerQueryUseCase) Ask(ctx context.Context, q domain.Query) (*domain.DispatchOutcome, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate query", errors.New("query text is required"))
	}

	jobID := q.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	routing, kbID, err := uc.routing.resolve(uc.detector, domain.Query{
		Text:        text,
		PartitionID: q.PartitionID,
		Language:    q.Language,
		TopK:        q.TopK,
		ScoreFloor:  q.ScoreFloor,
	})
	if err != nil {
		return nil, err
	}

	outcome, err := uc.retrieveOutcome(ctx, kbID, text, routing)
	if err != nil {
		return nil, err
	}

	answer, err := uc.synthesize(ctx, text, outcome.Passages, outcome.PrebakedAnswer)
	if err != nil {
		return nil, err
	}

	result := &domain.Result{
		JobID:      jobID,
		Prompt:     text,
		Answer:     answer,
		Citations:  buildCitations(outcome.Passages),
		Mode:       outcome.Mode,
		TopK:       routing.TopK,
		ScoreFloor: routing.ScoreFloor,
		TS:         time.Now().Unix(),
	}

	dispatched := uc.dispatch(ctx, result, q.CallbackURL)
	dispatched.Routing = routing
	uc.publishCompleted(ctx, result)
	return dispatched, nil
}

// retrieveOutcome is the two-tier strategy: lean retrieval with score and
// language filtering first; a backend failure there transitions once to the
// backend's own retrieve-and-generate. Failure of that fallback is fatal.
// Caller cancellation is propagated, never converted into a fallback.
func (uc *AnswerQueryUseCase) retrieveOutcome(
	ctx context.Context,
	knowledgeBaseID, text string,
	routing domain.SearchRouting,
) (domain.RetrievalOutcome, error) {
	passages, err := uc.retriever.Retrieve(ctx, knowledgeBaseID, text, routing.TopK)
	if err == nil {
		passages = filterByScore(passages, routing.ScoreFloor)
		passages = filterByLanguage(passages, routing.PartitionID, routing.Language)
		passages = tagPartition(passages, routing.PartitionID)
		return domain.RetrievalOutcome{Mode: domain.ModeRetrieval, Passages: passages}, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.RetrievalOutcome{}, err
	}

	slog.Warn("retrieval_fallback",
		"partition", routing.PartitionID,
		"error", err,
	)
	prebaked, references, ragErr := uc.rag.RetrieveAndGenerate(ctx, knowledgeBaseID, text)
	if ragErr != nil {
		return domain.RetrievalOutcome{}, domain.WrapError(domain.ErrBackend, "retrieve and generate", ragErr)
	}
	return domain.RetrievalOutcome{
		Mode:           domain.ModeRAG,
		Passages:       tagPartition(references, routing.PartitionID),
		PrebakedAnswer: prebaked,
	}, nil
}

// synthesize builds the grounded prompt and invokes the primary generation
// capability, falling back to direct model invocation on any primary error.
// With nothing to ground on, synthesis is skipped and the fixed no-result
// sentence is returned; that is a terminal success path.
func (uc *AnswerQueryUseCase) synthesize(
	ctx context.Context,
	question string,
	passages []domain.Passage,
	prebaked string,
) (string, error) {
	if len(passages) == 0 && strings.TrimSpace(prebaked) == "" {
		return noRelevantAnswer, nil
	}

	prompt := buildSynthesisPrompt(question, passages, prebaked)
	answer, err := uc.generator.GenerateFromPrompt(ctx, prompt)
	if err == nil {
		return strings.TrimSpace(answer), nil
	}

	slog.Warn("synthesis_fallback", "error", err)
	answer, invokeErr := uc.invoker.InvokeModel(ctx, prompt)
	if invokeErr != nil {
		return "", domain.WrapError(domain.ErrBackend, "synthesize answer", errors.Join(err, invokeErr))
	}
	return strings.TrimSpace(answer), nil
}

// dispatch performs exactly-once visible delivery: the result either goes out
// via the callback or is returned inline. A failed delivery degrades to
// inline with a truncated error note and is never retried.
func (uc *AnswerQueryUseCase) dispatch(ctx context.Context, result *domain.Result, callbackURL string) *domain.DispatchOutcome {
	inline := &domain.DispatchOutcome{JobID: result.JobID, Result: result}
	if callbackURL == "" || uc.webhook == nil {
		return inline
	}

	body, err := json.Marshal(result)
	if err != nil {
		result.CallbackError = truncateNote(err.Error())
		return inline
	}
	if err := uc.webhook.Send(ctx, callbackURL, body); err != nil {
		result.CallbackError = truncateNote(err.Error())
		return inline
	}
	return &domain.DispatchOutcome{Accepted: true, JobID: result.JobID, Result: result}
}

func (uc *AnswerQueryUseCase) publishCompleted(ctx context.Context, result *domain.Result) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishQueryCompleted(ctx, result); err != nil {
		slog.Warn("publish_query_completed", "job_id", result.JobID, "error", err)
	}
}
