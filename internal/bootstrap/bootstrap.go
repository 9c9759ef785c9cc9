package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/kb-orchestrator/internal/config"
	"github.com/kirillkom/kb-orchestrator/internal/core/domain"
	"github.com/kirillkom/kb-orchestrator/internal/core/usecase"
	"github.com/kirillkom/kb-orchestrator/internal/infrastructure/langdetect"
	"github.com/kirillkom/kb-orchestrator/internal/infrastructure/llm/modelruntime"
	"github.com/kirillkom/kb-orchestrator/internal/infrastructure/queue/nats"
	"github.com/kirillkom/kb-orchestrator/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/kb-orchestrator/internal/infrastructure/resilience"
	"github.com/kirillkom/kb-orchestrator/internal/infrastructure/retrieval/kbruntime"
	"github.com/kirillkom/kb-orchestrator/internal/infrastructure/webhook"
)

type App struct {
	Config config.Config

	Bus  *nats.Bus
	Repo *postgres.ResultRepository

	AskUC    *usecase.AnswerQueryUseCase
	SearchUC *usecase.SearchUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewResultRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	bus, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init event bus: %w", err)
	}

	routing, detector, kbClient, err := searchStack(cfg)
	if err != nil {
		return nil, err
	}
	modelClient := modelruntime.New(cfg.ModelRuntimeURL, cfg.ModelID, modelruntime.Options{
		Timeout:  time.Duration(cfg.GenerateTimeoutSeconds) * time.Second,
		Executor: resilience.NewExecutor(resilience.DefaultPolicy()),
	})
	sender := webhook.NewSender(webhook.Options{
		Timeout: time.Duration(cfg.WebhookTimeoutSeconds) * time.Second,
		Secret:  cfg.WebhookSecret,
	})

	askUC := usecase.NewAnswerQueryUseCase(routing, detector, kbClient, kbClient, modelClient, modelClient, sender, bus)
	searchUC := usecase.NewSearchUseCase(routing, detector, kbClient)

	return &App{
		Config: cfg,
		Bus:    bus,
		Repo:   repo,

		AskUC:    askUC,
		SearchUC: searchUC,

		closeFn: func() {
			bus.Close()
			_ = db.Close()
		},
	}, nil
}

// NewSearchOnly wires just the retrieval path, without persistence, bus or
// generation. The mcp process serves kb.search from this.
func NewSearchOnly(cfg config.Config) (*usecase.SearchUseCase, error) {
	if cfg.KBGeneralID == "" || cfg.KBSupportID == "" {
		return nil, errors.New("KB_GENERAL_ID and KB_SUPPORT_ID are required")
	}

	routing, detector, kbClient, err := searchStack(cfg)
	if err != nil {
		return nil, err
	}
	return usecase.NewSearchUseCase(routing, detector, kbClient), nil
}

func searchStack(cfg config.Config) (usecase.RoutingConfig, *langdetect.Detector, *kbruntime.Client, error) {
	// A broken override file must not silently fall back.
	policy, err := config.LoadRoutingPolicy(cfg.RoutingConfigPath)
	if err != nil {
		return usecase.RoutingConfig{}, nil, nil, fmt.Errorf("load routing policy: %w", err)
	}

	routing := usecase.RoutingConfig{
		Policy: policy,
		Partitions: map[domain.PartitionID]string{
			domain.PartitionGeneral: cfg.KBGeneralID,
			domain.PartitionSupport: cfg.KBSupportID,
		},
		DefaultTopK:       cfg.TopKDefault,
		DefaultScoreFloor: cfg.ScoreFloorDefault,
	}
	detector := langdetect.New()
	kbClient := kbruntime.New(cfg.KBRuntimeURL, kbruntime.Options{
		Timeout:  time.Duration(cfg.RetrieveTimeoutSeconds) * time.Second,
		Executor: resilience.NewExecutor(resilience.DefaultPolicy()),
	})
	return routing, detector, kbClient, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
