package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/campus-notice-assistant/internal/config"
	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
	"github.com/kirillkom/campus-notice-assistant/internal/core/usecase"
	"github.com/kirillkom/campus-notice-assistant/internal/infrastructure/llm/openai"
	"github.com/kirillkom/campus-notice-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/campus-notice-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/campus-notice-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/campus-notice-assistant/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/campus-notice-assistant/internal/observability/tracing"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue   *nats.Queue
	Repo    *postgres.NoticeRepository
	ChatUC  *usecase.ChatUseCase
	IndexUC *usecase.IndexNoticeUseCase

	closeFn func()
}

// New builds every client once and wires them into the use cases. The caller
// owns the returned App and must Close it.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	shutdownTracing, err := tracing.Setup(ctx, cfg.ServiceName, cfg.OTelEnabled, cfg.OTelEndpoint)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	keywords, err := config.LoadGuardrailKeywords(cfg.GuardrailKeywordsPath)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewNoticeRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: newExecutor(cfg, resilience.DependencyEvents, logger.With("dependency", "nats")),
		Logger:             logger.With("component", "nats"),
	})
	if err != nil {
		_ = db.Close()
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection,
		qdrant.WithResilience(newExecutor(cfg, resilience.DependencyVectorIndex, logger.With("dependency", "qdrant"))),
	)

	llmClient := openai.New(llmClientConfig(cfg.LLM),
		openai.WithResilience(newExecutor(cfg, resilience.DependencyLLM, logger.With("dependency", "llm"))),
		openai.WithLogger(logger.With("component", "llm")),
	)
	verifierClient := openai.New(llmClientConfig(cfg.Verifier),
		openai.WithResilience(newExecutor(cfg, resilience.DependencyLLM, logger.With("dependency", "verifier"))),
		openai.WithLogger(logger.With("component", "verifier")),
	)
	embedder := openai.NewEmbedder(llmClient)

	chatUC := usecase.NewChatUseCase(
		repo,
		vectorDB,
		embedder,
		openai.NewChatCompleter(llmClient),
		openai.NewChatCompleter(verifierClient),
		usecase.WithChatLimits(chatLimits(cfg.Chat)),
		usecase.WithGuardrail(usecase.NewGuardrail(usecase.GuardrailKeywords{
			Abusive:    keywords.Abusive,
			OutOfScope: keywords.OutOfScope,
		})),
		usecase.WithChatLogger(logger.With("component", "chat")),
	)
	indexUC := usecase.NewIndexNoticeUseCase(repo, embedder, vectorDB, queue)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:   queue,
		Repo:    repo,
		ChatUC:  chatUC,
		IndexUC: indexUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Warn("tracing_shutdown_failed", "error", err)
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newExecutor(cfg config.Config, dep resilience.Dependency, logger *slog.Logger) *resilience.Executor {
	return resilience.NewExecutor(executorPolicy(cfg, dep), resilience.WithLogger(logger))
}

func executorPolicy(cfg config.Config, dep resilience.Dependency) resilience.Config {
	return resilience.ConfigFor(dep).WithOverrides(cfg.ResilienceRetryMaxAttempts, cfg.ResilienceBreakerEnabled)
}

// llmClientConfig blanks the base URL of a disabled backend so its facades
// report Enabled() == false.
func llmClientConfig(c config.LLMConfig) openai.Config {
	out := openai.Config{
		BaseURL:        c.APIBase,
		APIKey:         c.APIKey,
		ChatModel:      c.ChatModel,
		EmbedModel:     c.EmbedModel,
		ChatPath:       c.ChatPath,
		EmbedPath:      c.EmbedPath,
		Timeout:        c.Timeout,
		RateLimitRPS:   c.RateLimitRPS,
		RateLimitBurst: c.RateLimitBurst,
	}
	if !c.Enabled {
		out.BaseURL = ""
	}
	return out
}

func chatLimits(c config.ChatConfig) domain.ChatLimits {
	return domain.ChatLimits{
		MaxCandidates:       c.MaxCandidates,
		MaxContextItems:     c.MaxContextItems,
		RetrievalTimeout:    c.RetrievalTimeout,
		GenerationTimeout:   c.GenerationTimeout,
		VerificationTimeout: c.VerificationTimeout,
		DisableFallback:     c.DisableFallback,
	}
}
