package usecase

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
	"github.com/kirillkom/campus-notice-assistant/internal/core/ports"
)

var tracer = otel.Tracer("campus-notice-assistant/usecase")

const (
	defaultMaxCandidates       = 8
	defaultMaxContextItems     = 4
	defaultRetrievalTimeout    = 5 * time.Second
	defaultGenerationTimeout   = 30 * time.Second
	defaultVerificationTimeout = 15 * time.Second
)

// ChatUseCase answers one question per call. It holds only immutable
// collaborators and is safe for concurrent use.
type ChatUseCase struct {
	store     ports.NoticeStore
	vectors   ports.VectorIndex
	embedder  ports.Embedder
	generator ports.ChatCompleter
	verifier  ports.ChatCompleter
	guardrail *Guardrail
	limits    domain.ChatLimits
	logger    *slog.Logger
	now       func() time.Time
}

type ChatOption func(*ChatUseCase)

func WithChatLimits(limits domain.ChatLimits) ChatOption {
	return func(uc *ChatUseCase) {
		uc.limits = normalizeLimits(limits)
	}
}

func WithGuardrail(guardrail *Guardrail) ChatOption {
	return func(uc *ChatUseCase) {
		if guardrail != nil {
			uc.guardrail = guardrail
		}
	}
}

func WithChatLogger(logger *slog.Logger) ChatOption {
	return func(uc *ChatUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

func WithClock(now func() time.Time) ChatOption {
	return func(uc *ChatUseCase) {
		if now != nil {
			uc.now = now
		}
	}
}

func NewChatUseCase(
	store ports.NoticeStore,
	vectors ports.VectorIndex,
	embedder ports.Embedder,
	generator ports.ChatCompleter,
	verifier ports.ChatCompleter,
	opts ...ChatOption,
) *ChatUseCase {
	uc := &ChatUseCase{
		store:     store,
		vectors:   vectors,
		embedder:  embedder,
		generator: generator,
		verifier:  verifier,
		guardrail: NewGuardrail(DefaultGuardrailKeywords()),
		limits:    normalizeLimits(domain.ChatLimits{}),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func normalizeLimits(limits domain.ChatLimits) domain.ChatLimits {
	if limits.MaxCandidates <= 0 {
		limits.MaxCandidates = defaultMaxCandidates
	}
	if limits.MaxContextItems <= 0 {
		limits.MaxContextItems = defaultMaxContextItems
	}
	if limits.RetrievalTimeout <= 0 {
		limits.RetrievalTimeout = defaultRetrievalTimeout
	}
	if limits.GenerationTimeout <= 0 {
		limits.GenerationTimeout = defaultGenerationTimeout
	}
	if limits.VerificationTimeout <= 0 {
		limits.VerificationTimeout = defaultVerificationTimeout
	}
	return limits
}

// Answer runs guardrail, retrieval, scoring, generation and verification.
// Only a notice store failure is returned as an error; every other outcome is
// a response with a reason code.
func (uc *ChatUseCase) Answer(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	ctx, span := tracer.Start(ctx, "chat.answer")
	defer span.End()

	question := normalizeQuestion(req.Question)
	filter := domain.SearchFilter{Department: req.Department, Grade: req.Grade}

	if reason, blocked := uc.guardrail.Classify(question); blocked {
		return uc.refuse(span, req, question, reason), nil
	}

	semantic, keyword, err := uc.retrieve(ctx, question, filter)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	ranked := mergeCandidates(semantic, keyword, filter, uc.now())
	contexts := formatContexts(trimCandidates(ranked, uc.limits.MaxContextItems))
	span.SetAttributes(
		attribute.Int("chat.semantic_hits", len(semantic)),
		attribute.Int("chat.keyword_hits", len(keyword)),
		attribute.Int("chat.contexts", len(contexts)),
	)
	if len(contexts) == 0 {
		return uc.refuse(span, req, question, domain.ReasonNoContext), nil
	}

	answer := uc.generate(ctx, question, contexts)
	if answer == nil {
		return uc.refuse(span, req, question, domain.ReasonLLMUnavailable), nil
	}

	verdict := uc.verify(ctx, question, answer.Answer)
	if !verdict.Valid {
		uc.logger.InfoContext(ctx, "chat_answer_rejected", "reason", verdict.Reason, "source", answer.Source)
		return uc.refuse(span, req, question, domain.ReasonVerificationFailed), nil
	}

	span.SetAttributes(
		attribute.String("chat.reason", string(domain.ReasonSuccess)),
		attribute.String("chat.source", string(answer.Source)),
	)
	return &domain.ChatResponse{
		Answer:    answer.Answer,
		Citations: answer.Citations,
		Notices:   contexts,
		Meta: domain.ChatMeta{
			Question: question,
			Refused:  false,
			Reason:   domain.ReasonSuccess,
			Source:   answer.Source,
			UserID:   req.UserID,
		},
	}, nil
}

func (uc *ChatUseCase) refuse(span trace.Span, req domain.ChatRequest, question string, reason domain.ReasonCode) *domain.ChatResponse {
	span.SetAttributes(attribute.String("chat.reason", string(reason)))
	return &domain.ChatResponse{
		Answer:    domain.RefusalMessage(reason, question),
		Citations: []string{},
		Notices:   []domain.NoticeContext{},
		Meta: domain.ChatMeta{
			Question: question,
			Refused:  true,
			Reason:   reason,
			UserID:   req.UserID,
		},
	}
}
