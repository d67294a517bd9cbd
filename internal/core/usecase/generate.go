package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
)

const (
	generatorSystemPrompt = "너는 서울대학교 공지 도우미 챗봇이다. 제공된 공지 내용만을 근거로 " +
		"정확하고 간결한 답변을 질문과 같은 언어로 작성하라. 근거가 충분하지 않으면 " +
		"\"" + domain.DefaultRefusalMessage + "\"라고 말하고 citations를 비워라."

	generatorMaxTokens   = 480
	generatorTemperature = 0.2

	fallbackPreamble = "LLM 응답 생성을 사용할 수 없어 수집된 공지를 간단히 정리해 드릴게요:"
	fallbackClosing  = "더 구체적인 내용이 필요하면 키워드를 조금 더 좁혀서 다시 질문해 주세요."
)

func buildGeneratorMessages(question string, contexts []domain.NoticeContext) []domain.ChatMessage {
	var user strings.Builder
	user.WriteString("사용자 질문:\n")
	user.WriteString(question)
	user.WriteString("\n\n공지 목록:\n")
	user.WriteString(renderContextBlock(contexts))
	user.WriteString("\n\n규칙:\n")
	user.WriteString("1) 제공된 공지 이외의 지식을 사용하지 말 것\n")
	user.WriteString("2) 각 주장에 참조할 공지의 post_id를 citations 배열에 담을 것\n")
	user.WriteString("3) 정보가 부족하면 needsMoreContext 값을 true로 설정\n")
	user.WriteString(`4) 반드시 다음 JSON 형태로만 응답 {"answer": "...", "citations": ["<post_id>"], "needsMoreContext": false}` + "\n")

	return []domain.ChatMessage{
		{Role: "system", Content: generatorSystemPrompt},
		{Role: "user", Content: user.String()},
	}
}

// generate asks the model for a grounded answer. Any failure degrades to the
// extractive fallback; nil is returned only when the fallback is disabled.
func (uc *ChatUseCase) generate(ctx context.Context, question string, contexts []domain.NoticeContext) *domain.GroundedAnswer {
	ctx, span := tracer.Start(ctx, "chat.generate")
	defer span.End()

	answer, err := uc.generateGrounded(ctx, question, contexts)
	if err == nil {
		return answer
	}
	span.RecordError(err)
	uc.degraded(ctx, "generate", err)

	if uc.limits.DisableFallback {
		return nil
	}
	return &domain.GroundedAnswer{
		Answer:    fallbackAnswer(contexts),
		Citations: contextIDs(contexts),
		Source:    domain.AnswerSourceFallback,
	}
}

func (uc *ChatUseCase) generateGrounded(ctx context.Context, question string, contexts []domain.NoticeContext) (*domain.GroundedAnswer, error) {
	if uc.generator == nil || !uc.generator.Enabled() {
		return nil, domain.WrapError(domain.ErrServiceDisabled, "generate", fmt.Errorf("chat completion is not configured"))
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.limits.GenerationTimeout)
	defer cancel()

	raw, err := uc.generator.ChatComplete(callCtx, buildGeneratorMessages(question, contexts), domain.ChatOptions{
		MaxTokens:   generatorMaxTokens,
		Temperature: generatorTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("chat complete: %w", err)
	}

	payload, err := parseGroundedPayload(raw)
	if err != nil {
		return nil, domain.WrapError(domain.ErrMalformedResponse, "generate", err)
	}

	answer := strings.TrimSpace(payload.Answer)
	if answer == "" {
		return nil, domain.WrapError(domain.ErrMalformedResponse, "generate", fmt.Errorf("empty answer"))
	}
	if payload.NeedsMoreContext {
		return nil, domain.WrapError(domain.ErrMalformedResponse, "generate", fmt.Errorf("model requested more context"))
	}

	citations := filterCitations(payload.Citations, contexts)
	if len(citations) == 0 {
		return nil, domain.WrapError(domain.ErrMalformedResponse, "generate", fmt.Errorf("no valid citations"))
	}

	return &domain.GroundedAnswer{
		Answer:    answer,
		Citations: citations,
		Source:    domain.AnswerSourceGenerated,
	}, nil
}

// filterCitations keeps presented ids in model order, dropping duplicates.
func filterCitations(citations []string, contexts []domain.NoticeContext) []string {
	valid := contextIDs(contexts)
	out := make([]string, 0, len(citations))
	for _, id := range citations {
		if slices.Contains(valid, id) && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func contextIDs(contexts []domain.NoticeContext) []string {
	ids := make([]string, 0, len(contexts))
	for _, ctx := range contexts {
		ids = append(ids, ctx.NoticeID)
	}
	return ids
}

func fallbackAnswer(contexts []domain.NoticeContext) string {
	lines := make([]string, 0, len(contexts)+2)
	lines = append(lines, fallbackPreamble)
	for _, ctx := range contexts {
		posted := "날짜 미정"
		if !ctx.PostedAt.IsZero() {
			posted = ctx.PostedAt.Format("2006-01-02")
		}
		summary := ctx.Summary
		if summary == "" {
			summary = ctx.BodySnippet
		}
		lines = append(lines, fmt.Sprintf("- %s (%s, %s)\n  주요 내용: %s",
			ctx.Title, orDefault(ctx.Department, "학교"), posted, summary))
	}
	lines = append(lines, fallbackClosing)
	return strings.Join(lines, "\n")
}
