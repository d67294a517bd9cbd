package usecase

import (
	"context"
	"strings"

	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
)

const (
	verifierSystemPrompt = "너는 대학 공지 챗봇의 검수자이다. 사용자 질문과 챗봇 답변을 보고 답변이 질문을 " +
		"직접적으로 해결하고 학교 공지 맥락에 어긋나지 않는지만 판단하라. 결과는 JSON으로만 반환한다."

	verifierMaxTokens   = 120
	verifierTemperature = 0.0
)

// Verification reasons for the advisory pass-through paths.
const (
	VerifyEmptyAnswer        = "empty_answer"
	VerifySkippedDisabled    = "verification_skipped_chat_disabled"
	VerifySkippedError       = "verification_skipped_error"
	VerifySkippedInvalidJSON = "verification_skipped_invalid_json"
)

func buildVerifierMessages(question, answer string) []domain.ChatMessage {
	user := "질문:\n" + question + "\n\n" +
		"챗봇 답변:\n" + answer + "\n\n" +
		"규칙: 답변이 질문의 의도에 부합하는지, 엉뚱한 주제를 다루지 않는지 확인한 뒤 " +
		`{"valid": true/false, "reason": "..."} JSON 으로만 답하라.`
	return []domain.ChatMessage{
		{Role: "system", Content: verifierSystemPrompt},
		{Role: "user", Content: user},
	}
}

// verify is advisory: only an explicit negative verdict or a blank answer
// fails.
func (uc *ChatUseCase) verify(ctx context.Context, question, answer string) domain.Verification {
	ctx, span := tracer.Start(ctx, "chat.verify")
	defer span.End()

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return domain.Verification{Valid: false, Reason: VerifyEmptyAnswer}
	}
	if uc.verifier == nil || !uc.verifier.Enabled() {
		return domain.Verification{Valid: true, Reason: VerifySkippedDisabled}
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.limits.VerificationTimeout)
	defer cancel()

	raw, err := uc.verifier.ChatComplete(callCtx, buildVerifierMessages(question, answer), domain.ChatOptions{
		MaxTokens:   verifierMaxTokens,
		Temperature: verifierTemperature,
	})
	if err != nil {
		span.RecordError(err)
		uc.degraded(ctx, "verify", err)
		return domain.Verification{Valid: true, Reason: VerifySkippedError}
	}

	payload, err := parseVerifierPayload(raw)
	if err != nil {
		uc.degraded(ctx, "verify", err)
		return domain.Verification{Valid: true, Reason: VerifySkippedInvalidJSON}
	}
	return domain.Verification{Valid: payload.Valid, Reason: payload.Reason}
}
