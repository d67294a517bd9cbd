package domain

import (
	"fmt"
	"strings"
)

type ReasonCode string

const (
	ReasonEmptyQuestion      ReasonCode = "empty_question"
	ReasonInappropriate      ReasonCode = "inappropriate"
	ReasonOutOfScope         ReasonCode = "out_of_scope"
	ReasonNoContext          ReasonCode = "no_context"
	ReasonLLMUnavailable     ReasonCode = "llm_unavailable"
	ReasonVerificationFailed ReasonCode = "verification_failed"
	ReasonSuccess            ReasonCode = "success"
)

// DefaultRefusalMessage is also the sentence the generator is told to use
// when the notices cannot answer the question.
const DefaultRefusalMessage = "해당 질문은 제공된 공지로 답변할 수 없습니다."

func ReasonCodes() []ReasonCode {
	return []ReasonCode{
		ReasonEmptyQuestion,
		ReasonInappropriate,
		ReasonOutOfScope,
		ReasonNoContext,
		ReasonLLMUnavailable,
		ReasonVerificationFailed,
		ReasonSuccess,
	}
}

func (r ReasonCode) Refused() bool {
	return r != ReasonSuccess
}

// RefusalMessage returns the fixed user-facing message for a refusal reason.
// Success has no refusal text.
func RefusalMessage(reason ReasonCode, question string) string {
	switch reason {
	case ReasonEmptyQuestion:
		return "질문이 비어 있어 답변을 드릴 수 없어요. 궁금한 내용을 입력해 주세요."
	case ReasonOutOfScope:
		return "해당 질문은 학교 공지 범위를 벗어나 안내해 드리기 어려워요."
	case ReasonInappropriate:
		return "부적절한 표현이 포함되어 있어 답변할 수 없어요."
	case ReasonNoContext:
		if clean := strings.TrimSpace(question); clean != "" {
			return fmt.Sprintf("'%s'와 관련된 공지를 찾지 못해 답변을 드릴 수 없어요.", clean)
		}
		return "관련 공지를 찾지 못해 답변을 드릴 수 없어요."
	case ReasonLLMUnavailable:
		return "답변을 생성하는 중 문제가 발생했어요. 잠시 후 다시 시도해 주세요."
	case ReasonVerificationFailed:
		return "공지 내용으로 답을 충분히 뒷받침할 수 없어 제공해 드릴 수 없어요."
	case ReasonSuccess:
		return ""
	default:
		return DefaultRefusalMessage
	}
}
