package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
)

func seededStore(n int) *noticeStoreFake {
	notices := make([]domain.Notice, 0, n)
	for i := 0; i < n; i++ {
		notices = append(notices, testNotice(fmt.Sprintf("n%d", i+1), fmt.Sprintf("장학금 공지 %d", i+1), "cse", fixedNow.Add(-time.Duration(i)*time.Hour)))
	}
	store := newNoticeStoreFake(notices...)
	store.keyword = notices
	return store
}

func assertRefusal(t *testing.T, resp *domain.ChatResponse, reason domain.ReasonCode) {
	t.Helper()
	if resp == nil {
		t.Fatalf("expected response")
	}
	if !resp.Meta.Refused || resp.Meta.Reason != reason {
		t.Fatalf("expected refusal %q, got refused=%v reason=%q", reason, resp.Meta.Refused, resp.Meta.Reason)
	}
	if len(resp.Citations) != 0 || len(resp.Notices) != 0 {
		t.Fatalf("refusal must carry no citations or notices: %+v", resp)
	}
	if resp.Citations == nil || resp.Notices == nil {
		t.Fatalf("refusal lists must serialize as empty arrays")
	}
	if resp.Answer != domain.RefusalMessage(reason, resp.Meta.Question) {
		t.Fatalf("unexpected refusal message %q", resp.Answer)
	}
}

func TestChatAnswerEmptyQuestion(t *testing.T) {
	for _, q := range []string{"", "   ", "ab", " 가나 "} {
		store := seededStore(2)
		uc := newTestChatUseCase(store, &vectorIndexFake{}, &embedderFake{}, &completerFake{}, &completerFake{})
		resp, err := uc.Answer(context.Background(), domain.ChatRequest{Question: q})
		if err != nil {
			t.Fatalf("Answer(%q) error = %v", q, err)
		}
		assertRefusal(t, resp, domain.ReasonEmptyQuestion)
		if store.keywordCalls != 0 {
			t.Fatalf("expected no retrieval for %q", q)
		}
	}
}

func TestChatAnswerGuardrail(t *testing.T) {
	uc := newTestChatUseCase(seededStore(2), &vectorIndexFake{}, &embedderFake{}, &completerFake{}, &completerFake{})

	resp, err := uc.Answer(context.Background(), domain.ChatRequest{Question: "오늘 날씨 어때?"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	assertRefusal(t, resp, domain.ReasonOutOfScope)

	resp, err = uc.Answer(context.Background(), domain.ChatRequest{Question: "시발 날씨 주식 알려줘"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	assertRefusal(t, resp, domain.ReasonInappropriate)
}

func TestChatAnswerNoContext(t *testing.T) {
	uc := newTestChatUseCase(newNoticeStoreFake(), &vectorIndexFake{}, &embedderFake{}, &completerFake{}, &completerFake{})

	resp, err := uc.Answer(context.Background(), domain.ChatRequest{Question: "기숙사 입사 서류 알려줘"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	assertRefusal(t, resp, domain.ReasonNoContext)
	if resp.Meta.Question != "기숙사 입사 서류 알려줘" {
		t.Fatalf("expected normalized question in meta, got %q", resp.Meta.Question)
	}
}

func TestChatAnswerSuccess(t *testing.T) {
	store := seededStore(6)
	vectors := &vectorIndexFake{hits: []domain.VectorHit{{NoticeID: "n6", Score: 0.95}, {NoticeID: "missing", Score: 0.9}}}
	generator := &completerFake{reply: `{"answer":"3월 10일까지 신청하세요.","citations":["n6","n1","n5"],"needsMoreContext":false}`}
	verifier := &completerFake{reply: `{"valid":true,"reason":"ok"}`}
	uc := newTestChatUseCase(store, vectors, &embedderFake{}, generator, verifier)

	resp, err := uc.Answer(context.Background(), domain.ChatRequest{
		Question:   "  장학금   신청 언제까지야? ",
		UserID:     "u-1",
		Department: "cse",
		Grade:      "1",
	})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if resp.Meta.Refused || resp.Meta.Reason != domain.ReasonSuccess || resp.Meta.Source != domain.AnswerSourceGenerated {
		t.Fatalf("unexpected meta: %+v", resp.Meta)
	}
	if resp.Meta.UserID != "u-1" || resp.Meta.Question != "장학금 신청 언제까지야?" {
		t.Fatalf("unexpected meta identity: %+v", resp.Meta)
	}
	if len(resp.Notices) != 4 {
		t.Fatalf("expected 4 contexts, got %d", len(resp.Notices))
	}
	if resp.Notices[0].NoticeID != "n6" {
		t.Fatalf("expected semantic+keyword hit first, got %s", resp.Notices[0].NoticeID)
	}
	ids := make([]string, 0, len(resp.Notices))
	for i, n := range resp.Notices {
		ids = append(ids, n.NoticeID)
		if i > 0 && resp.Notices[i-1].Score < n.Score {
			t.Fatalf("notices not ordered by score")
		}
	}
	for _, c := range resp.Citations {
		if !slices.Contains(ids, c) {
			t.Fatalf("citation %s not among presented notices %v", c, ids)
		}
	}
	if slices.Contains(resp.Citations, "n5") {
		t.Fatalf("citation for trimmed notice leaked")
	}
	if store.keywordQuery.Limit != 8 || store.keywordQuery.Filter.Department != "cse" {
		t.Fatalf("unexpected keyword query: %+v", store.keywordQuery)
	}
	if vectors.limit != 8 {
		t.Fatalf("expected vector search limit 8, got %d", vectors.limit)
	}
	if verifier.calls != 1 {
		t.Fatalf("expected one verifier call, got %d", verifier.calls)
	}
}

func TestChatAnswerSemanticDegradesToKeyword(t *testing.T) {
	uc := newTestChatUseCase(seededStore(2), &vectorIndexFake{err: errors.New("qdrant down")}, &embedderFake{err: errors.New("embed down")},
		&completerFake{reply: `{"answer":"답변","citations":["n1"],"needsMoreContext":false}`}, &completerFake{disabled: true})

	resp, err := uc.Answer(context.Background(), domain.ChatRequest{Question: "장학금 신청"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if resp.Meta.Reason != domain.ReasonSuccess || len(resp.Notices) != 2 {
		t.Fatalf("expected keyword-only success, got %+v", resp.Meta)
	}
	for _, n := range resp.Notices {
		if n.Signals.SemanticScore != nil {
			t.Fatalf("expected no semantic signal")
		}
	}
}

func TestChatAnswerStoreFailureIsFatal(t *testing.T) {
	store := seededStore(1)
	store.keywordErr = errors.New("connection reset")
	uc := newTestChatUseCase(store, &vectorIndexFake{}, &embedderFake{}, &completerFake{}, &completerFake{})

	resp, err := uc.Answer(context.Background(), domain.ChatRequest{Question: "장학금 신청"})
	if resp != nil {
		t.Fatalf("expected no response on store failure")
	}
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestChatAnswerFallbackIsDeterministic(t *testing.T) {
	run := func() *domain.ChatResponse {
		uc := newTestChatUseCase(seededStore(3), &vectorIndexFake{}, &embedderFake{disabled: true}, &completerFake{disabled: true}, &completerFake{disabled: true})
		resp, err := uc.Answer(context.Background(), domain.ChatRequest{Question: "장학금 신청"})
		if err != nil {
			t.Fatalf("Answer() error = %v", err)
		}
		return resp
	}

	first, second := run(), run()
	if first.Meta.Source != domain.AnswerSourceFallback || first.Meta.Reason != domain.ReasonSuccess {
		t.Fatalf("expected fallback success, got %+v", first.Meta)
	}
	if first.Answer != second.Answer {
		t.Fatalf("fallback answer differs between runs")
	}
	if len(first.Citations) != len(first.Notices) {
		t.Fatalf("fallback should cite every presented notice")
	}
}

func TestChatAnswerVerificationFailed(t *testing.T) {
	uc := newTestChatUseCase(seededStore(2), &vectorIndexFake{}, &embedderFake{},
		&completerFake{reply: `{"answer":"축구 경기 결과입니다","citations":["n1"],"needsMoreContext":false}`},
		&completerFake{reply: `{"valid":false,"reason":"off topic"}`})

	resp, err := uc.Answer(context.Background(), domain.ChatRequest{Question: "장학금 신청"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	assertRefusal(t, resp, domain.ReasonVerificationFailed)
}

func TestChatAnswerLLMUnavailableWithoutFallback(t *testing.T) {
	uc := newTestChatUseCase(seededStore(2), &vectorIndexFake{}, &embedderFake{},
		&completerFake{err: errors.New("503")}, &completerFake{},
		WithChatLimits(domain.ChatLimits{DisableFallback: true}))

	resp, err := uc.Answer(context.Background(), domain.ChatRequest{Question: "장학금 신청"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	assertRefusal(t, resp, domain.ReasonLLMUnavailable)
}

func TestKeywordTerms(t *testing.T) {
	got := keywordTerms("2026학년도 1학기 국가장학금 신청 기간 및 서류 안내?")
	if len(got) != maxKeywordTerms {
		t.Fatalf("expected %d terms, got %v", maxKeywordTerms, got)
	}
	if got[0] != "2026학년도" {
		t.Fatalf("unexpected first term %q", got[0])
	}

	got = keywordTerms("?! ㅎ")
	if len(got) != 1 || got[0] != "?! ㅎ" {
		t.Fatalf("expected whole-question fallback, got %v", got)
	}
}

func TestChatAnswerFallsBackWhenLLMCallsHang(t *testing.T) {
	limits := domain.ChatLimits{
		RetrievalTimeout:    30 * time.Millisecond,
		GenerationTimeout:   30 * time.Millisecond,
		VerificationTimeout: 30 * time.Millisecond,
	}
	uc := newTestChatUseCase(seededStore(2), &vectorIndexFake{}, &embedderFake{block: true},
		&completerFake{block: true}, &completerFake{block: true}, WithChatLimits(limits))

	start := time.Now()
	resp, err := uc.Answer(context.Background(), domain.ChatRequest{Question: "장학금 신청"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("expected configured timeouts to bound the request, took %s", elapsed)
	}
	if resp.Meta.Reason != domain.ReasonSuccess || resp.Meta.Source != domain.AnswerSourceFallback {
		t.Fatalf("expected fallback success, got %+v", resp.Meta)
	}
	citations := slices.Clone(resp.Citations)
	slices.Sort(citations)
	if !slices.Equal(citations, []string{"n1", "n2"}) {
		t.Fatalf("unexpected citations %v", resp.Citations)
	}
}

func TestChatAnswerKeywordStoreTimeout(t *testing.T) {
	store := seededStore(2)
	store.blockKeywords = true
	uc := newTestChatUseCase(store, &vectorIndexFake{}, &embedderFake{disabled: true},
		&completerFake{}, &completerFake{}, WithChatLimits(domain.ChatLimits{RetrievalTimeout: 30 * time.Millisecond}))

	start := time.Now()
	resp, err := uc.Answer(context.Background(), domain.ChatRequest{Question: "장학금 신청"})
	if !errors.Is(err, domain.ErrStoreUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected store timeout as ErrStoreUnavailable, got %v", err)
	}
	if resp != nil {
		t.Fatalf("expected nil response, got %+v", resp)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("expected retrieval timeout to bound the request, took %s", elapsed)
	}
}
