package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
)

type noticeStoreFake struct {
	mu           sync.Mutex
	notices      map[string]domain.Notice
	keyword      []domain.Notice
	keywordErr   error
	byIDsErr     error
	keywordQuery domain.KeywordQuery
	keywordCalls int
	// blockKeywords makes FindByKeywords wait for ctx to end.
	blockKeywords bool
}

func newNoticeStoreFake(notices ...domain.Notice) *noticeStoreFake {
	f := &noticeStoreFake{notices: map[string]domain.Notice{}}
	for _, notice := range notices {
		f.notices[notice.ID] = notice
	}
	return f
}

func (f *noticeStoreFake) GetByID(_ context.Context, id string) (*domain.Notice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	notice, ok := f.notices[id]
	if !ok {
		return nil, domain.ErrNoticeNotFound
	}
	return &notice, nil
}

func (f *noticeStoreFake) FindByIDs(_ context.Context, ids []string) ([]domain.Notice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byIDsErr != nil {
		return nil, f.byIDsErr
	}
	out := make([]domain.Notice, 0, len(ids))
	for _, id := range ids {
		if notice, ok := f.notices[id]; ok {
			out = append(out, notice)
		}
	}
	return out, nil
}

func (f *noticeStoreFake) FindByKeywords(ctx context.Context, query domain.KeywordQuery) ([]domain.Notice, error) {
	f.mu.Lock()
	f.keywordCalls++
	f.keywordQuery = query
	block := f.blockKeywords
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keywordErr != nil {
		return nil, f.keywordErr
	}
	return f.keyword, nil
}

type vectorIndexFake struct {
	hits      []domain.VectorHit
	err       error
	limit     int
	upserted  map[string][]float32
	payloads  map[string]map[string]any
	upsertErr error
}

func (f *vectorIndexFake) Search(_ context.Context, _ []float32, limit, _ int) ([]domain.VectorHit, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func (f *vectorIndexFake) UpsertNotice(_ context.Context, noticeID string, vector []float32, payload map[string]any) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if f.upserted == nil {
		f.upserted = map[string][]float32{}
		f.payloads = map[string]map[string]any{}
	}
	f.upserted[noticeID] = vector
	f.payloads[noticeID] = payload
	return nil
}

type embedderFake struct {
	disabled bool
	block    bool
	err      error
	text     string
}

func (f *embedderFake) Enabled() bool { return !f.disabled }

func (f *embedderFake) Embed(ctx context.Context, text string) ([]float32, error) {
	f.text = text
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.disabled {
		return nil, domain.WrapError(domain.ErrServiceDisabled, "embed", io.EOF)
	}
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type completerFake struct {
	mu       sync.Mutex
	disabled bool
	block    bool
	reply    string
	err      error
	calls    int
	messages []domain.ChatMessage
	opts     domain.ChatOptions
}

func (f *completerFake) Enabled() bool { return !f.disabled }

func (f *completerFake) ChatComplete(ctx context.Context, messages []domain.ChatMessage, opts domain.ChatOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.messages = messages
	f.opts = opts
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type noticeEventsFake struct {
	published []string
	err       error
}

func (f *noticeEventsFake) PublishNoticeStored(_ context.Context, noticeID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, noticeID)
	return nil
}

func (f *noticeEventsFake) SubscribeNoticeStored(context.Context, func(context.Context, string) error) error {
	return nil
}

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testNotice(id, title, department string, postedAt time.Time) domain.Notice {
	return domain.Notice{
		ID:            id,
		Title:         title,
		Body:          title + " 관련 세부 안내입니다. 신청 기간과 제출 서류를 확인하세요.",
		Department:    department,
		AudienceGrade: []string{"1", "2"},
		Category:      "academic",
		Source:        "snu",
		PostedAt:      postedAt,
	}
}

func newTestChatUseCase(store *noticeStoreFake, vectors *vectorIndexFake, embedder *embedderFake, generator, verifier *completerFake, opts ...ChatOption) *ChatUseCase {
	base := []ChatOption{WithClock(func() time.Time { return fixedNow }), WithChatLogger(discardLogger())}
	return NewChatUseCase(store, vectors, embedder, generator, verifier, append(base, opts...)...)
}
