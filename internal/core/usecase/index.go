package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
	"github.com/kirillkom/campus-notice-assistant/internal/core/ports"
)

// IndexNoticeUseCase keeps the vector index in sync with the notice store.
type IndexNoticeUseCase struct {
	store    ports.NoticeStore
	embedder ports.Embedder
	vectors  ports.VectorIndex
	events   ports.NoticeEvents
}

func NewIndexNoticeUseCase(
	store ports.NoticeStore,
	embedder ports.Embedder,
	vectors ports.VectorIndex,
	events ports.NoticeEvents,
) *IndexNoticeUseCase {
	return &IndexNoticeUseCase{
		store:    store,
		embedder: embedder,
		vectors:  vectors,
		events:   events,
	}
}

// RequestIndex verifies the notice exists and queues it for indexing.
func (uc *IndexNoticeUseCase) RequestIndex(ctx context.Context, noticeID string) error {
	noticeID = strings.TrimSpace(noticeID)
	if noticeID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "request index", fmt.Errorf("notice id is required"))
	}
	if _, err := uc.store.GetByID(ctx, noticeID); err != nil {
		return fmt.Errorf("load notice: %w", err)
	}
	if err := uc.events.PublishNoticeStored(ctx, noticeID); err != nil {
		return fmt.Errorf("publish notice stored event: %w", err)
	}
	return nil
}

func (uc *IndexNoticeUseCase) IndexByID(ctx context.Context, noticeID string) error {
	ctx, span := tracer.Start(ctx, "notice.index")
	defer span.End()

	notice, err := uc.store.GetByID(ctx, noticeID)
	if err != nil {
		return fmt.Errorf("load notice: %w", err)
	}

	vector, err := uc.embedder.Embed(ctx, embeddingText(*notice))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("embed notice: %w", err)
	}

	payload := map[string]any{
		"post_id":    notice.ID,
		"title":      notice.Title,
		"department": notice.Department,
		"category":   notice.Category,
	}
	if err := uc.vectors.UpsertNotice(ctx, notice.ID, vector, payload); err != nil {
		span.RecordError(err)
		return fmt.Errorf("upsert notice vector: %w", err)
	}
	return nil
}

func embeddingText(notice domain.Notice) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{notice.Title, notice.Summary, notice.Body} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "\n\n")
}
