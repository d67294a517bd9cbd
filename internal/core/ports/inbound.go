package ports

import (
	"context"

	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
)

// ChatService is the inbound contract for grounded notice question answering.
type ChatService interface {
	Answer(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)
}

// NoticeIndexer is the inbound contract for asynchronous vector indexing.
type NoticeIndexer interface {
	IndexByID(ctx context.Context, noticeID string) error
}

// NoticeIndexRequester schedules a notice for (re)indexing.
type NoticeIndexRequester interface {
	RequestIndex(ctx context.Context, noticeID string) error
}
