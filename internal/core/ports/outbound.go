package ports

import (
	"context"

	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
)

// NoticeStore reads notices from the primary document store.
type NoticeStore interface {
	GetByID(ctx context.Context, id string) (*domain.Notice, error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.Notice, error)
	FindByKeywords(ctx context.Context, query domain.KeywordQuery) ([]domain.Notice, error)
}

// VectorIndex performs similarity search over notice embeddings.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, limit, offset int) ([]domain.VectorHit, error)
	UpsertNotice(ctx context.Context, noticeID string, vector []float32, payload map[string]any) error
}

// Embedder builds a vector for a piece of text. Implementations return an
// error wrapping domain.ErrServiceDisabled when not configured.
type Embedder interface {
	Enabled() bool
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChatCompleter runs a chat completion and returns the assistant text.
type ChatCompleter interface {
	Enabled() bool
	ChatComplete(ctx context.Context, messages []domain.ChatMessage, opts domain.ChatOptions) (string, error)
}

// NoticeEvents carries notice-stored notifications between ingestion and indexing.
type NoticeEvents interface {
	PublishNoticeStored(ctx context.Context, noticeID string) error
	SubscribeNoticeStored(ctx context.Context, handler func(context.Context, string) error) error
}
