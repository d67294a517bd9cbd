package usecase

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
)

const (
	summaryLimit     = 200
	bodySnippetLimit = 480
)

func formatContexts(candidates []domain.ScoredCandidate) []domain.NoticeContext {
	out := make([]domain.NoticeContext, 0, len(candidates))
	for _, candidate := range candidates {
		out = append(out, formatContext(candidate))
	}
	return out
}

func formatContext(candidate domain.ScoredCandidate) domain.NoticeContext {
	notice := candidate.Notice
	summary := strings.TrimSpace(notice.Summary)
	if summary == "" {
		summary = truncateText(notice.Body, summaryLimit)
	}
	grades := notice.AudienceGrade
	if grades == nil {
		grades = []string{}
	}
	return domain.NoticeContext{
		NoticeID:      notice.ID,
		Title:         notice.Title,
		Summary:       summary,
		BodySnippet:   truncateText(notice.Body, bodySnippetLimit),
		Department:    notice.Department,
		AudienceGrade: grades,
		Category:      notice.Category,
		Source:        notice.Source,
		PostedAt:      notice.PostedAt,
		DeadlineAt:    notice.DeadlineAt,
		Score:         math.Round(candidate.Score*10000) / 10000,
		Signals:       candidate.Signals,
	}
}

// truncateText collapses whitespace and cuts to limit runes, marking the cut
// with an ellipsis.
func truncateText(text string, limit int) string {
	compact := strings.Join(strings.Fields(text), " ")
	runes := []rune(compact)
	if len(runes) <= limit {
		return compact
	}
	cut := limit - 3
	if cut < 0 {
		cut = 0
	}
	return strings.TrimRight(string(runes[:cut]), " ") + "..."
}

func renderContextBlock(contexts []domain.NoticeContext) string {
	blocks := make([]string, 0, len(contexts))
	for _, ctx := range contexts {
		grades := strings.Join(ctx.AudienceGrade, ", ")
		if grades == "" {
			grades = "전체"
		}
		blocks = append(blocks, fmt.Sprintf(
			"- post_id: %s\n  제목: %s\n  요약: %s\n  본문 발췌: %s\n  대상 학년: %s, 학과: %s\n  게시일: %s / 마감: %s",
			ctx.NoticeID,
			ctx.Title,
			ctx.Summary,
			ctx.BodySnippet,
			grades,
			orDefault(ctx.Department, "미정"),
			formatTimestamp(ctx.PostedAt),
			formatDeadline(ctx.DeadlineAt),
		))
	}
	return strings.Join(blocks, "\n\n")
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02T15:04:05")
}

func formatDeadline(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "미정"
	}
	return formatTimestamp(*t)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
