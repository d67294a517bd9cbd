package usecase

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
)

// Composite score weights. They sum to 1.1 and are deliberately not
// renormalised.
const (
	weightSemantic   = 0.5
	weightKeyword    = 0.2
	weightDepartment = 0.2
	weightGrade      = 0.1
	weightRecency    = 0.1
)

// mergeCandidates unions both retrieval paths by notice id and ranks the
// result by composite score. Ties keep insertion order: semantic hits first,
// then keyword-only notices.
func mergeCandidates(
	semantic []semanticHit,
	keyword []domain.Notice,
	filter domain.SearchFilter,
	now time.Time,
) []domain.ScoredCandidate {
	byID := make(map[string]*domain.Candidate, len(semantic)+len(keyword))
	order := make([]string, 0, len(semantic)+len(keyword))

	for _, hit := range semantic {
		if _, ok := byID[hit.notice.ID]; ok {
			continue
		}
		score := hit.score
		byID[hit.notice.ID] = &domain.Candidate{
			Notice:  hit.notice,
			Signals: domain.Signals{SemanticScore: &score},
		}
		order = append(order, hit.notice.ID)
	}

	for rank, notice := range keyword {
		candidate, ok := byID[notice.ID]
		if !ok {
			candidate = &domain.Candidate{Notice: notice}
			byID[notice.ID] = candidate
			order = append(order, notice.ID)
		}
		if candidate.Signals.KeywordRank == nil {
			r := rank
			candidate.Signals.KeywordRank = &r
		}
	}

	out := make([]domain.ScoredCandidate, 0, len(order))
	for _, id := range order {
		candidate := byID[id]
		out = append(out, domain.ScoredCandidate{
			Candidate: *candidate,
			Score:     compositeScore(candidate.Notice, candidate.Signals, filter, now),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func compositeScore(notice domain.Notice, signals domain.Signals, filter domain.SearchFilter, now time.Time) float64 {
	score := 0.0
	if signals.SemanticScore != nil {
		score += weightSemantic * clamp01(*signals.SemanticScore)
	}
	if signals.KeywordRank != nil {
		score += weightKeyword * (1 / (1 + float64(*signals.KeywordRank)))
	}
	score += weightDepartment * departmentMatch(notice, filter.Department)
	score += weightGrade * gradeMatch(notice, filter.Grade)
	score += weightRecency * recencyScore(notice.PostedAt, now)
	return score
}

func departmentMatch(notice domain.Notice, department string) float64 {
	if department == "" {
		if notice.Department != "" {
			return 0.6
		}
		return 0.4
	}
	if department == notice.Department {
		return 1.0
	}
	return 0.1
}

func gradeMatch(notice domain.Notice, grade string) float64 {
	if grade == "" {
		return 0.5
	}
	if slices.Contains(notice.AudienceGrade, grade) {
		return 1.0
	}
	return 0.2
}

func recencyScore(postedAt, now time.Time) float64 {
	hours := math.Max(0, now.Sub(postedAt).Hours())
	return math.Max(0.1, 1/(1+hours/24))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func trimCandidates(candidates []domain.ScoredCandidate, limit int) []domain.ScoredCandidate {
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}
