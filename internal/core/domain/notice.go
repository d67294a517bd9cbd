package domain

import "time"

type Notice struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	URL           string     `json:"url"`
	Body          string     `json:"body"`
	Summary       string     `json:"summary,omitempty"`
	Department    string     `json:"department,omitempty"`
	AudienceGrade []string   `json:"audience_grade"`
	Category      string     `json:"category,omitempty"`
	Source        string     `json:"source,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	PostedAt      time.Time  `json:"posted_at"`
	DeadlineAt    *time.Time `json:"deadline_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// SearchFilter narrows retrieval to a department and/or audience grade.
// Empty fields mean "no filter".
type SearchFilter struct {
	Department string
	Grade      string
}

// KeywordQuery is a case-insensitive OR of substring terms combined with
// optional equality filters, newest notices first.
type KeywordQuery struct {
	Terms  []string
	Filter SearchFilter
	Limit  int
}

type VectorHit struct {
	NoticeID string  `json:"notice_id"`
	Score    float64 `json:"score"`
}
