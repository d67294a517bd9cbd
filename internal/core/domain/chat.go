package domain

import "time"

const (
	MinQuestionRunes = 3
	MaxQuestionRunes = 400
)

type AnswerSource string

const (
	AnswerSourceGenerated AnswerSource = "generated"
	AnswerSourceFallback  AnswerSource = "fallback"
)

type ChatRequest struct {
	Question   string `json:"question"`
	UserID     string `json:"user_id,omitempty"`
	Department string `json:"department,omitempty"`
	Grade      string `json:"grade,omitempty"`
}

// Signals are the raw retrieval inputs behind a composite score. A nil field
// means the notice was not found by that retrieval path.
type Signals struct {
	SemanticScore *float64 `json:"semantic_score"`
	KeywordRank   *int     `json:"keyword_rank"`
}

type Candidate struct {
	Notice  Notice
	Signals Signals
}

type ScoredCandidate struct {
	Candidate
	Score float64
}

type NoticeContext struct {
	NoticeID      string     `json:"post_id"`
	Title         string     `json:"title"`
	Summary       string     `json:"summary"`
	BodySnippet   string     `json:"body_snippet"`
	Department    string     `json:"department,omitempty"`
	AudienceGrade []string   `json:"audience_grade"`
	Category      string     `json:"category,omitempty"`
	Source        string     `json:"source,omitempty"`
	PostedAt      time.Time  `json:"posted_at"`
	DeadlineAt    *time.Time `json:"deadline_at"`
	Score         float64    `json:"score"`
	Signals       Signals    `json:"signals"`
}

type GroundedAnswer struct {
	Answer    string
	Citations []string
	Source    AnswerSource
}

type Verification struct {
	Valid  bool
	Reason string
}

type ChatMeta struct {
	Question string       `json:"question"`
	Refused  bool         `json:"refused"`
	Reason   ReasonCode   `json:"reason"`
	Source   AnswerSource `json:"source,omitempty"`
	UserID   string       `json:"user_id,omitempty"`
}

type ChatResponse struct {
	Answer    string          `json:"answer"`
	Citations []string        `json:"citations"`
	Notices   []NoticeContext `json:"notices"`
	Meta      ChatMeta        `json:"meta"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}

// ChatLimits bounds a single pipeline run.
type ChatLimits struct {
	MaxCandidates       int
	MaxContextItems     int
	RetrievalTimeout    time.Duration
	GenerationTimeout   time.Duration
	VerificationTimeout time.Duration
	// DisableFallback turns generation failures into llm_unavailable refusals
	// instead of the extractive template answer.
	DisableFallback bool
}
