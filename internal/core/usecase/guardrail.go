package usecase

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
)

var defaultAbusiveKeywords = []string{
	"똥", "섹스", "sex", "fuck", "shit", "bastard", "씨발", "시발", "개새", "18놈", "욕해", "porn", "야동",
}

var defaultOutOfScopeKeywords = []string{
	"날씨", "기온", "미세먼지", "환율", "주식", "코스피", "환전", "운세", "로또",
	"축구", "야구", "농구", "영화", "맛집", "여행",
	"tour", "weather", "stock", "lotto", "kbo", "nba", "premier league",
}

// GuardrailKeywords are the two policy keyword sets. Abusive terms take
// precedence over out-of-scope terms.
type GuardrailKeywords struct {
	Abusive    []string `yaml:"abusive"`
	OutOfScope []string `yaml:"out_of_scope"`
}

func DefaultGuardrailKeywords() GuardrailKeywords {
	return GuardrailKeywords{
		Abusive:    append([]string(nil), defaultAbusiveKeywords...),
		OutOfScope: append([]string(nil), defaultOutOfScopeKeywords...),
	}
}

type Guardrail struct {
	abusive    []string
	outOfScope []string
}

// NewGuardrail copies and lower-cases the keyword sets. Empty sets fall back
// to the built-in lists.
func NewGuardrail(keywords GuardrailKeywords) *Guardrail {
	def := DefaultGuardrailKeywords()
	if len(keywords.Abusive) == 0 {
		keywords.Abusive = def.Abusive
	}
	if len(keywords.OutOfScope) == 0 {
		keywords.OutOfScope = def.OutOfScope
	}
	return &Guardrail{
		abusive:    lowerKeywords(keywords.Abusive),
		outOfScope: lowerKeywords(keywords.OutOfScope),
	}
}

// Classify returns the refusal reason for a normalized question, or false
// when the question may proceed to retrieval.
func (g *Guardrail) Classify(normalized string) (domain.ReasonCode, bool) {
	if utf8.RuneCountInString(normalized) < domain.MinQuestionRunes {
		return domain.ReasonEmptyQuestion, true
	}
	lowered := strings.ToLower(normalized)
	if containsAny(lowered, g.abusive) {
		return domain.ReasonInappropriate, true
	}
	if containsAny(lowered, g.outOfScope) {
		return domain.ReasonOutOfScope, true
	}
	return "", false
}

func normalizeQuestion(question string) string {
	return strings.Join(strings.Fields(norm.NFC.String(question)), " ")
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func lowerKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(norm.NFC.String(keyword)))
		if keyword == "" {
			continue
		}
		out = append(out, keyword)
	}
	return out
}
