package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
)

const maxKeywordTerms = 5

var keywordTokenPattern = regexp.MustCompile(`[\x{AC00}-\x{D7A3}A-Za-z0-9]{2,}`)

type semanticHit struct {
	notice domain.Notice
	score  float64
}

// retrieve runs the semantic and keyword paths concurrently. Only a keyword
// store failure is returned; the semantic path degrades to an empty set.
func (uc *ChatUseCase) retrieve(
	ctx context.Context,
	question string,
	filter domain.SearchFilter,
) ([]semanticHit, []domain.Notice, error) {
	var (
		semantic []semanticHit
		keyword  []domain.Notice
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		semantic = uc.semanticCandidates(gctx, question)
		return nil
	})
	g.Go(func() error {
		notices, err := uc.keywordCandidates(gctx, question, filter)
		if err != nil {
			return err
		}
		keyword = notices
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return semantic, keyword, nil
}

func (uc *ChatUseCase) semanticCandidates(ctx context.Context, question string) []semanticHit {
	if uc.embedder == nil || uc.vectors == nil {
		return nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, uc.limits.RetrievalTimeout)
	vector, err := uc.embedder.Embed(embedCtx, question)
	cancel()
	if err != nil || len(vector) == 0 {
		uc.degraded(ctx, "embed", err)
		return nil
	}

	searchCtx, cancel := context.WithTimeout(ctx, uc.limits.RetrievalTimeout)
	hits, err := uc.vectors.Search(searchCtx, vector, uc.limits.MaxCandidates, 0)
	cancel()
	if err != nil {
		uc.degraded(ctx, "vector_search", err)
		return nil
	}
	if len(hits) == 0 {
		return nil
	}

	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		if hit.NoticeID != "" {
			ids = append(ids, hit.NoticeID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, uc.limits.RetrievalTimeout)
	notices, err := uc.store.FindByIDs(lookupCtx, ids)
	cancel()
	if err != nil {
		uc.degraded(ctx, "semantic_lookup", err)
		return nil
	}

	byID := make(map[string]domain.Notice, len(notices))
	for _, notice := range notices {
		byID[notice.ID] = notice
	}

	out := make([]semanticHit, 0, len(hits))
	for _, hit := range hits {
		notice, ok := byID[hit.NoticeID]
		if !ok {
			continue
		}
		out = append(out, semanticHit{notice: notice, score: hit.Score})
	}
	return out
}

func (uc *ChatUseCase) keywordCandidates(
	ctx context.Context,
	question string,
	filter domain.SearchFilter,
) ([]domain.Notice, error) {
	storeCtx, cancel := context.WithTimeout(ctx, uc.limits.RetrievalTimeout)
	defer cancel()

	notices, err := uc.store.FindByKeywords(storeCtx, domain.KeywordQuery{
		Terms:  keywordTerms(question),
		Filter: filter,
		Limit:  uc.limits.MaxCandidates,
	})
	if err != nil {
		if domain.IsKind(err, domain.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "keyword search", err)
	}
	return notices, nil
}

// keywordTerms extracts up to five Hangul/alphanumeric tokens. A question
// without such tokens is matched as one literal term.
func keywordTerms(question string) []string {
	tokens := keywordTokenPattern.FindAllString(question, maxKeywordTerms)
	if len(tokens) > 0 {
		return tokens
	}
	if trimmed := strings.TrimSpace(question); trimmed != "" {
		return []string{trimmed}
	}
	return nil
}

func (uc *ChatUseCase) degraded(ctx context.Context, stage string, err error) {
	if err == nil {
		err = fmt.Errorf("empty result")
	}
	uc.logger.WarnContext(ctx, "chat_stage_degraded", "stage", stage, "error", err)
}
