package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
)

// stageRetrieveSemantic is the non-hybrid path: top-K vector matches become
// the candidate set directly, no fusion, no reranking.
func (uc *ChatUseCase) stageRetrieveSemantic(ctx context.Context, st *pipelineState) error {
	matches, err := uc.retrieveVector(ctx, st.query, uc.cfg.TopK)
	if err != nil {
		return err
	}
	st.fused = make([]fusedCandidate, 0, len(matches))
	for _, m := range matches {
		st.fused = append(st.fused, fusedCandidate{
			doc:   domain.DocumentFromMatch(m),
			score: m.Score,
		})
	}
	return nil
}

// stageRetrieveHybrid fans out the vector query and the per-keyword queries
// concurrently. Fusion is the synchronization barrier: every sub-query must
// finish before this stage returns.
func (uc *ChatUseCase) stageRetrieveHybrid(ctx context.Context, st *pipelineState) error {
	var (
		wg        sync.WaitGroup
		vector    []domain.Match
		vectorErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		vector, vectorErr = uc.retrieveVector(ctx, st.query, uc.cfg.HybridTopK)
	}()

	keyword, keywordErr := uc.retrieveKeyword(ctx, st.query)
	wg.Wait()

	if vectorErr != nil {
		return vectorErr
	}
	if keywordErr != nil {
		return keywordErr
	}

	st.vectorMatches = vector
	st.keywordMatches = keyword
	return nil
}

func (uc *ChatUseCase) retrieveVector(ctx context.Context, query string, topK int) ([]domain.Match, error) {
	vec, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := uc.store.Query(ctx, vec, topK, domain.SearchFilter{})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return matches, nil
}

// retrieveKeyword issues one filtered store query per keyword token, all
// concurrent, each with a degenerate zero vector so only the payload filter
// selects. A document matching several keywords appears once per keyword;
// fusion merges the duplicates. A failed sub-query never cancels its
// siblings, but any store error propagates once all of them are done.
func (uc *ChatUseCase) retrieveKeyword(ctx context.Context, query string) ([]domain.Match, error) {
	keywords := splitKeywords(query)
	if len(keywords) == 0 {
		return nil, nil
	}

	zero := make([]float32, uc.cfg.EmbeddingDim)
	results := make([][]domain.Match, len(keywords))
	errs := make([]error, len(keywords))

	var wg sync.WaitGroup
	for i, keyword := range keywords {
		wg.Add(1)
		go func(i int, keyword string) {
			defer wg.Done()
			matches, err := uc.store.Query(ctx, zero, uc.cfg.KeywordTopK, domain.SearchFilter{
				TextContains: keyword,
			})
			if err != nil {
				errs[i] = fmt.Errorf("keyword search %q: %w", keyword, err)
				return
			}
			results[i] = matches
		}(i, keyword)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := make([]domain.Match, 0, len(keywords)*uc.cfg.KeywordTopK)
	for _, matches := range results {
		out = append(out, matches...)
	}
	return out, nil
}
