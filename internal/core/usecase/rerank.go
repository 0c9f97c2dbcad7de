package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
)

const relevanceScaleMax = 100

// stageRerank asks the model for a relevance verdict on every fused
// candidate and re-sorts by it, discarding the fused numeric score. This is
// the one point where lexical-only matches get penalized for semantic
// irrelevance the retrieval scores cannot express.
func (uc *ChatUseCase) stageRerank(ctx context.Context, st *pipelineState) error {
	ranked, err := uc.rerank(ctx, st.query, fusedDocuments(st.fused))
	if err != nil {
		return err
	}
	st.ranked = ranked
	return nil
}

func (uc *ChatUseCase) rerank(ctx context.Context, query string, docs []domain.Document) ([]domain.RankedDocument, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	prompt := buildRerankPrompt(query, docs, uc.cfg.RerankSnippet)
	raw, err := uc.provider.Complete(ctx, prompt, domain.CompletionOptions{
		Model:       uc.cfg.RerankModel,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("rerank completion: %w", err)
	}

	scores, fallbacks := parseRelevanceScores(raw, len(docs))
	if fallbacks > 0 {
		uc.logger.Warn("rerank_score_fallback", "count", fallbacks, "candidates", len(docs))
		if uc.observer != nil {
			uc.observer.RerankParseFallback(fallbacks)
		}
	}
	ranked := make([]domain.RankedDocument, len(docs))
	for i := range docs {
		ranked[i] = domain.RankedDocument{Document: docs[i], Relevance: scores[i]}
	}

	// Stable: ties keep the fusion order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Relevance > ranked[j].Relevance
	})
	return ranked, nil
}

func buildRerankPrompt(query string, docs []domain.Document, snippetLen int) string {
	var b strings.Builder
	b.WriteString("You score how relevant each passage is to a query.\n\n")
	b.WriteString("Query: ")
	b.WriteString(query)
	b.WriteString("\n\nPassages:\n")
	for i, doc := range docs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, truncateRunes(doc.Content, snippetLen))
	}
	b.WriteString("\nReturn exactly one integer score per passage, comma-separated, in the same order as the passages.\n")
	b.WriteString("Scale 0-100: 80-100 near-exact semantic and keyword match, 40-79 partial match, 0-39 weak or irrelevant.\n")
	b.WriteString("Respond with the scores only.")
	return b.String()
}

// parseRelevanceScores treats the model output as untrusted input with a
// fixed grammar: a comma-separated list read positionally, score[i] belonging
// to candidate[i]. Missing positions, non-numeric tokens and values outside
// [0,100] all coerce to 0, never dropped. The output length always equals n.
// The second return value counts positions that fell back to 0.
func parseRelevanceScores(raw string, n int) ([]int, int) {
	out := make([]int, n)
	tokens := strings.Split(raw, ",")
	fallbacks := 0
	for i := 0; i < n; i++ {
		if i >= len(tokens) {
			fallbacks++
			continue
		}
		score, ok := parseRelevanceToken(tokens[i])
		if !ok {
			fallbacks++
		}
		out[i] = score
	}
	return out, fallbacks
}

func parseRelevanceToken(token string) (int, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	score := int(math.Round(v))
	if score < 0 || score > relevanceScaleMax {
		return 0, false
	}
	return score, true
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
