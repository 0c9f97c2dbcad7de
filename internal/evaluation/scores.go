package evaluation

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
	"github.com/adamw/article-rag-assistant/internal/core/ports"
)

// CosineSimilarity is a pure numeric function over two equal-length vectors.
// A zero-magnitude input defines the similarity as 0, never NaN. Mismatched
// lengths mean a broken embedding provider, not comparable vectors, and score
// 0 instead of silently truncating.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// SourceOverlap measures |intersection| / max(lengths). An empty expected
// list means no ground truth to miss, so the score is a full 1.
func SourceOverlap(systemSources, expectedSources []string) float64 {
	if len(expectedSources) == 0 {
		return 1
	}
	expected := make(map[string]struct{}, len(expectedSources))
	for _, s := range expectedSources {
		expected[s] = struct{}{}
	}
	overlap := 0
	for _, s := range systemSources {
		if _, ok := expected[s]; ok {
			overlap++
		}
	}
	denom := len(systemSources)
	if len(expectedSources) > denom {
		denom = len(expectedSources)
	}
	return float64(overlap) / float64(denom)
}

const judgePromptHeader = `You are an evaluator. Given a list of expected concepts and an answer,
determine how many of the concepts are meaningfully covered in the answer.
Respond with a number between 0 and 1 representing the coverage ratio.
Respond with the number only.`

// ConceptCoverage asks an LLM judge for the fraction of expected concepts
// present in the answer. The judge output is held to its contract: a
// non-numeric reply is an ErrJudgeContract error, never a silent zero.
// Out-of-range numeric values are clamped into [0,1].
func ConceptCoverage(ctx context.Context, judge ports.CompletionProvider, model, answer string, concepts []string) (float64, error) {
	if len(concepts) == 0 {
		return 1, nil
	}

	prompt := fmt.Sprintf("%s\n\nExpected concepts: %s\nAnswer: %s",
		judgePromptHeader, strings.Join(concepts, ", "), answer)
	raw, err := judge.Complete(ctx, prompt, domain.CompletionOptions{Model: model, Temperature: 0})
	if err != nil {
		return 0, fmt.Errorf("concept coverage judge: %w", err)
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(score) {
		return 0, domain.WrapError(
			domain.ErrJudgeContract,
			"concept coverage judge",
			fmt.Errorf("non-numeric judge output %q", raw),
		)
	}
	if score < 0 {
		return 0, nil
	}
	if score > 1 {
		return 1, nil
	}
	return score, nil
}
