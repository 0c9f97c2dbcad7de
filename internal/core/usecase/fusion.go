package usecase

import (
	"context"
	"sort"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
)

type fusedCandidate struct {
	doc   domain.Document
	score float64
}

func (uc *ChatUseCase) stageFuse(_ context.Context, st *pipelineState) error {
	st.fused = fuseWeighted(st.vectorMatches, st.keywordMatches, uc.cfg.VectorWeight, uc.cfg.KeywordWeight)
	return nil
}

// fuseWeighted merges both result sets into one candidate per document id.
// A vector hit contributes similarity*vectorWeight, a keyword hit
// similarity*keywordWeight; when an id shows up in both sets the combined
// score is the strict sum of the weighted contributions. A keyword-only hit
// never receives the vector weight. Scores from the two retrieval modes are
// not normalized against each other.
func fuseWeighted(vector, keyword []domain.Match, vectorWeight, keywordWeight float64) []fusedCandidate {
	acc := make(map[string]*fusedCandidate, len(vector)+len(keyword))
	order := make([]string, 0, len(vector)+len(keyword))

	add := func(m domain.Match, weight float64) {
		if candidate, ok := acc[m.ID]; ok {
			candidate.score += m.Score * weight
			return
		}
		acc[m.ID] = &fusedCandidate{
			doc:   domain.DocumentFromMatch(m),
			score: m.Score * weight,
		}
		order = append(order, m.ID)
	}

	for _, m := range vector {
		add(m, vectorWeight)
	}
	for _, m := range keyword {
		add(m, keywordWeight)
	}

	out := make([]fusedCandidate, 0, len(order))
	for _, id := range order {
		out = append(out, *acc[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	return out
}

func fusedDocuments(candidates []fusedCandidate) []domain.Document {
	out := make([]domain.Document, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.doc)
	}
	return out
}
