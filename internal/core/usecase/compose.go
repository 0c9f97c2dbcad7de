package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
)

// stageCompose picks the context documents and assembles the generation
// prompt. At most ContextDocs (3) passages go downstream no matter how many
// survived retrieval; the prompt carries history, context and the raw
// question as separate fields.
func (uc *ChatUseCase) stageCompose(_ context.Context, st *pipelineState) error {
	var docs []domain.Document
	if st.ranked != nil {
		docs = make([]domain.Document, 0, len(st.ranked))
		for _, r := range st.ranked {
			docs = append(docs, r.Document)
		}
	} else {
		docs = fusedDocuments(st.fused)
	}
	if len(docs) > uc.cfg.ContextDocs {
		docs = docs[:uc.cfg.ContextDocs]
	}

	st.contextDocs = docs
	st.prompt = buildAnswerPrompt(st.history, contextBlock(docs), st.question)
	return nil
}

func (uc *ChatUseCase) stageGenerate(ctx context.Context, st *pipelineState) error {
	answer, err := uc.provider.Complete(ctx, st.prompt, domain.CompletionOptions{
		Model:       uc.cfg.GenModel,
		Temperature: 0,
	})
	if err != nil {
		return fmt.Errorf("generate answer: %w", err)
	}
	st.answer = answer
	return nil
}

func contextBlock(docs []domain.Document) string {
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, doc.Content)
	}
	return strings.Join(parts, "\n\n")
}

func buildAnswerPrompt(history, context, question string) string {
	if history == "" {
		history = "(no prior turns)"
	}
	return fmt.Sprintf(`Answer the question based only on the following context:
%s

Conversation so far:
%s

Question: %s

Instructions:
- Answer using only the context above.
- Stay consistent with the earlier conversation turns.
- If the context is not sufficient to answer, say so explicitly.
- Stay on topic.`, context, history, question)
}
