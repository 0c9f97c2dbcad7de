package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
)

// stageAugment folds the retained history window and the current question
// into one retrieval query. Generation later sees the clean question and the
// history block as separate fields, never the augmented blob.
func (uc *ChatUseCase) stageAugment(_ context.Context, st *pipelineState) error {
	window := domain.LastTurns(st.conversation, uc.cfg.HistoryWindow)
	last := window[len(window)-1]

	st.question = strings.TrimSpace(last.Content)
	if st.question == "" {
		return domain.WrapError(domain.ErrInvalidInput, "augment query", errors.New("empty question"))
	}
	st.history = transcriptBlock(window[:len(window)-1])
	st.query = buildAugmentedQuery(st.history, st.question)
	return nil
}

// transcriptBlock renders turns as "role: content" lines, chronological order.
func transcriptBlock(turns []domain.ConversationTurn) string {
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, turn.Role+": "+turn.Content)
	}
	return strings.Join(lines, "\n")
}

func buildAugmentedQuery(history, question string) string {
	if history == "" {
		return question
	}
	return history + "\n" + question
}

// splitKeywords tokenizes the augmented query into lowercase literal tokens.
// No stopword removal, no stemming: the keyword retriever matches exactly
// what the user typed.
func splitKeywords(query string) []string {
	return strings.Fields(strings.ToLower(query))
}
