package ports

import (
	"context"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
)

// Answerer is the inbound contract for the retrieval-augmented chat pipeline:
// given the full turn history it appends exactly one assistant turn.
type Answerer interface {
	Answer(ctx context.Context, conversation []domain.ConversationTurn) (domain.ChatResult, error)
}

// ArticleIndexer is the inbound contract for asynchronous index population.
type ArticleIndexer interface {
	IndexByName(ctx context.Context, name string) error
}
