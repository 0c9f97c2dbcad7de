package ports

import (
	"context"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
)

// Embedder maps text to fixed-dimensional vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CompletionProvider generates text from a single prompt.
type CompletionProvider interface {
	Complete(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error)
}

// VectorStore indexes article passages and serves similarity search with
// optional payload filtering.
type VectorStore interface {
	Query(ctx context.Context, vector []float32, topK int, filter domain.SearchFilter) ([]domain.Match, error)
	IndexChunks(ctx context.Context, article domain.Article, chunks []string, vectors [][]float32) error
	Ping(ctx context.Context) error
}

// ArticleSource reads source documents from the content corpus.
type ArticleSource interface {
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, name string) (domain.Article, error)
}

// Chunker splits article text into indexable passages.
type Chunker interface {
	Split(text string) []string
}

// MessageQueue carries index-population events.
type MessageQueue interface {
	PublishArticleQueued(ctx context.Context, name string) error
	SubscribeArticleQueued(ctx context.Context, handler func(context.Context, string) error) error
}

// BatchRetrier runs one index-population batch under the bounded retry
// policy. The query-time pipeline never retries; only index population does.
type BatchRetrier interface {
	Run(ctx context.Context, operation string, fn func(context.Context) error) error
}

// PipelineObserver receives answer pipeline outcomes for metrics.
type PipelineObserver interface {
	AnswerGenerated(mode string, referenceCount int, elapsedSeconds float64)
	RerankParseFallback(count int)
}

// TranscriptStore persists conversation turns served by the chat API.
type TranscriptStore interface {
	AppendMessage(ctx context.Context, message domain.TranscriptMessage) error
	ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]domain.TranscriptMessage, error)
}
