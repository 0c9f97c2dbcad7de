package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/adamw/article-rag-assistant/internal/core/domain"
	"github.com/adamw/article-rag-assistant/internal/core/ports"
)

const defaultIndexBatchSize = 16

// IndexArticleUseCase populates the vector index from the content corpus:
// read an article, chunk it, embed each batch and upsert it. Each batch runs
// under the retrier's bounded policy.
type IndexArticleUseCase struct {
	source    ports.ArticleSource
	chunker   ports.Chunker
	embedder  ports.Embedder
	store     ports.VectorStore
	retrier   ports.BatchRetrier
	batchSize int
}

func NewIndexArticleUseCase(
	source ports.ArticleSource,
	chunker ports.Chunker,
	embedder ports.Embedder,
	store ports.VectorStore,
	retrier ports.BatchRetrier,
	batchSize int,
) *IndexArticleUseCase {
	if batchSize <= 0 {
		batchSize = defaultIndexBatchSize
	}
	return &IndexArticleUseCase{
		source:    source,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		retrier:   retrier,
		batchSize: batchSize,
	}
}

func (uc *IndexArticleUseCase) IndexByName(ctx context.Context, name string) error {
	article, err := uc.source.Read(ctx, name)
	if err != nil {
		return fmt.Errorf("read article: %w", err)
	}

	chunks := uc.chunker.Split(article.Content)
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "chunk article", errors.New("chunking produced zero chunks"))
	}

	for start := 0; start < len(chunks); start += uc.batchSize {
		end := start + uc.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := uc.indexBatch(ctx, article, chunks[start:end]); err != nil {
			return fmt.Errorf("index batch [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

func (uc *IndexArticleUseCase) indexBatch(ctx context.Context, article domain.Article, chunks []string) error {
	run := func(ctx context.Context) error {
		vectors, err := uc.embedder.Embed(ctx, chunks)
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		if len(vectors) != len(chunks) {
			return domain.WrapError(
				domain.ErrInvalidInput,
				"embed chunks",
				fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
			)
		}
		if err := uc.store.IndexChunks(ctx, article, chunks, vectors); err != nil {
			return fmt.Errorf("index chunks in vector db: %w", err)
		}
		return nil
	}

	if uc.retrier == nil {
		return run(ctx)
	}
	return uc.retrier.Run(ctx, "index.batch", run)
}
