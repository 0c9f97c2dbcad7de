package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adamw/article-rag-assistant/internal/config"
	"github.com/adamw/article-rag-assistant/internal/core/ports"
	"github.com/adamw/article-rag-assistant/internal/core/usecase"
	"github.com/adamw/article-rag-assistant/internal/infrastructure/chunking"
	"github.com/adamw/article-rag-assistant/internal/infrastructure/corpus"
	"github.com/adamw/article-rag-assistant/internal/infrastructure/llm/openai"
	"github.com/adamw/article-rag-assistant/internal/infrastructure/queue/nats"
	"github.com/adamw/article-rag-assistant/internal/infrastructure/repository/postgres"
	"github.com/adamw/article-rag-assistant/internal/infrastructure/resilience"
	"github.com/adamw/article-rag-assistant/internal/infrastructure/vector/qdrant"
	"github.com/adamw/article-rag-assistant/internal/observability/logging"
	"github.com/adamw/article-rag-assistant/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue       ports.MessageQueue
	Transcripts ports.TranscriptStore
	Corpus      ports.ArticleSource
	ChatUC      ports.Answerer
	IndexUC     ports.ArticleIndexer

	ServerMetrics *metrics.HTTPServerMetrics
	WorkerMetrics *metrics.WorkerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger("article-rag-assistant", cfg.LogLevel)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	transcripts := postgres.NewTranscriptRepository(db)
	if err := transcripts.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llm := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIEmbedModel)
	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	serverMetrics := metrics.NewHTTPServerMetrics("api")
	workerMetrics := metrics.NewWorkerMetrics("worker")

	chatUC := usecase.NewChatUseCase(llm, vectorDB, llm, usecase.ChatConfig{
		Mode:          cfg.RAGMode,
		TopK:          cfg.RAGTopK,
		HybridTopK:    cfg.RAGHybridTopK,
		KeywordTopK:   cfg.RAGKeywordTopK,
		VectorWeight:  cfg.RAGVectorWeight,
		KeywordWeight: cfg.RAGKeywordWeight,
		ContextDocs:   cfg.RAGContextDocs,
		HistoryWindow: cfg.RAGHistoryWindow,
		RerankSnippet: cfg.RAGRerankSnippet,
		EmbeddingDim:  cfg.EmbeddingDim,
		GenModel:      cfg.OpenAIGenModel,
		RerankModel:   cfg.OpenAIRerankModel,
	}, logger)
	chatUC.SetObserver(&pipelineMetrics{server: serverMetrics})

	source, err := corpus.New(cfg.CorpusPath)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	retrier := resilience.NewRetrier(resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Second,
		RetryMaxBackoff:     3 * time.Second,
		RetryBackoffGrowth:  resilience.GrowthLinear,
	}))
	indexUC := usecase.NewIndexArticleUseCase(source, chunker, llm, vectorDB, retrier, 0)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:       queue,
		Transcripts: transcripts,
		Corpus:      source,
		ChatUC:      chatUC,
		IndexUC:     indexUC,

		ServerMetrics: serverMetrics,
		WorkerMetrics: workerMetrics,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// pipelineMetrics bridges pipeline outcomes onto the prometheus server
// metrics.
type pipelineMetrics struct {
	server *metrics.HTTPServerMetrics
}

func (p *pipelineMetrics) AnswerGenerated(mode string, referenceCount int, elapsedSeconds float64) {
	p.server.RecordAnswer("api", mode, referenceCount, time.Duration(elapsedSeconds*float64(time.Second)))
}

func (p *pipelineMetrics) RerankParseFallback(count int) {
	p.server.RecordRerankParseFallback("api", count)
}
