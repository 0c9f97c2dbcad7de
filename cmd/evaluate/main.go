package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/adamw/article-rag-assistant/internal/config"
	"github.com/adamw/article-rag-assistant/internal/core/usecase"
	"github.com/adamw/article-rag-assistant/internal/evaluation"
	"github.com/adamw/article-rag-assistant/internal/infrastructure/llm/openai"
	"github.com/adamw/article-rag-assistant/internal/infrastructure/vector/qdrant"
	"github.com/adamw/article-rag-assistant/internal/observability/logging"
)

func main() {
	// Local env files are optional; the environment itself wins.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	if missing := config.MissingEvalVars(); len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "missing required environment variables: %s\n", strings.Join(missing, ", "))
		os.Exit(1)
	}
	cfg := config.Load()
	logger := logging.NewJSONLogger("evaluate", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	questions, err := evaluation.LoadQuestions(cfg.EvalQuestionsPath)
	if err != nil {
		logger.Error("load questions", "path", cfg.EvalQuestionsPath, "error", err)
		os.Exit(1)
	}

	llm := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIEmbedModel)
	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
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

	evaluator := evaluation.NewEvaluator(chatUC, llm, llm, vectorDB, cfg.OpenAIJudgeModel, logger)

	if err := evaluator.Load(ctx, questions); err != nil {
		logger.Error("load evaluation run", "error", err)
		os.Exit(1)
	}
	logger.Info("evaluation started", "questions", len(questions), "mode", cfg.RAGMode)

	if err := evaluator.Run(ctx); err != nil {
		logger.Error("evaluation run", "error", err)
		os.Exit(1)
	}
	metrics, err := evaluator.Aggregate()
	if err != nil {
		logger.Error("aggregate results", "error", err)
		os.Exit(1)
	}
	if err := evaluator.Persist(cfg.EvalOutputDir); err != nil {
		logger.Error("persist results", "error", err)
		os.Exit(1)
	}

	logger.Info("evaluation finished",
		"total", metrics.TotalQuestions,
		"evaluated", metrics.Evaluated,
		"coverage", metrics.Coverage,
		"avg_response_time_ms", metrics.AverageResponseTimeMs,
		"avg_source_overlap", metrics.AverageSourceOverlap,
		"avg_concept_coverage", metrics.AverageConceptCoverage,
		"output_dir", cfg.EvalOutputDir,
	)

	if err := evaluator.Check(); err != nil {
		logger.Error("evaluation incomplete", "error", err)
		os.Exit(1)
	}
}
