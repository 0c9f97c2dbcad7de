package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adamw/article-rag-assistant/internal/bootstrap"
	"github.com/adamw/article-rag-assistant/internal/config"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", app.WorkerMetrics.Handler())
		app.Logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := http.ListenAndServe(":"+cfg.WorkerMetricsPort, mux); err != nil && err != http.ErrServerClosed {
			app.Logger.Error("worker metrics server error", "error", err)
		}
	}()

	app.Logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeArticleQueued(ctx, func(handlerCtx context.Context, article string) error {
		indexCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		app.WorkerMetrics.StartArticle()
		start := time.Now()
		indexErr := app.IndexUC.IndexByName(indexCtx, article)
		app.WorkerMetrics.FinishArticle("worker", time.Since(start), indexErr)
		if indexErr != nil {
			app.Logger.Error("article_index_failed", "article", article, "error", indexErr)
		} else {
			app.Logger.Info("article_indexed", "article", article, "elapsed", time.Since(start))
		}
		return indexErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
