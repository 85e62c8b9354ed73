package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"newsgate/analytics"
	"newsgate/api"
	"newsgate/config"
	"newsgate/dedup"
	"newsgate/formatter"
	"newsgate/gatekeeper"
	"newsgate/history"
	"newsgate/ingest"
	"newsgate/pkg/embedding"
	"newsgate/pkg/flatindex"
	"newsgate/pkg/qdrantdb"
	"newsgate/pkg/runlock"
	"newsgate/publisher"
	"newsgate/ratelimit"
	"newsgate/repository"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to yaml configuration")
	serve := flag.Bool("serve", false, "serve the stats/engagement API instead of executing a run")
	flag.Parse()

	// =========
	// Config
	// =========
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// =========
	// Logging
	// =========
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// =========
	// Embedding client
	// =========
	embClient := embedding.NewMpnetBaseV2(cfg.EmbeddingURL)

	// =========
	// History store
	// =========
	hist, err := history.Open(filepath.Join(cfg.DataDir, "posts.db"), logger)
	if err != nil {
		logger.Fatal("failed to open history store", zap.Error(err))
	}
	defer hist.Close()

	// =========
	// Similarity index
	// =========
	index, err := buildIndex(ctx, cfg, embClient.Dimension(), logger)
	if err != nil {
		logger.Fatal("failed to initialize similarity index", zap.Error(err))
	}
	if err := index.Load(ctx); err != nil {
		logger.Fatal("failed to load similarity index", zap.Error(err))
	}

	limiter := ratelimit.New(hist, cfg.Settings)

	if *serve {
		analyzer := analytics.New(hist)
		srv := api.NewServer(limiter, analyzer, hist, logger, cfg.APIPort)
		if err := srv.Start(); err != nil {
			logger.Fatal("api server exited", zap.Error(err))
		}
		return
	}

	// =========
	// Run lock
	// =========
	lock, err := runlock.Acquire(filepath.Join(cfg.DataDir, "run.lock"))
	if err != nil {
		if errors.Is(err, runlock.ErrAlreadyRunning) {
			logger.Info("already running, exiting")
			return
		}
		logger.Fatal("failed to acquire run lock", zap.Error(err))
	}
	defer lock.Release()

	// =========
	// Ingestion
	// =========
	fetcher := ingest.NewFetcher(logger)
	items := fetcher.FetchAll(ctx, cfg.Sources, time.Duration(cfg.LookbackHours)*time.Hour)
	logger.Info("ingestion complete", zap.Int("items", len(items)))

	candidates := embedItems(ctx, embClient, items, logger)

	// =========
	// Gatekeeper
	// =========
	detector := dedup.New(index, cfg.Settings.SimilarityThreshold)
	tg := publisher.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChat, logger)
	gate := gatekeeper.New(detector, limiter, hist, index, tg, logger)

	summary, runErr := gate.Run(ctx, candidates, buildFormatFunc(cfg, logger))

	logger.Info("run summary",
		zap.Int("considered", summary.Considered),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("rate_limited", summary.RateLimited),
		zap.Int("published", summary.Published),
		zap.Int("errors", summary.Errors))

	if runErr != nil {
		logger.Error("run aborted", zap.Error(runErr))
		lock.Release()
		logger.Sync()
		os.Exit(1)
	}
}

func buildIndex(ctx context.Context, cfg *config.Config, dimension int, logger *zap.Logger) (repository.SimilarityIndex, error) {
	switch cfg.Index.Backend {
	case "qdrant":
		client, err := qdrantdb.NewClient(cfg.Index.QdrantHost, cfg.Index.QdrantPort)
		if err != nil {
			return nil, err
		}
		idx := qdrantdb.NewIndex(client, cfg.Index.Collection, dimension)
		if err := idx.EnsureCollection(ctx); err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return flatindex.New(filepath.Join(cfg.DataDir, "news_index.json"), dimension, logger), nil
	}
}

// embedItems attaches embeddings one item at a time; an embedding failure
// skips that item and the run continues with the rest.
func embedItems(ctx context.Context, client embedding.Client, items []repository.NewsItem, logger *zap.Logger) []repository.NewsItem {
	out := make([]repository.NewsItem, 0, len(items))
	for _, item := range items {
		vectors, err := client.GetEmbeddings(ctx, []string{item.EmbedText()})
		if err != nil {
			logger.Warn("embedding failed, skipping item",
				zap.String("item_id", item.ID),
				zap.String("title", item.Title),
				zap.Error(err))
			continue
		}
		item.Embedding = vectors[0]
		out = append(out, item)
	}
	return out
}

func buildFormatFunc(cfg *config.Config, logger *zap.Logger) gatekeeper.FormatFunc {
	f, err := formatter.New(cfg.AnthropicAPIKey, cfg.Formatter.Model, cfg.Formatter.MaxCandidates, cfg.Formatter.TopN, logger)
	if err != nil {
		logger.Warn("formatter not configured, using plain top-N selection", zap.Error(err))
		return func(ctx context.Context, items []repository.NewsItem) ([]gatekeeper.Candidate, error) {
			return formatter.Fallback(items, cfg.Formatter.TopN), nil
		}
	}
	return f.SelectAndFormat
}
