package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/quebecsigns/server/internal/cache"
	"codeberg.org/quebecsigns/server/internal/config"
	"codeberg.org/quebecsigns/server/internal/embedder"
	"codeberg.org/quebecsigns/server/internal/llm"
	"codeberg.org/quebecsigns/server/internal/logger"
	"codeberg.org/quebecsigns/server/internal/pipeline"
	"codeberg.org/quebecsigns/server/internal/retrieval"
	"codeberg.org/quebecsigns/server/internal/store"
	"codeberg.org/quebecsigns/server/internal/vectorindex"
)

const answerCacheTTL = 24 * time.Hour

// creates and configures all service clients and the pipeline
func InitializeServices(cfg *config.Config, db *pgxpool.Pool, refCache *store.RefCache) (*Services, error) {
	embedClient := embedder.NewClient(embedder.Config{
		AccountID: cfg.CloudflareAccountID,
		APIToken:  cfg.CloudflareAPIToken,
	})

	index := vectorindex.New(db)

	// the stored vectors must match what the embedder produces; a
	// mismatch means the indexes were built against different models
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := index.CheckDimensions(ctx, embedder.ImageDimensions, embedder.TextDimensions); err != nil {
		return nil, fmt.Errorf("vector index configuration invalid: %w", err)
	}

	contextStore := store.New(db)
	coordinator := retrieval.NewCoordinator(index, contextStore, refCache, retrieval.LoadConfig())

	anthropicConfig := llm.AnthropicConfigFromEnv()
	anthropicConfig.APIKey = cfg.AnthropicKey
	generator := llm.NewAnthropicClient(anthropicConfig)

	// the answer cache is optional: without Redis every query generates
	var answerCache *cache.AnswerCache

	if cfg.RedisURL != "" {
		var err error

		answerCache, err = cache.NewAnswerCache(cfg.RedisURL, answerCacheTTL)
		if err != nil {
			logger.ErrorErr(err, "failed to connect answer cache, continuing without it")
			answerCache = nil
		}
	}

	pipe := pipeline.New(embedClient, coordinator, generator, answerCache)

	return &Services{
		Embedder:    embedClient,
		Index:       index,
		Store:       contextStore,
		Coordinator: coordinator,
		Generator:   generator,
		AnswerCache: answerCache,
		Pipeline:    pipe,
	}, nil
}
