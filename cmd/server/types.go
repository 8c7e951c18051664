package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/quebecsigns/server/internal/cache"
	"codeberg.org/quebecsigns/server/internal/config"
	"codeberg.org/quebecsigns/server/internal/embedder"
	"codeberg.org/quebecsigns/server/internal/llm"
	"codeberg.org/quebecsigns/server/internal/pipeline"
	"codeberg.org/quebecsigns/server/internal/retrieval"
	"codeberg.org/quebecsigns/server/internal/store"
	"codeberg.org/quebecsigns/server/internal/vectorindex"
)

// holds all dependencies and state for the API server
type Server struct {
	db       *pgxpool.Pool
	config   *config.Config
	refCache *store.RefCache
	services *Services
	router   *gin.Engine
}

// holds all external service clients and the pipeline built from them
type Services struct {
	Embedder    *embedder.Client
	Index       *vectorindex.Index
	Store       *store.Store
	Coordinator *retrieval.Coordinator
	Generator   *llm.AnthropicClient
	AnswerCache *cache.AnswerCache
	Pipeline    *pipeline.Pipeline
}
