package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/quebecsigns/server/internal/config"
	"codeberg.org/quebecsigns/server/internal/logger"
	"codeberg.org/quebecsigns/server/internal/store"
)

const (
	// how often the reference cache reloads sign definitions
	refCacheRefreshInterval = 15 * time.Minute
)

// creates and configures a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	ctx := context.Background()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// small pool: the query path is read-only and latency-bound on the
	// model calls, not on Postgres
	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	// simple protocol for pooler (PgBouncer) compatibility: transaction
	// mode poolers don't support prepared statements
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// load the sign definition reference data before serving traffic
	refCache, err := store.NewRefCache(ctx, store.New(db), refCacheRefreshInterval)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}

	logger.Info("reference cache loaded", "definitions", refCache.Len())

	services, err := InitializeServices(cfg, db, refCache)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	server := &Server{
		db:       db,
		config:   cfg,
		refCache: refCache,
		services: services,
		router:   router,
	}

	RegisterRoutes(router, server)

	return server, nil
}
