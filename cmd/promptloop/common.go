package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/issacompass/promptloop/internal/adapters/postgres"
	"github.com/issacompass/promptloop/internal/application/services"
	"github.com/issacompass/promptloop/internal/config"
	"github.com/issacompass/promptloop/internal/id"
	"github.com/issacompass/promptloop/internal/llm"
)

// Version information (set via ldflags)
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Shared global variables
var (
	cfg       *config.Config
	llmClient *llm.Client
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// initDB initializes a database connection pool for CLI commands
func initDB(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Database.PostgresURL == "" {
		return nil, fmt.Errorf("PostgreSQL connection required. Set PROMPTLOOP_POSTGRES_URL")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Force UTC timezone to prevent timezone-related issues with TIMESTAMP columns
	poolConfig.ConnConfig.RuntimeParams["timezone"] = "UTC"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return pool, nil
}

// appServices bundles the wired application layer for CLI commands.
type appServices struct {
	prompts   *services.PromptService
	optimizer *services.OptimizationService
	publisher *services.ProgressPublisher
	seeder    *services.SeedService
	runs      *postgres.RunRepository
}

// buildServices wires repositories, the LLM client and the application
// services on top of an open pool.
func buildServices(pool *pgxpool.Pool, logger *slog.Logger) *appServices {
	promptRepo := postgres.NewMasterPromptRepository(pool, services.DefaultMasterPrompt)
	runRepo := postgres.NewRunRepository(pool)
	txManager := postgres.NewTransactionManager(pool)
	publisher := services.NewProgressPublisher(nil)

	optimizer := services.NewOptimizationService(
		promptRepo,
		runRepo,
		txManager,
		llmClient,
		publisher,
		id.Generator{},
		logger,
	)

	return &appServices{
		prompts:   services.NewPromptService(promptRepo, llmClient, logger),
		optimizer: optimizer,
		publisher: publisher,
		seeder:    services.NewSeedService(optimizer, logger),
		runs:      runRepo,
	}
}

// maskSecret masks a secret string for display
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "(set)"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
