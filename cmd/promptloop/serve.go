package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/issacompass/promptloop/internal/adapters/http"
	"github.com/issacompass/promptloop/internal/adapters/postgres"
	"github.com/issacompass/promptloop/internal/application/services"
	"github.com/issacompass/promptloop/internal/id"
)

// serveCmd starts the HTTP API server
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the Promptloop HTTP API server.

The server provides REST endpoints for prompt management, reply
generation and optimization runs, an SSE stream of run progress,
and a WebSocket feed for dashboards.

Required configuration:
  - PostgreSQL database (PROMPTLOOP_POSTGRES_URL)
  - Generation API key (PROMPTLOOP_LLM_API_KEY or GOOGLE_API_KEY)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// runServer initializes and starts the HTTP API server
func runServer(ctx context.Context) error {
	log.Println("Starting Promptloop API server...")
	log.Printf("  HTTP: http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("  LLM:  %s", cfg.LLM.BaseURL)
	log.Println()

	if cfg.Database.PostgresURL == "" {
		return fmt.Errorf("server mode requires PostgreSQL. Set PROMPTLOOP_POSTGRES_URL")
	}

	log.Println("Connecting to PostgreSQL...")
	pool, err := initDB(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Println("Database connection established")

	logger := newLogger()

	promptRepo := postgres.NewMasterPromptRepository(pool, services.DefaultMasterPrompt)
	runRepo := postgres.NewRunRepository(pool)
	txManager := postgres.NewTransactionManager(pool)

	hub := httpapi.NewHub(cfg.Server.CORSOrigins)
	publisher := services.NewProgressPublisher(hub)

	optimizer := services.NewOptimizationService(
		promptRepo,
		runRepo,
		txManager,
		llmClient,
		publisher,
		id.Generator{},
		logger,
	)
	promptService := services.NewPromptService(promptRepo, llmClient, logger)
	log.Println("Services initialized")

	router := httpapi.NewRouter(cfg, httpapi.Deps{
		Prompts:   promptService,
		Optimizer: optimizer,
		Progress:  publisher,
		Runs:      runRepo,
		Hub:       hub,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		log.Println("Shutting down gracefully...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		log.Println("Server stopped")
		return nil
	}
}
