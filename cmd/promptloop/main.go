package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/issacompass/promptloop/internal/config"
	"github.com/issacompass/promptloop/internal/llm"
	"github.com/issacompass/promptloop/internal/ports"
)

func main() {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "promptloop",
		Short: "Promptloop - closed-loop master prompt optimizer",
		Long: `Promptloop keeps the master prompt of an immigration-consulting chat
responder aligned with how human consultants actually reply. Each run
predicts a reply, grades it against the consultant's real answer and
edits the prompt until the behavioral gap closes.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			llmClient = llm.NewClient(
				cfg.LLM.BaseURL,
				cfg.LLM.APIKey,
				map[string]string{
					ports.LLMRoleResponder: cfg.LLM.ResponderModel,
					ports.LLMRoleGrader:    cfg.LLM.GraderModel,
					ports.LLMRoleEditor:    cfg.LLM.EditorModel,
				},
				cfg.LLM.MaxTokens,
			)

			return nil
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		improveCmd(),
		replyCmd(),
		promptCmd(),
		runsCmd(),
		seedCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configCmd shows current configuration
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Current configuration:")
			fmt.Println()

			fmt.Println("LLM:")
			fmt.Printf("  Base URL:   %s\n", cfg.LLM.BaseURL)
			fmt.Printf("  Responder:  %s\n", cfg.LLM.ResponderModel)
			fmt.Printf("  Grader:     %s\n", cfg.LLM.GraderModel)
			fmt.Printf("  Editor:     %s\n", cfg.LLM.EditorModel)
			fmt.Printf("  Max Tokens: %d\n", cfg.LLM.MaxTokens)
			fmt.Printf("  API Key:    %s\n", maskSecret(cfg.LLM.APIKey))
			fmt.Println()

			fmt.Println("Database:")
			fmt.Printf("  PostgreSQL: %s\n", maskSecret(cfg.Database.PostgresURL))
			fmt.Println()

			fmt.Println("Server:")
			fmt.Printf("  Host:         %s\n", cfg.Server.Host)
			fmt.Printf("  Port:         %d\n", cfg.Server.Port)
			fmt.Printf("  CORS Origins: %v\n", cfg.Server.CORSOrigins)
			fmt.Printf("  Access Key:   %s\n", maskSecret(cfg.Server.AccessKey))
			fmt.Println()

			fmt.Println("Environment variables:")
			fmt.Println("  PROMPTLOOP_LLM_BASE_URL, PROMPTLOOP_LLM_API_KEY, GOOGLE_API_KEY")
			fmt.Println("  RESPONDER_MODEL, GRADER_MODEL, EDITOR_MODEL, PROMPTLOOP_LLM_MAX_TOKENS")
			fmt.Println("  PROMPTLOOP_POSTGRES_URL, DATABASE_URL")
			fmt.Println("  PROMPTLOOP_SERVER_HOST, PROMPTLOOP_SERVER_PORT")
			fmt.Println("  PROMPTLOOP_CORS_ORIGINS, PROMPTLOOP_ACCESS_KEY")

			return nil
		},
	}
}

// versionCmd shows version information
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Promptloop %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)
		},
	}
}
