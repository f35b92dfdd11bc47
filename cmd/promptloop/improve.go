package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/issacompass/promptloop/internal/application/services"
	"github.com/issacompass/promptloop/internal/domain/models"
	"github.com/issacompass/promptloop/internal/ports"
)

// improveCmd runs one optimization loop from the command line
func improveCmd() *cobra.Command {
	var (
		clientSequence  string
		consultantReply string
		historyFile     string
		maxIterations   int
		thresholdDelta  float64
		graders         int
		patience        int
		showDiff        bool
		jsonOutput      bool
	)

	cmd := &cobra.Command{
		Use:   "improve",
		Short: "Run one optimization loop against a real exchange",
		Long: `Run the full optimization loop for one client sequence and the
consultant's actual reply. Progress is printed per iteration; the
final result includes the run log and the stored prompt version.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			history, err := loadHistory(historyFile)
			if err != nil {
				return err
			}

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			app := buildServices(pool, newLogger())

			input := services.ImproveInput{
				ClientSequence:      clientSequence,
				ChatHistory:         history,
				ConsultantReply:     consultantReply,
				MaxIterations:       maxIterations,
				GraderEnsembleCount: graders,
				EarlyStopPatience:   patience,
				IncludePromptDiff:   showDiff,
			}
			if cmd.Flags().Changed("threshold") {
				input.ThresholdDelta = &thresholdDelta
			}

			runID := app.optimizer.NewRunID()
			events := app.publisher.Subscribe(runID)

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for event := range events {
					printProgress(event)
				}
			}()

			result, err := app.optimizer.Improve(ctx, runID, input)
			wg.Wait()
			if err != nil {
				return fmt.Errorf("optimization run failed: %w", err)
			}

			if jsonOutput {
				return printJSON(result)
			}

			fmt.Println()
			fmt.Printf("Run %s finished.\n", result.RunID)
			fmt.Printf("  Iterations: %d\n", result.Iterations)
			fmt.Printf("  Best delta: %.2f\n", result.BestDelta)
			if result.ConvergedIteration > 0 {
				fmt.Printf("  Converged:  iteration %d\n", result.ConvergedIteration)
			}
			fmt.Printf("  Prompt stored at: %s\n", result.UpdatedPromptStoredAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&clientSequence, "client-sequence", "c", "", "Client message sequence (required)")
	cmd.Flags().StringVarP(&consultantReply, "consultant-reply", "r", "", "Consultant's actual reply (required)")
	cmd.Flags().StringVar(&historyFile, "history", "", "JSON file with preceding chat history")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Maximum loop iterations (default 5)")
	cmd.Flags().Float64Var(&thresholdDelta, "threshold", 0, "Convergence threshold on the behavioral delta (default 20)")
	cmd.Flags().IntVar(&graders, "graders", 0, "Grader ensemble size (default 5)")
	cmd.Flags().IntVar(&patience, "patience", 0, "Early stop patience in non-improving iterations (default 2)")
	cmd.Flags().BoolVar(&showDiff, "diff", false, "Include prompt previews in iteration events")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full result as JSON")
	_ = cmd.MarkFlagRequired("client-sequence")
	_ = cmd.MarkFlagRequired("consultant-reply")

	return cmd
}

// loadHistory reads a chat history JSON file: an array of
// {"role": "client"|"consultant", "message": "..."} objects.
func loadHistory(path string) ([]models.ChatMessage, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	var history []models.ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}
	return history, nil
}

func printProgress(event ports.ProgressEvent) {
	switch event.Type {
	case ports.ProgressEventStart:
		fmt.Printf("Run %s started (max %d iterations, threshold %.1f, %d graders)\n",
			event.RunID, event.MaxIterations, event.ThresholdDelta, event.GraderEnsembleCount)
	case ports.ProgressEventIteration:
		fmt.Printf("  iteration %d: delta %.2f (best %.2f)\n",
			event.Iteration, event.AvgDelta, event.BestDeltaSoFar)
		if event.Diagnosis != "" {
			fmt.Printf("    diagnosis: %s\n", event.Diagnosis)
		}
	case ports.ProgressEventConverged:
		fmt.Printf("  converged at iteration %d (delta %.2f)\n", event.Iteration, event.AvgDelta)
	case ports.ProgressEventError:
		fmt.Printf("  error: %s\n", event.Message)
	}
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
