package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/issacompass/promptloop/internal/application/services"
	"github.com/issacompass/promptloop/internal/domain/models"
)

// seedCmd bootstraps the master prompt from a historical conversation export
func seedCmd() *cobra.Command {
	var (
		sampleCount   int
		maxIterations int
		graders       int
		patience      int
	)

	cmd := &cobra.Command{
		Use:   "seed <export.json>",
		Short: "Replay a conversation export through the optimizer",
		Long: `Replay historical consultant conversations through the optimization
loop to bootstrap the master prompt from real data.

The export file is a JSON array of conversations, each with a contactId
and messages carrying direction ("in" or "out"), text and a timestamp.
Turns are replayed sequentially so each one builds on the prompt the
previous one produced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read export file: %w", err)
			}
			var conversations []models.ConversationExport
			if err := json.Unmarshal(data, &conversations); err != nil {
				return fmt.Errorf("failed to parse export file: %w", err)
			}

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			app := buildServices(pool, newLogger())

			report, err := app.seeder.SeedFromConversations(ctx, conversations, services.SeedOptions{
				SampleCount:         sampleCount,
				MaxIterations:       maxIterations,
				GraderEnsembleCount: graders,
				EarlyStopPatience:   patience,
			})
			if report != nil {
				fmt.Printf("Extracted %d turns, %d eligible, %d replayed\n",
					report.ExtractedTurns, report.EligibleTurns, report.ReplayedTurns)
				for _, r := range report.Results {
					converged := ""
					if r.Converged {
						converged = " (converged)"
					}
					fmt.Printf("  %s #%d: run %s, %d iterations, best delta %.2f%s\n",
						r.ContactID, r.SequenceNumber, r.RunID, r.Iterations, r.BestDelta, converged)
				}
			}
			if err != nil {
				return fmt.Errorf("seeding stopped: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&sampleCount, "sample", "s", 0, "Replay at most this many turns (0 = all)")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Maximum loop iterations per turn (default 5)")
	cmd.Flags().IntVar(&graders, "graders", 0, "Grader ensemble size (default 5)")
	cmd.Flags().IntVar(&patience, "patience", 0, "Early stop patience (default 2)")
	return cmd
}
