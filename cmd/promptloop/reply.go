package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/issacompass/promptloop/internal/application/services"
)

// replyCmd generates a single reply with the stored master prompt
func replyCmd() *cobra.Command {
	var (
		clientSequence string
		historyFile    string
	)

	cmd := &cobra.Command{
		Use:   "reply",
		Short: "Generate a reply using the stored master prompt",
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

			reply, updatedAt, err := app.prompts.GenerateReply(ctx, services.ReplyInput{
				ClientSequence: clientSequence,
				ChatHistory:    history,
			})
			if err != nil {
				return fmt.Errorf("failed to generate reply: %w", err)
			}

			fmt.Println(reply)
			fmt.Fprintf(os.Stderr, "(prompt version: %s)\n", updatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&clientSequence, "client-sequence", "c", "", "Client message sequence (required)")
	cmd.Flags().StringVar(&historyFile, "history", "", "JSON file with preceding chat history")
	_ = cmd.MarkFlagRequired("client-sequence")

	return cmd
}
