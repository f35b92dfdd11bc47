package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// promptCmd provides subcommands for master prompt management
func promptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Manage the master prompt",
		Long: `Inspect and modify the stored master prompt.

Subcommands:
  show     Print the current master prompt
  set      Overwrite the master prompt from a file or stdin
  improve  Apply manual edit instructions via the prompt editor`,
	}

	cmd.AddCommand(
		promptShowCmd(),
		promptSetCmd(),
		promptImproveCmd(),
	)

	return cmd
}

func promptShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current master prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			app := buildServices(pool, newLogger())
			state, err := app.prompts.Get(ctx)
			if err != nil {
				return fmt.Errorf("failed to load prompt: %w", err)
			}

			fmt.Println(state.Prompt)
			fmt.Fprintf(os.Stderr, "(updated: %s)\n", state.UpdatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func promptSetCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Overwrite the master prompt",
		Long:  `Overwrite the master prompt with the contents of --file, or stdin when no file is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			var data []byte
			var err error
			if file != "" {
				data, err = os.ReadFile(file)
			} else {
				data, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return fmt.Errorf("failed to read prompt: %w", err)
			}

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			app := buildServices(pool, newLogger())
			state, err := app.prompts.Overwrite(ctx, string(data))
			if err != nil {
				return fmt.Errorf("failed to store prompt: %w", err)
			}

			fmt.Printf("Prompt stored (%d characters, updated %s)\n",
				len(state.Prompt), state.UpdatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "File containing the new prompt")
	return cmd
}

func promptImproveCmd() *cobra.Command {
	var instructions string

	cmd := &cobra.Command{
		Use:   "improve",
		Short: "Apply manual edit instructions to the master prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			app := buildServices(pool, newLogger())
			updated, err := app.prompts.ImproveManually(ctx, instructions)
			if err != nil {
				return fmt.Errorf("failed to improve prompt: %w", err)
			}

			fmt.Println(updated)
			return nil
		},
	}

	cmd.Flags().StringVarP(&instructions, "instructions", "i", "", "Edit instructions for the prompt editor (required)")
	_ = cmd.MarkFlagRequired("instructions")
	return cmd
}

