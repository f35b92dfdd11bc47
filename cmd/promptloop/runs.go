package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// runsCmd provides subcommands for run history inspection
func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect optimization run history",
	}

	cmd.AddCommand(
		runsListCmd(),
		runsShowCmd(),
	)

	return cmd
}

func runsListCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List optimization runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			app := buildServices(pool, newLogger())
			runs, err := app.runs.List(ctx, limit, offset)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if len(runs) == 0 {
				fmt.Println("No optimization runs found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tITERATIONS\tBEST DELTA\tCREATED")
			fmt.Fprintln(w, "--\t----------\t----------\t-------")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%d\t%.2f\t%s\n",
					run.ID,
					run.Iterations,
					run.BestDelta,
					run.CreatedAt.Format("2006-01-02 15:04"),
				)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of runs to skip")
	return cmd
}

func runsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run, including its full iteration log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			app := buildServices(pool, newLogger())
			run, err := app.runs.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load run: %w", err)
			}

			return printJSON(run)
		},
	}
}
