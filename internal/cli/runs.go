package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/0x6d61/xssleech/internal/config"
	"github.com/0x6d61/xssleech/internal/report"
	"github.com/0x6d61/xssleech/internal/session"
)

const defaultArchive = "xssleech.db"

func newRunsCmd() *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List archived scan runs",
		Long: `Runs lists the scans archived with --db, newest first.
Only results are archived; a run cannot be resumed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, store session.Store) error {
				runs, err := store.ListRuns(ctx)
				if err != nil {
					return err
				}
				writeRuns(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}
	runsCmd.PersistentFlags().String("db", "", "SQLite run archive (default ./"+defaultArchive+")")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the findings of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, store session.Store) error {
				run, err := store.LoadRun(ctx, args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("no run with id %q", args[0])
				}
				findings, err := store.Findings(ctx, run.ID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				writeRuns(out, []*session.Run{run})
				fmt.Fprintln(out)
				for _, f := range findings {
					fmt.Fprint(out, report.FormatLine(f))
				}
				return nil
			})
		},
	}

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than a given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			olderThan, _ := cmd.Flags().GetDuration("older-than")
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			return withStore(cmd, func(ctx context.Context, store session.Store) error {
				n, err := store.Cleanup(ctx, olderThan)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d run(s)\n", n)
				return nil
			})
		},
	}
	pruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "Delete runs started before this age")

	runsCmd.AddCommand(showCmd, pruneCmd)
	return runsCmd
}

// withStore opens the archive named by --db (or output.database from the
// config) and passes it to fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, store session.Store) error) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	path := cfg.Output.Database
	if path == "" {
		path = defaultArchive
	}

	store, err := session.NewSQLiteStore(path)
	if err != nil {
		return fmt.Errorf("failed to open run archive %q: %w", path, err)
	}
	defer store.Close()

	return fn(cmd.Context(), store)
}

func writeRuns(w io.Writer, runs []*session.Run) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tPAGES\tVULNERABLE\tERRORS\tINPUTS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status,
			r.Pages, r.Vulnerable, r.Errors, r.Inputs)
	}
	tw.Flush()
}
