package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vimeodl/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and prune the download history",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errors.New("history is disabled (history.enabled = false)")
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var (
		limit   int
		status  string
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := history.ListOptions{Limit: limit}
			switch s := history.Status(strings.ToLower(strings.TrimSpace(status))); s {
			case "":
			case history.StatusRunning, history.StatusCompleted, history.StatusFailed:
				opts.Status = s
			default:
				return fmt.Errorf("unknown status %q (want running, completed or failed)", status)
			}
			return ctx.withHistory(func(store *history.Store) error {
				records, err := store.List(cmd.Context(), opts)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, records)
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderHistory(records))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to show (0 for all)")
	cmd.Flags().StringVar(&status, "status", "", "Only show jobs with this status")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print records as JSON")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a single job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				rec, err := store.Get(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Job:        %s\n", rec.JobID)
				fmt.Fprintf(out, "URL:        %s\n", rec.SourceURL)
				fmt.Fprintf(out, "Title:      %s\n", rec.Title)
				fmt.Fprintf(out, "Status:     %s\n", rec.Status)
				fmt.Fprintf(out, "Started:    %s\n", rec.CreatedAt.Local().Format(time.DateTime))
				fmt.Fprintf(out, "Duration:   %s\n", rec.Duration().Round(time.Second))
				if rec.OutputFile != "" {
					fmt.Fprintf(out, "Output:     %s (%s, %d bps audio)\n", rec.OutputFile, rec.VideoResolution, rec.AudioBitrate)
				}
				if rec.ErrorKind != "" {
					fmt.Fprintf(out, "Error:      [%s] %s\n", rec.ErrorKind, rec.ErrorMessage)
				}
				return nil
			})
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished jobs older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			return ctx.withHistory(func(store *history.Store) error {
				removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff, e.g. 720h")
	return cmd
}

func renderHistory(records []history.Record) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		detail := rec.VideoResolution
		if rec.Status == history.StatusFailed {
			detail = rec.ErrorKind
		}
		rows = append(rows, []string{
			shortJobID(rec.JobID),
			rec.CreatedAt.Local().Format(time.DateTime),
			string(rec.Status),
			rec.Title,
			detail,
			strconv.FormatFloat(rec.Duration().Seconds(), 'f', 0, 64) + "s",
		})
	}
	return renderTable(
		[]string{"Job", "Started", "Status", "Title", "Detail", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}
