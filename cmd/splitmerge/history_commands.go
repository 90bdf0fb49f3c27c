package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"splitmerge/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the run ledger",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	return historyCmd
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						run.StartedAt.Local().Format("2006-01-02 15:04:05"),
						string(run.Status),
						run.Phase,
						yesNo(run.Split),
						strconv.Itoa(run.Chunks),
						strconv.Itoa(run.ContentChars),
						formatDuration(run.Duration()),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Started", "Status", "Phase", "Split", "Chunks", "Chars", "Duration"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show (0 for all)")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				run, err := findRun(cmd, store, args[0])
				if err != nil {
					return err
				}
				finished := "-"
				if !run.FinishedAt.IsZero() {
					finished = run.FinishedAt.Local().Format(time.RFC3339)
				}
				fields := [][2]string{
					{"ID", run.ID},
					{"Status", string(run.Status)},
					{"Started", run.StartedAt.Local().Format(time.RFC3339)},
					{"Finished", finished},
					{"Duration", formatDuration(run.Duration())},
					{"Model", run.Model},
					{"Template", run.TemplateName},
					{"Content", run.ContentPath},
					{"Content chars", strconv.Itoa(run.ContentChars)},
					{"Content BLAKE3", run.ContentDigest},
					{"Phase", run.Phase},
					{"Split", yesNo(run.Split)},
					{"Chunks", strconv.Itoa(run.Chunks)},
					{"Chunk chars", strconv.Itoa(run.ChunkChars)},
					{"Tokens limit", strconv.Itoa(run.TokensLimit)},
					{"Prompt tokens", strconv.Itoa(run.PromptTokens)},
					{"Completion tokens", strconv.Itoa(run.CompletionTokens)},
				}
				if run.Error != "" {
					fields = append(fields, [2]string{"Error", run.Error})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderFields(fields))
				return nil
			})
		},
	}
}

// findRun accepts a full run ID or a unique prefix as printed by list.
func findRun(cmd *cobra.Command, store *history.Store, id string) (*history.Run, error) {
	if run, err := store.Get(cmd.Context(), id); err == nil {
		return run, nil
	}
	runs, err := store.List(cmd.Context(), 0)
	if err != nil {
		return nil, err
	}
	var match *history.Run
	for _, run := range runs {
		if len(run.ID) >= len(id) && run.ID[:len(id)] == id {
			if match != nil {
				return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
			}
			match = run
		}
	}
	if match == nil {
		return nil, fmt.Errorf("run %s not found", id)
	}
	return match, nil
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished runs from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				var (
					removed int64
					err     error
				)
				if all {
					removed, err = store.ClearAll(cmd.Context())
				} else {
					removed, err = store.Clear(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s)\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Also remove runs still marked running")
	return cmd
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
