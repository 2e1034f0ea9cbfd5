// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/curriculum-tutor/internal/config"
	"github.com/pdiddy/curriculum-tutor/internal/history"
	"github.com/pdiddy/curriculum-tutor/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past runs recorded with --history",
	Long: `History reads the SQLite database written by "tutor run --history".
Use subcommands to list recent runs or show one in full.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := history.Open(v.GetString(config.KeyHistoryDB))
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}
	return formatHistoryList(cmd.OutOrStdout(), runs, jsonOutput)
}

func formatHistoryList(w io.Writer, runs []history.Summary, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if runs == nil {
			runs = []history.Summary{}
		}
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-12s  %-20s  %-19s  %8s  %s\n", "ID", "Started", "Outcome", "Duration", "Goal")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range runs {
		goal := truncate(string(r.Goal), 30)
		fmt.Fprintf(w, "%-12s  %-20s  %-19s  %8s  %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Outcome,
			r.Duration.Round(100*time.Millisecond), goal)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(runs))
	return nil
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded run with its outline, verdict, and lessons",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(v.GetString(config.KeyHistoryDB))
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		report.Print(cmd.OutOrStdout(), rec)
		return nil
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyListCmd.Flags().Bool("json", false, "output runs as JSON")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}
