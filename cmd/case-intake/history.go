// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/case-intake/internal/ledger"
	"github.com/pdiddy/case-intake/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded intake outcomes",
	Long: `History reads the outcome ledger and lists past runs, newest first.
Filter by result, failure kind, or age; use --summary for counts only.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{"ledger": "ledger.path"})
	if err != nil {
		return err
	}
	if cfg.Ledger.Path == "" {
		return fmt.Errorf("no ledger configured: set ledger.path or --ledger")
	}

	store, err := ledger.NewStore(cfg.Ledger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if summary, _ := cmd.Flags().GetBool("summary"); summary {
		sum, err := store.Summarize(ctx)
		if err != nil {
			return err
		}
		printSummary(os.Stdout, sum)
		return nil
	}

	opts, err := listOptsFromFlags(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "" {
		return store.Export(ctx, os.Stdout, ledger.Format(format), opts)
	}
	records, err := store.List(ctx, opts)
	if err != nil {
		return err
	}
	printRecords(os.Stdout, records)
	return nil
}

func listOptsFromFlags(cmd *cobra.Command) (ledger.ListOptions, error) {
	limit, _ := cmd.Flags().GetInt("limit")
	kind, _ := cmd.Flags().GetString("kind")
	since, _ := cmd.Flags().GetDuration("since")
	failed, _ := cmd.Flags().GetBool("failed")
	succeeded, _ := cmd.Flags().GetBool("succeeded")

	opts := ledger.ListOptions{Limit: limit, Kind: kind}
	switch {
	case failed && succeeded:
		return opts, fmt.Errorf("--failed and --succeeded are mutually exclusive")
	case failed:
		v := false
		opts.Success = &v
	case succeeded:
		v := true
		opts.Success = &v
	}
	if since > 0 {
		opts.Since = time.Now().Add(-since)
	}
	return opts, nil
}

func printRecords(w io.Writer, records []types.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No outcomes recorded.")
		return
	}

	fmt.Fprintf(w, "%-20s  %-7s  %-18s  %-30s  %s\n", "Started", "Result", "Kind", "Archive", "Folder / Message")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, r := range records {
		result, detail := "ok", r.Folder
		if !r.Success {
			result, detail = "FAILED", r.Message
		}
		archive := r.Archive
		if len(archive) > 30 {
			archive = "..." + archive[len(archive)-27:]
		}
		fmt.Fprintf(w, "%-20s  %-7s  %-18s  %-30s  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), result, r.Kind, archive, detail)
	}
	fmt.Fprintf(w, "\n%d outcomes\n", len(records))
}

func printSummary(w io.Writer, sum ledger.Summary) {
	fmt.Fprintf(w, "%d runs: %d succeeded, %d failed\n", sum.Total(), sum.Succeeded, sum.Failed)
	for kind, n := range sum.ByKind {
		fmt.Fprintf(w, "  %-18s %d\n", kind, n)
	}
}

func init() {
	historyCmd.Flags().String("ledger", "", "path to the SQLite outcome ledger")
	historyCmd.Flags().Int("limit", 0, "maximum rows (0 = 50)")
	historyCmd.Flags().String("kind", "", "only failures of this kind, e.g. validation")
	historyCmd.Flags().Duration("since", 0, "only runs started within this duration, e.g. 24h")
	historyCmd.Flags().Bool("failed", false, "only failed runs")
	historyCmd.Flags().Bool("succeeded", false, "only successful runs")
	historyCmd.Flags().Bool("summary", false, "print counts by result and kind")
	historyCmd.Flags().String("format", "text", "output format: text, yaml, or json")

	rootCmd.AddCommand(historyCmd)
}
