// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/case-intake/internal/intake"
	"github.com/pdiddy/case-intake/pkg/types"
)

var processCmd = &cobra.Command{
	Use:   "process <archive.zip> [archive.zip...]",
	Short: "Validate and extract one or more case archives",
	Long: `Process runs the intake pipeline for each archive in order: find party.xml,
validate it against the party schema, and extract whitelisted files into
<case-files-folder>/<applicationno>-<uuid>. A status report is sent to the
administrator for every archive.

Exits non-zero when any archive fails.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, intakeFlags)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")

	p, cleanup, err := buildProcessor(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := p.ProcessBatch(ctx, args)
	if err := writeOutcomes(os.Stdout, format, args, res.Outcomes); err != nil {
		return err
	}
	if res.Failed > 0 || len(res.Outcomes) < len(args) {
		return fmt.Errorf("%s", res)
	}
	return nil
}

type archiveOutcome struct {
	Archive       string `json:"archive" yaml:"archive"`
	types.Outcome `yaml:",inline"`
}

func writeOutcomes(w io.Writer, format string, paths []string, outcomes []types.Outcome) error {
	rows := make([]archiveOutcome, len(outcomes))
	for i, o := range outcomes {
		rows[i] = archiveOutcome{Archive: paths[i], Outcome: o}
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		for _, r := range rows {
			fmt.Fprintf(w, "%s: %s\n", r.Archive, intake.StatusMessage(r.Outcome))
		}
		return nil
	}
	return fmt.Errorf("unsupported format %q: use text, yaml, or json", format)
}

func init() {
	addIntakeFlags(processCmd)
	processCmd.Flags().String("format", "text", "output format: text, yaml, or json")

	rootCmd.AddCommand(processCmd)
}
