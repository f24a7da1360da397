// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/case-intake/internal/intake"
	"github.com/pdiddy/case-intake/internal/logger"
	"github.com/pdiddy/case-intake/internal/metrics"
	"github.com/pdiddy/case-intake/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Process archives dropped into a folder",
	Long: `Watch monitors the drop folder and runs the intake pipeline for every
ZIP file that appears, one archive at a time. Archives already present are
processed at startup. After a run the archive is moved to the processed or
failed folder when those are configured.

With --metrics-addr, Prometheus metrics are served on /metrics.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var watchFlags = map[string]string{
	"drop-folder":      "watch.drop_folder",
	"debounce":         "watch.debounce",
	"processed-folder": "watch.processed_folder",
	"failed-folder":    "watch.failed_folder",
	"metrics-addr":     "watch.metrics_addr",
}

func runWatch(cmd *cobra.Command, args []string) error {
	keys := make(map[string]string, len(intakeFlags)+len(watchFlags))
	for k, v := range intakeFlags {
		keys[k] = v
	}
	for k, v := range watchFlags {
		keys[k] = v
	}
	cfg, err := loadConfig(cmd, keys)
	if err != nil {
		return err
	}

	reg, m := metrics.NewRegistry()
	p, cleanup, err := buildProcessor(cfg, intake.WithObserver(m))
	if err != nil {
		return err
	}
	defer cleanup()

	w, err := watch.New(cfg.Watch, p, logger.ComponentLogger("watch"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Watch.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(ctx, cfg.Watch.MetricsAddr, reg, logger.ComponentLogger("metrics"))
		})
	}
	g.Go(func() error {
		return w.Run(ctx)
	})
	return g.Wait()
}

func init() {
	addIntakeFlags(watchCmd)
	watchCmd.Flags().String("drop-folder", "", "folder watched for incoming archives")
	watchCmd.Flags().Duration("debounce", 0, "quiet period before a new archive is processed")
	watchCmd.Flags().String("processed-folder", "", "move successful archives here")
	watchCmd.Flags().String("failed-folder", "", "move failed archives here")
	watchCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")

	rootCmd.AddCommand(watchCmd)
}
