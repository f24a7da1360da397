// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/pdiddy/case-intake/internal/intake"
	"github.com/pdiddy/case-intake/internal/ledger"
	"github.com/pdiddy/case-intake/internal/logger"
	"github.com/pdiddy/case-intake/internal/notify"
	"github.com/pdiddy/case-intake/pkg/types"
)

// buildProcessor wires the notifier and optional ledger into a Processor.
// The returned cleanup closes the ledger. Staging folders left by earlier
// interrupted runs are reported before the first archive is processed.
func buildProcessor(cfg types.Config, opts ...intake.Option) (*intake.Processor, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	n, err := notify.New(cfg.Notify, logger.ComponentLogger("notify"))
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	if cfg.Ledger.Path != "" {
		store, err := ledger.NewStore(cfg.Ledger)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { store.Close() }
		opts = append(opts, intake.WithRecorder(store))
	}

	p, err := intake.NewProcessor(cfg.Intake, n, logger.ComponentLogger("intake"), opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	p.StaleStaging()
	return p, cleanup, nil
}
