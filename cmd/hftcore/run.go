package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hftcore/internal/api"
	"hftcore/internal/engine"
	"hftcore/internal/venue"
)

func newRunCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the execution core until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMain(cfgPath)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config YAML (defaults to built-in defaults)")
	return cmd
}

func runMain(cfgPath string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg.Logging)
	eng := engine.New(*cfg, logger)

	if !eng.AddVenue("primary", venue.DefaultConfig(), 1.0, 1) {
		return fmt.Errorf("failed to register primary venue")
	}

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.NewServer(cfg.API, eng, logger)
		eng.SetEventSink(apiServer.Hub())
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("api server failed", "error", err)
			}
		}()
		logger.Info("api server started", "url", fmt.Sprintf("http://localhost:%d", cfg.API.Port))
	}

	eng.Start()

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE — no venue fills will be applied to live position state")
	}

	logger.Info("hftcore started",
		"max_position_per_instrument", humanize.Comma(cfg.Risk.MaxPositionPerInstrument),
		"max_total_position", humanize.Comma(cfg.Risk.MaxTotalPosition),
		"dry_run", cfg.DryRun,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error("failed to stop api server", "error", err)
		}
	}
	eng.Stop()

	stats := eng.Stats()
	logger.Info("hftcore stopped",
		"frames_processed", humanize.Comma(int64(stats.FramesProcessed)),
		"fills_applied", humanize.Comma(int64(stats.FillsApplied)),
	)
	return nil
}
