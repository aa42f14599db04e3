// Command hftcore runs the treasury market-making execution core.
//
// Subcommands:
//
//	hftcore run      — load config, start the engine and (optionally) the
//	                    observability API, run until SIGINT/SIGTERM
//	hftcore replay    — feed a recorded JSON tick tape through the engine
//	                    for offline testing, then print final stats
//	hftcore version   — print the build version
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"hftcore/internal/config"
)

// version is overridable at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "hftcore",
		Short: "Low-latency treasury market-making execution core",
	}

	root.AddCommand(newRunCmd(), newReplayCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return &cfg, nil
	}
	return config.Load(path)
}
