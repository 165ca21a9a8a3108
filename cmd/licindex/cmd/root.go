// Package cmd provides the CLI commands for licindex.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/licindex/licindex/internal/config"
	"github.com/licindex/licindex/internal/logging"
	"github.com/licindex/licindex/internal/service"
	"github.com/licindex/licindex/pkg/version"
)

// Persistent flags shared by every command.
var (
	configPath string
	debugMode  bool
)

// NewRootCmd creates the root command for the licindex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "licindex",
		Short: "Search index service for public procurement publications",
		Long: `licindex denormalizes procurement publications from a relational
source into a search index and serves filtered queries over it.

Indexing runs as cancellable background jobs with live progress;
'licindex serve' keeps the worker pool running, the other commands
operate on the same data directory one-shot.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.SetVersionTemplate("licindex version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to licindex.yaml (default: $LICINDEX_CONFIG, then ./licindex.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newJobsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// loadConfig loads the effective configuration for the current flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if debugMode {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// setupLogging builds the service logger from the configuration. The
// cleanup closes the log file; callers defer it.
func setupLogging(cfg *config.Config, toStderr bool) (*slog.Logger, func(), error) {
	logCfg := logging.Config{
		Level:         cfg.Logging.Level,
		FilePath:      cfg.Logging.File,
		MaxSizeMB:     cfg.Logging.MaxSizeMB,
		MaxFiles:      cfg.Logging.MaxFiles,
		WriteToStderr: toStderr && cfg.Logging.Stderr,
	}
	return logging.Setup(logCfg)
}

// newService loads configuration and builds the full service graph.
// One-shot read paths pass skipLock to coexist with a running serve.
func newService(skipLock bool) (*service.Service, *config.Config, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	log, logCleanup, err := setupLogging(cfg, false)
	if err != nil {
		return nil, nil, nil, err
	}

	svc, err := service.New(cfg, service.Options{
		Logger:   log,
		SkipLock: skipLock,
	})
	if err != nil {
		logCleanup()
		return nil, nil, nil, err
	}

	cleanup := func() {
		_ = svc.Stop()
		logCleanup()
	}
	return svc, cfg, cleanup, nil
}
