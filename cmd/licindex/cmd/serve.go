package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/licindex/licindex/internal/output"
	"github.com/licindex/licindex/internal/service"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the indexing service until interrupted",
		Long: `Run the indexing service in the foreground: the worker pool and the
retention reaper stay up until SIGINT or SIGTERM.

While serve runs it holds the instance lock on the data directory, so
index commands from other shells are refused; run them through the
service or stop it first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
	return cmd
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, logCleanup, err := setupLogging(cfg, true)
	if err != nil {
		return err
	}
	defer logCleanup()

	svc, err := service.New(cfg, service.Options{Logger: log})
	if err != nil {
		return err
	}
	defer func() { _ = svc.Stop() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Start(ctx); err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	out.Successf("licindex serving on %s (ctrl-c to stop)", cfg.DataDir)

	<-ctx.Done()
	out.Status("", "shutting down")
	return svc.Stop()
}
