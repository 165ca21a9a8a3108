package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/licindex/licindex/internal/jobs"
	"github.com/licindex/licindex/internal/output"
	"github.com/licindex/licindex/internal/store"
	"github.com/licindex/licindex/internal/ui"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Run an indexing recipe as a background job",
		Long: `Run one of the indexing recipes. The job is submitted to the worker
pool and watched until it reaches a terminal state.

Recipes:
  licitacion  index a single publication by id
  scraper     index publications of one scraper changed since a timestamp
  sync        index all publications changed since a timestamp
  bulk        full reindex of every publication, page by page`,
	}

	cmd.AddCommand(newIndexLicitacionCmd())
	cmd.AddCommand(newIndexScraperCmd())
	cmd.AddCommand(newIndexSyncCmd())
	cmd.AddCommand(newIndexBulkCmd())

	return cmd
}

func newIndexLicitacionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "licitacion <id>",
		Short: "Index a single publication",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid publication id %q: %w", args[0], err)
			}
			return runIndexJob(cmd, jobs.SingleParams{PublicacionID: id})
		},
	}
}

func newIndexScraperCmd() *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "scraper <scraper-id>",
		Short: "Index publications of one scraper changed since a timestamp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexJob(cmd, jobs.ScraperParams{ScraperID: args[0], Since: since})
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Lower bound on the edit timestamp (e.g. '2026-01-01 00:00:00')")
	_ = cmd.MarkFlagRequired("since")

	return cmd
}

func newIndexSyncCmd() *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Index all publications changed since a timestamp",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndexJob(cmd, jobs.SyncParams{Since: since})
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Lower bound on the edit timestamp (e.g. '2026-01-01 00:00:00')")
	_ = cmd.MarkFlagRequired("since")

	return cmd
}

func newIndexBulkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bulk",
		Short: "Full reindex of every publication",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndexJob(cmd, jobs.BulkParams{})
		},
	}
}

// runIndexJob builds the service, submits the recipe, and watches the
// job until it is terminal. The command exits non-zero unless the job
// completes.
func runIndexJob(cmd *cobra.Command, params jobs.Params) error {
	svc, _, cleanup, err := newService(false)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if err := svc.Start(ctx); err != nil {
		return err
	}

	jobID, err := svc.SubmitJob(ctx, params, 0)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	out.Statusf("", "job %s (%s) submitted", jobID, params.JobType())

	watcher := ui.NewWatcher(ui.Config{Output: cmd.OutOrStdout()}, newRegistryPoller(svc.Registry(), jobID))
	if err := watcher.Watch(ctx); err != nil {
		return err
	}

	job, err := svc.Registry().Get(ctx, jobID)
	if err != nil {
		return err
	}

	switch job.Status {
	case store.StatusCompleted:
		out.Successf("job %s completed: %d indexed, %d failed", jobID, job.Progress.Indexed, job.Progress.Failed)
		return nil
	case store.StatusStopped:
		out.Warningf("job %s stopped: %d indexed, %d failed", jobID, job.Progress.Indexed, job.Progress.Failed)
		return nil
	default:
		out.Errorf("job %s failed: %s", jobID, job.Error)
		return fmt.Errorf("job %s failed: %s", jobID, job.Error)
	}
}
