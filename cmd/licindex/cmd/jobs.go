package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/licindex/licindex/internal/jobs"
	"github.com/licindex/licindex/internal/output"
	"github.com/licindex/licindex/internal/store"
	"github.com/licindex/licindex/internal/ui"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and control indexing jobs",
		Long: `Inspect and control indexing jobs.

Job records are durable: terminal jobs stay queryable until the
retention sweep removes them. Log buffers live with the process that
ran the job, so 'jobs logs' from another process shows durable state
only.`,
	}

	cmd.AddCommand(newJobsListCmd())
	cmd.AddCommand(newJobsShowCmd())
	cmd.AddCommand(newJobsStopCmd())
	cmd.AddCommand(newJobsLogsCmd())
	cmd.AddCommand(newJobsWatchCmd())

	return cmd
}

func newJobsListCmd() *cobra.Command {
	var (
		status     string
		jobType    string
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, cleanup, err := newService(true)
			if err != nil {
				return err
			}
			defer cleanup()

			list, err := svc.Registry().List(cmd.Context(), store.JobFilter{
				Status: store.JobStatus(status),
				Type:   store.JobType(jobType),
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}

			out := output.New(cmd.OutOrStdout())
			if len(list) == 0 {
				out.Status("", "no jobs")
				return nil
			}
			for _, job := range list {
				out.Statusf("", "%s  %-26s %-10s %d/%d indexed=%d failed=%d  %s",
					job.ID, job.Type, job.Status,
					job.Progress.Current, job.Progress.Total,
					job.Progress.Indexed, job.Progress.Failed,
					job.StartedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status: running, completed, failed, stopped")
	cmd.Flags().StringVar(&jobType, "type", "", "Filter by job type")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of jobs")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newJobsShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, cleanup, err := newService(true)
			if err != nil {
				return err
			}
			defer cleanup()

			job, err := svc.Registry().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(job)
			}

			out := output.New(cmd.OutOrStdout())
			out.Statusf("", "id:       %s", job.ID)
			out.Statusf("", "type:     %s", job.Type)
			out.Statusf("", "status:   %s", job.Status)
			out.Statusf("", "progress: %d/%d indexed=%d failed=%d",
				job.Progress.Current, job.Progress.Total,
				job.Progress.Indexed, job.Progress.Failed)
			if job.Progress.Message != "" {
				out.Statusf("", "message:  %s", job.Progress.Message)
			}
			if job.Error != "" {
				out.Statusf("", "error:    %s", job.Error)
			}
			if len(job.Params) > 0 {
				out.Statusf("", "params:   %s", string(job.Params))
			}
			out.Statusf("", "started:  %s", job.StartedAt.Format(time.RFC3339))
			if job.CompletedAt != nil {
				out.Statusf("", "finished: %s", job.CompletedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newJobsStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <job-id>",
		Short: "Request cooperative cancellation of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, cleanup, err := newService(true)
			if err != nil {
				return err
			}
			defer cleanup()

			out := output.New(cmd.OutOrStdout())
			stopped, err := svc.Registry().Stop(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if stopped {
				out.Successf("job %s stop requested", args[0])
			} else {
				out.Statusf("", "job %s is already terminal", args[0])
			}
			return nil
		},
	}
}

func newJobsLogsCmd() *cobra.Command {
	var (
		since      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "logs <job-id>",
		Short: "Show buffered log records of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, cleanup, err := newService(true)
			if err != nil {
				return err
			}
			defer cleanup()

			// Resolve the id first so an unknown job errors instead of
			// rendering an empty buffer.
			if _, err := svc.Registry().Get(cmd.Context(), args[0]); err != nil {
				return err
			}

			page := svc.Registry().LogsSince(args[0], since)

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(page)
			}

			out := output.New(cmd.OutOrStdout())
			if len(page.Logs) == 0 {
				out.Status("", "no buffered logs for this job in this process")
				return nil
			}
			for _, rec := range page.Logs {
				out.Statusf("", "%s [%s] %s", rec.Timestamp, rec.Level, rec.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Only records after this timestamp cursor")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newJobsWatchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Watch a job until it reaches a terminal state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, cleanup, err := newService(true)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := svc.Registry().Get(cmd.Context(), args[0]); err != nil {
				return err
			}

			watcher := ui.NewWatcher(ui.Config{
				Output:   cmd.OutOrStdout(),
				Interval: interval,
			}, newRegistryPoller(svc.Registry(), args[0]))
			return watcher.Watch(cmd.Context())
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", ui.DefaultPollInterval, "Poll interval")

	return cmd
}

// registryPoller adapts the job registry to the watcher's poll surface.
type registryPoller struct {
	reg   *jobs.Registry
	jobID string
}

func newRegistryPoller(reg *jobs.Registry, jobID string) *registryPoller {
	return &registryPoller{reg: reg, jobID: jobID}
}

func (p *registryPoller) Poll(ctx context.Context, sinceLog string) (ui.JobView, error) {
	job, err := p.reg.Get(ctx, p.jobID)
	if err != nil {
		return ui.JobView{}, fmt.Errorf("failed to poll job %s: %w", p.jobID, err)
	}
	return ui.JobView{
		Job:  job,
		Logs: p.reg.Logs(p.jobID, sinceLog),
	}, nil
}
