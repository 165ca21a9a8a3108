package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/licindex/licindex/internal/errors"
	"github.com/licindex/licindex/internal/joblog"
	"github.com/licindex/licindex/internal/store"
)

// UnitOfWork is the executor body of one job. The context carries the
// job's cancellation: the unit must check it between items and exit
// early when cancelled, finalizing the job itself.
type UnitOfWork func(ctx context.Context)

// handle is the in-memory cancellation state of one submitted job. It
// is not durable; a process restart loses it, which Stop reconciles by
// force-marking the durable record.
type handle struct {
	cancel context.CancelFunc

	mu        sync.Mutex
	started   bool
	cancelled bool
}

// markStarted flags the unit as running unless it was cancelled first.
// Returns whether the unit may proceed.
func (h *handle) markStarted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancelled {
		return false
	}
	h.started = true
	return true
}

// markCancelled flags the handle and reports whether the unit had
// already started.
func (h *handle) markCancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cancelled = true
	return h.started
}

// RegistryDependencies contains the injected collaborators for Registry.
type RegistryDependencies struct {
	// Store persists the durable job records (required).
	Store store.JobStore

	// Logs is the per-job log aggregator (required).
	Logs *joblog.Aggregator

	// Pool executes submitted units (required).
	Pool *Pool

	// Logger is the service log. Defaults to slog.Default().
	Logger *slog.Logger
}

// Registry owns the job lifecycle: durable records plus the in-memory
// cancellation-handle table. It replaces any package-level state; one
// instance is constructed at wiring time and injected everywhere.
type Registry struct {
	store store.JobStore
	logs  *joblog.Aggregator
	pool  *Pool
	log   *slog.Logger

	mu      sync.Mutex
	handles map[string]*handle
}

// NewRegistry creates a Registry with injected dependencies.
func NewRegistry(deps RegistryDependencies) (*Registry, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("job store is required")
	}
	if deps.Logs == nil {
		return nil, fmt.Errorf("log aggregator is required")
	}
	if deps.Pool == nil {
		return nil, fmt.Errorf("worker pool is required")
	}

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Registry{
		store:   deps.Store,
		logs:    deps.Logs,
		pool:    deps.Pool,
		log:     log,
		handles: make(map[string]*handle),
	}, nil
}

// Create validates the typed params and persists the durable record,
// synchronously, before any work is scheduled. The returned job id is
// resolvable even if the worker never starts.
func (r *Registry) Create(ctx context.Context, params Params, owner int64) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	raw, err := MarshalParams(params)
	if err != nil {
		return "", err
	}

	job := &store.Job{
		ID:        uuid.NewString(),
		Type:      params.JobType(),
		Status:    store.StatusRunning,
		Params:    raw,
		Owner:     owner,
		StartedAt: time.Now().UTC(),
	}

	if err := r.store.Create(ctx, job); err != nil {
		return "", err
	}

	r.log.Info("job_created",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.Type)),
		slog.Int64("owner", owner))

	return job.ID, nil
}

// Submit schedules the unit onto the worker pool and registers its
// cancellation handle. A unit stopped before it starts never runs; the
// durable record is marked stopped by Stop, not by the worker.
func (r *Registry) Submit(jobID string, unit UnitOfWork) error {
	jobCtx, cancel := context.WithCancel(context.Background())
	h := &handle{cancel: cancel}

	r.mu.Lock()
	if _, exists := r.handles[jobID]; exists {
		r.mu.Unlock()
		cancel()
		return fmt.Errorf("job %s is already submitted", jobID)
	}
	r.handles[jobID] = h
	r.mu.Unlock()

	err := r.pool.Submit(func(poolCtx context.Context) {
		defer r.release(jobID)

		if !h.markStarted() {
			return
		}

		// Tie the job context to the pool shutdown as well.
		stop := context.AfterFunc(poolCtx, cancel)
		defer stop()

		unit(jobCtx)
	})
	if err != nil {
		r.release(jobID)
		cancel()
		return errors.InternalError(fmt.Sprintf("failed to schedule job %s", jobID), err)
	}

	return nil
}

// Stop requests cancellation of a job. Three cases:
//   - not yet started: the unit never runs; the record is marked stopped
//     here, immediately.
//   - started: the handle's context is cancelled; the executor observes
//     it between items and finalizes the record itself.
//   - no handle but the durable record still reads running (process was
//     restarted, or the handle is gone): force-mark stopped as
//     best-effort reconciliation.
//
// Returns whether a stop was initiated or applied.
func (r *Registry) Stop(ctx context.Context, jobID string) (bool, error) {
	r.mu.Lock()
	h, ok := r.handles[jobID]
	r.mu.Unlock()

	if ok {
		started := h.markCancelled()
		h.cancel()

		if started {
			// The running executor owns the terminal transition.
			r.log.Info("job_stop_requested", slog.String("job_id", jobID))
			return true, nil
		}

		applied, err := r.store.UpdateStatus(ctx, jobID, store.StatusStopped, "")
		if err != nil {
			return false, err
		}
		r.log.Info("job_stopped_before_start",
			slog.String("job_id", jobID),
			slog.Bool("applied", applied))
		return true, nil
	}

	job, err := r.store.Get(ctx, jobID)
	if err != nil {
		return false, err
	}
	if job.Status != store.StatusRunning {
		return false, nil
	}

	// Orphaned running record. Single-process deployment makes this
	// reconciliation safe; see the deployment assumptions.
	applied, err := r.store.UpdateStatus(ctx, jobID, store.StatusStopped, "")
	if err != nil {
		return false, err
	}
	r.log.Warn("job_force_stopped", slog.String("job_id", jobID), slog.Bool("applied", applied))
	return applied, nil
}

// UpdateProgress overwrites the durable progress snapshot. Only the
// executor that owns the job calls this.
func (r *Registry) UpdateProgress(ctx context.Context, jobID string, p store.Progress) error {
	return r.store.UpdateProgress(ctx, jobID, p)
}

// Finalize moves the job into a terminal status. The guarded store
// update makes terminal states final: whichever of stop() and a natural
// completion lands first wins, the loser is a no-op.
func (r *Registry) Finalize(ctx context.Context, jobID string, status store.JobStatus, errMsg string) (bool, error) {
	applied, err := r.store.UpdateStatus(ctx, jobID, status, errMsg)
	if err != nil {
		return false, err
	}

	r.log.Info("job_finalized",
		slog.String("job_id", jobID),
		slog.String("status", string(status)),
		slog.Bool("applied", applied))

	return applied, nil
}

// Get returns the durable job record.
func (r *Registry) Get(ctx context.Context, jobID string) (*store.Job, error) {
	return r.store.Get(ctx, jobID)
}

// List returns job records matching the filter, newest first.
func (r *Registry) List(ctx context.Context, filter store.JobFilter) ([]*store.Job, error) {
	return r.store.List(ctx, filter)
}

// Logs returns the job's buffered records strictly after since.
func (r *Registry) Logs(jobID string, since string) []joblog.Record {
	return r.logs.Query(jobID, since)
}

// LogPage is the poll envelope for the log surface.
type LogPage struct {
	Logs          []joblog.Record `json:"logs"`
	LastTimestamp string          `json:"last_timestamp,omitempty"`
	HasMore       bool            `json:"has_more"`
}

// LogsSince returns the poll envelope for the job's logs after since.
func (r *Registry) LogsSince(jobID string, since string) LogPage {
	records := r.logs.Query(jobID, since)
	page := LogPage{Logs: records}
	if len(records) > 0 {
		page.LastTimestamp = records[len(records)-1].Timestamp
	}
	return page
}

// Logger returns the job-scoped logger: records land in the job's ring
// buffer and in the service log.
func (r *Registry) Logger(jobID string) *slog.Logger {
	return r.logs.Logger(jobID, r.log)
}

// Active returns the ids that currently hold a cancellation handle.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	return ids
}

// release drops the handle after the unit finished (or never started).
func (r *Registry) release(jobID string) {
	r.mu.Lock()
	delete(r.handles, jobID)
	r.mu.Unlock()
}

// RawParams re-validates a durable record's parameter bag into its typed
// variant, for executors resolving a job they did not create.
func RawParams(job *store.Job) (Params, error) {
	return ParseParams(job.Type, json.RawMessage(job.Params))
}
