package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/licindex/licindex/internal/joblog"
	"github.com/licindex/licindex/internal/store"
)

// Reaper periodically retires terminal job records older than the
// retention window and frees log buffers whose job id no longer exists
// in the durable store. It is the only source of automatic log-buffer
// cleanup; buffers never self-expire.
type Reaper struct {
	store     store.JobStore
	logs      *joblog.Aggregator
	interval  time.Duration
	retention time.Duration
	log       *slog.Logger

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewReaper creates a reaper sweeping every interval, deleting terminal
// jobs older than retention.
func NewReaper(jobStore store.JobStore, logs *joblog.Aggregator, interval, retention time.Duration, log *slog.Logger) *Reaper {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Reaper{
		store:     jobStore,
		logs:      logs,
		interval:  interval,
		retention: retention,
		log:       log,
	}
}

// Start launches the sweep loop in the background.
func (r *Reaper) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, _, err := r.SweepOnce(ctx); err != nil {
					r.log.Error("reaper_sweep_failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	r.log.Debug("reaper_started",
		slog.Duration("interval", r.interval),
		slog.Duration("retention", r.retention))
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
		r.wg.Wait()
		r.log.Debug("reaper_stopped")
	})
}

// SweepOnce runs one sweep: delete expired terminal records, then drop
// orphaned log buffers. Returns the record and buffer counts removed.
func (r *Reaper) SweepOnce(ctx context.Context) (int64, int, error) {
	cutoff := time.Now().UTC().Add(-r.retention)

	deleted, err := r.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, 0, err
	}

	known, err := r.store.AllIDs(ctx)
	if err != nil {
		return deleted, 0, err
	}
	keep := make(map[string]struct{}, len(known))
	for _, id := range known {
		keep[id] = struct{}{}
	}

	removed := 0
	for _, id := range r.logs.JobIDs() {
		if _, ok := keep[id]; ok {
			continue
		}
		r.logs.Remove(id)
		removed++
	}

	if deleted > 0 || removed > 0 {
		r.log.Info("reaper_sweep",
			slog.Int64("jobs_deleted", deleted),
			slog.Int("buffers_removed", removed))
	}

	return deleted, removed, nil
}
