package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licindex/licindex/internal/errors"
	"github.com/licindex/licindex/internal/joblog"
	"github.com/licindex/licindex/internal/store"
)

// newTestRegistry wires a registry over in-memory collaborators. The
// pool is returned unstarted so tests control when units run.
func newTestRegistry(t *testing.T) (*Registry, *Pool, store.JobStore) {
	t.Helper()

	js, err := store.NewSQLiteJobStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = js.Close() })

	pool := NewPool(2, 16)
	reg, err := NewRegistry(RegistryDependencies{
		Store: js,
		Logs:  joblog.NewAggregator(100),
		Pool:  pool,
	})
	require.NoError(t, err)

	return reg, pool, js
}

func TestRegistry_CreatePersistsBeforeScheduling(t *testing.T) {
	// Given: a registry whose pool never starts
	reg, _, _ := newTestRegistry(t)

	// When: creating a job
	id, err := reg.Create(context.Background(), SingleParams{PublicacionID: 42}, 7)
	require.NoError(t, err)

	// Then: the durable record exists and reads running
	job, err := reg.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusRunning, job.Status)
	assert.Equal(t, store.JobTypeSingle, job.Type)
	assert.Equal(t, int64(7), job.Owner)
}

func TestRegistry_CreateRejectsInvalidParams(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	_, err := reg.Create(context.Background(), SingleParams{}, 0)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidParams, errors.GetCode(err))
}

func TestRegistry_StopBeforeStart(t *testing.T) {
	// Given: a job submitted to a pool that has not started
	reg, pool, _ := newTestRegistry(t)

	id, err := reg.Create(context.Background(), SyncParams{Since: "2026-01-01 00:00:00"}, 0)
	require.NoError(t, err)

	var ran atomic.Bool
	require.NoError(t, reg.Submit(id, func(ctx context.Context) {
		ran.Store(true)
	}))

	// When: stopping before the unit ever runs
	stopped, err := reg.Stop(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, stopped)

	// Then: the record is stopped with zero progress and the unit is
	// prevented from running even once workers start
	pool.Start(context.Background())
	pool.Stop()

	job, err := reg.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusStopped, job.Status)
	assert.Equal(t, 0, job.Progress.Indexed)
	assert.False(t, ran.Load())
}

func TestRegistry_StopRunningJobCancelsContext(t *testing.T) {
	// Given: a unit blocked mid-run
	reg, pool, _ := newTestRegistry(t)
	pool.Start(context.Background())
	defer pool.Stop()

	id, err := reg.Create(context.Background(), BulkParams{}, 0)
	require.NoError(t, err)

	started := make(chan struct{})
	finished := make(chan struct{})
	require.NoError(t, reg.Submit(id, func(ctx context.Context) {
		close(started)
		// Cooperative cancellation: wait for the flag, then finalize.
		<-ctx.Done()
		_, _ = reg.Finalize(context.Background(), id, store.StatusStopped, "")
		close(finished)
	}))

	<-started

	// When: stopping the running job
	stopped, err := reg.Stop(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, stopped)

	// Then: the executor observes the cancellation and finalizes
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("executor never observed cancellation")
	}

	job, err := reg.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusStopped, job.Status)
}

func TestRegistry_StopWithoutHandleForcesStopped(t *testing.T) {
	// Given: a running record with no in-memory handle, as after a
	// process restart
	reg, _, js := newTestRegistry(t)

	id, err := reg.Create(context.Background(), BulkParams{}, 0)
	require.NoError(t, err)

	// When: stopping it
	stopped, err := reg.Stop(context.Background(), id)
	require.NoError(t, err)

	// Then: best-effort reconciliation marks it stopped
	assert.True(t, stopped)
	job, err := js.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusStopped, job.Status)
}

func TestRegistry_StopTerminalJobIsNoOp(t *testing.T) {
	// Given: an already completed job
	reg, _, _ := newTestRegistry(t)

	id, err := reg.Create(context.Background(), BulkParams{}, 0)
	require.NoError(t, err)
	applied, err := reg.Finalize(context.Background(), id, store.StatusCompleted, "")
	require.NoError(t, err)
	require.True(t, applied)

	// When: stopping it
	stopped, err := reg.Stop(context.Background(), id)
	require.NoError(t, err)

	// Then: nothing applies; the terminal state is final
	assert.False(t, stopped)
	job, err := reg.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, job.Status)
}

func TestRegistry_StopUnknownJob(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	_, err := reg.Stop(context.Background(), "no-such-job")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeJobNotFound, errors.GetCode(err))
}

func TestRegistry_FinalizeRace_LastWriterWins(t *testing.T) {
	// Given: a running job
	reg, _, _ := newTestRegistry(t)

	id, err := reg.Create(context.Background(), BulkParams{}, 0)
	require.NoError(t, err)

	// When: two terminal transitions race
	first, err := reg.Finalize(context.Background(), id, store.StatusCompleted, "")
	require.NoError(t, err)
	second, err := reg.Finalize(context.Background(), id, store.StatusStopped, "")
	require.NoError(t, err)

	// Then: exactly one applies and the record keeps the winner
	assert.True(t, first)
	assert.False(t, second)
	job, err := reg.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, job.Status)
}

func TestRegistry_LogsSinceEnvelope(t *testing.T) {
	// Given: a job that logged twice
	reg, _, _ := newTestRegistry(t)

	id, err := reg.Create(context.Background(), BulkParams{}, 0)
	require.NoError(t, err)

	logger := reg.Logger(id)
	logger.Info("first")
	logger.Info("second")

	// When: polling without a since timestamp
	page := reg.LogsSince(id, "")

	// Then: the envelope carries both records and the cursor
	require.Len(t, page.Logs, 2)
	assert.Equal(t, page.Logs[1].Timestamp, page.LastTimestamp)
	assert.False(t, page.HasMore)

	// And: polling from the cursor returns nothing new
	next := reg.LogsSince(id, page.LastTimestamp)
	assert.Empty(t, next.Logs)
}
