package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licindex/licindex/internal/joblog"
	"github.com/licindex/licindex/internal/store"
)

func newTerminalJob(t *testing.T, js store.JobStore, status store.JobStatus) string {
	t.Helper()

	job := &store.Job{
		ID:        uuid.NewString(),
		Type:      store.JobTypeBulk,
		Status:    store.StatusRunning,
		Params:    json.RawMessage(`{}`),
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, js.Create(context.Background(), job))
	if status != store.StatusRunning {
		_, err := js.UpdateStatus(context.Background(), job.ID, status, "")
		require.NoError(t, err)
	}
	return job.ID
}

func TestReaper_SweepDeletesExpiredTerminalJobs(t *testing.T) {
	// Given: a store holding one terminal and one running job, each
	// with a log buffer
	js, err := store.NewSQLiteJobStore("")
	require.NoError(t, err)
	defer func() { _ = js.Close() }()

	logs := joblog.NewAggregator(10)
	expired := newTerminalJob(t, js, store.StatusCompleted)
	running := newTerminalJob(t, js, store.StatusRunning)
	logs.Append(expired, joblog.Record{Message: "done", JobID: expired})
	logs.Append(running, joblog.Record{Message: "working", JobID: running})

	// A negative retention puts the cutoff in the future, aging every
	// terminal record past it.
	r := NewReaper(js, logs, time.Hour, -time.Minute, nil)

	// When: sweeping once
	deleted, removed, err := r.SweepOnce(context.Background())
	require.NoError(t, err)

	// Then: the expired job and its buffer are gone on the same sweep
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 1, removed)

	_, err = js.Get(context.Background(), expired)
	require.Error(t, err)
	assert.Empty(t, logs.Query(expired, ""))

	// And: the running job and its buffer survive
	_, err = js.Get(context.Background(), running)
	require.NoError(t, err)
	assert.Len(t, logs.Query(running, ""), 1)
}

func TestReaper_SweepKeepsRecentTerminalJobs(t *testing.T) {
	// Given: a job completed moments ago and a 30 day retention
	js, err := store.NewSQLiteJobStore("")
	require.NoError(t, err)
	defer func() { _ = js.Close() }()

	logs := joblog.NewAggregator(10)
	recent := newTerminalJob(t, js, store.StatusCompleted)
	logs.Append(recent, joblog.Record{Message: "done", JobID: recent})

	r := NewReaper(js, logs, time.Hour, 30*24*time.Hour, nil)

	// When: sweeping
	deleted, removed, err := r.SweepOnce(context.Background())
	require.NoError(t, err)

	// Then: nothing is removed
	assert.Zero(t, deleted)
	assert.Zero(t, removed)
}

func TestReaper_SweepRemovesOrphanedBuffers(t *testing.T) {
	// Given: a buffer whose job id is unknown to the store
	js, err := store.NewSQLiteJobStore("")
	require.NoError(t, err)
	defer func() { _ = js.Close() }()

	logs := joblog.NewAggregator(10)
	logs.Append("orphan-job", joblog.Record{Message: "lost", JobID: "orphan-job"})

	r := NewReaper(js, logs, time.Hour, 30*24*time.Hour, nil)

	// When: sweeping
	_, removed, err := r.SweepOnce(context.Background())
	require.NoError(t, err)

	// Then: the orphaned buffer is freed
	assert.Equal(t, 1, removed)
	assert.Empty(t, logs.JobIDs())
}

func TestReaper_StartStop(t *testing.T) {
	js, err := store.NewSQLiteJobStore("")
	require.NoError(t, err)
	defer func() { _ = js.Close() }()

	r := NewReaper(js, joblog.NewAggregator(10), 10*time.Millisecond, time.Hour, nil)
	r.Start(context.Background())

	time.Sleep(30 * time.Millisecond)

	// Stop is idempotent and waits for the loop to exit.
	r.Stop()
	r.Stop()
}
