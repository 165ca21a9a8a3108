package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/licindex/licindex/internal/errors"
)

// SQLiteJobStore implements JobStore on SQLite. WAL mode keeps status
// polls readable while an executor writes progress.
type SQLiteJobStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Verify interface implementation at compile time
var _ JobStore = (*SQLiteJobStore)(nil)

// NewSQLiteJobStore opens (or creates) the job store at path. An empty
// path creates an in-memory store for testing.
func NewSQLiteJobStore(path string) (*SQLiteJobStore, error) {
	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open job store: %w", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode must be set via PRAGMA for modernc.org/sqlite
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteJobStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteJobStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS jobs (
		id           TEXT PRIMARY KEY,
		type         TEXT NOT NULL,
		status       TEXT NOT NULL,
		params       TEXT NOT NULL DEFAULT '{}',
		owner        INTEGER NOT NULL DEFAULT 0,
		current      INTEGER NOT NULL DEFAULT 0,
		total        INTEGER NOT NULL DEFAULT 0,
		indexed      INTEGER NOT NULL DEFAULT 0,
		failed       INTEGER NOT NULL DEFAULT 0,
		message      TEXT NOT NULL DEFAULT '',
		error        TEXT NOT NULL DEFAULT '',
		started_at   INTEGER NOT NULL,
		completed_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	CREATE INDEX IF NOT EXISTS idx_jobs_started ON jobs(started_at);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Create persists a new job record. The record is durable before any work
// is scheduled.
func (s *SQLiteJobStore) Create(ctx context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("job store is closed")
	}

	params := string(job.Params)
	if params == "" {
		params = "{}"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, type, status, params, owner, current, total, indexed, failed, message, error, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.Type), string(job.Status), params, job.Owner,
		job.Progress.Current, job.Progress.Total, job.Progress.Indexed, job.Progress.Failed,
		job.Progress.Message, job.Error, job.StartedAt.UTC().Unix())
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, fmt.Errorf("failed to create job %s: %w", job.ID, err))
	}

	return nil
}

// Get returns the job or a NotFound-coded error.
func (s *SQLiteJobStore) Get(ctx context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("job store is closed")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, status, params, owner, current, total, indexed, failed, message, error, started_at, completed_at
		FROM jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, errors.JobNotFound(id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, fmt.Errorf("failed to read job %s: %w", id, err))
	}

	return job, nil
}

// List returns jobs matching the filter, ordered started_at desc.
func (s *SQLiteJobStore) List(ctx context.Context, filter JobFilter) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("job store is closed")
	}

	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Owner != 0 {
		conds = append(conds, "owner = ?")
		args = append(args, filter.Owner)
	}

	q := `SELECT id, type, status, params, owner, current, total, indexed, failed, message, error, started_at, completed_at FROM jobs`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY started_at DESC, id DESC"
	if filter.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			q += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, fmt.Errorf("failed to list jobs: %w", err))
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreFailed, fmt.Errorf("failed to scan job: %w", err))
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// UpdateStatus moves a running job into a terminal status. The guard on
// the current status makes terminal states final: a stop() racing a
// natural completion leaves whichever transition landed first.
func (s *SQLiteJobStore) UpdateStatus(ctx context.Context, id string, status JobStatus, errMsg string) (bool, error) {
	if !status.IsTerminal() {
		return false, errors.ValidationError(fmt.Sprintf("cannot transition job to non-terminal status %q", status), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, fmt.Errorf("job store is closed")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error = ?, completed_at = ?
		WHERE id = ? AND status = ?`,
		string(status), errMsg, time.Now().UTC().Unix(), id, string(StatusRunning))
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeStoreFailed, fmt.Errorf("failed to update job %s status: %w", id, err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeStoreFailed, fmt.Errorf("failed to read rows affected: %w", err))
	}

	return n > 0, nil
}

// UpdateProgress overwrites the progress snapshot. Only the executor that
// owns the job calls this, so last-write-wins is safe.
func (s *SQLiteJobStore) UpdateProgress(ctx context.Context, id string, p Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("job store is closed")
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET current = ?, total = ?, indexed = ?, failed = ?, message = ?
		WHERE id = ?`,
		p.Current, p.Total, p.Indexed, p.Failed, p.Message, id)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, fmt.Errorf("failed to update job %s progress: %w", id, err))
	}

	return nil
}

// Delete removes one job record.
func (s *SQLiteJobStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("job store is closed")
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, fmt.Errorf("failed to delete job %s: %w", id, err))
	}

	return nil
}

// DeleteOlderThan removes terminal jobs completed before the cutoff.
// Records missing a completion stamp fall back to their start time.
func (s *SQLiteJobStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("job store is closed")
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM jobs
		WHERE status IN (?, ?, ?)
		AND COALESCE(completed_at, started_at) < ?`,
		string(StatusCompleted), string(StatusFailed), string(StatusStopped),
		cutoff.UTC().Unix())
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeStoreFailed, fmt.Errorf("failed to delete old jobs: %w", err))
	}

	return res.RowsAffected()
}

// AllIDs returns every job id currently in the store.
func (s *SQLiteJobStore) AllIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("job store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM jobs`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, fmt.Errorf("failed to list job ids: %w", err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreFailed, fmt.Errorf("failed to scan job id: %w", err))
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Close releases the underlying database.
func (s *SQLiteJobStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*Job, error) {
	var (
		job         Job
		jobType     string
		status      string
		params      string
		startedAt   int64
		completedAt sql.NullInt64
	)

	err := row.Scan(&job.ID, &jobType, &status, &params, &job.Owner,
		&job.Progress.Current, &job.Progress.Total, &job.Progress.Indexed,
		&job.Progress.Failed, &job.Progress.Message, &job.Error,
		&startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	job.Type = JobType(jobType)
	job.Status = JobStatus(status)
	job.Params = []byte(params)
	job.StartedAt = time.Unix(startedAt, 0).UTC()
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		job.CompletedAt = &t
	}

	return &job, nil
}
