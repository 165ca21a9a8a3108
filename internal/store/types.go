// Package store provides the search index (Bleve), document persistence,
// and durable job records (SQLite). This is the persistence layer for all
// indexed data.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/blevesearch/bleve/v2/search/query"
)

// Document is a denormalized publication ready for indexing. Absent data
// is represented by a missing key, never a null value.
type Document map[string]any

// ID returns the document id. Documents read back from storage carry JSON
// numbers, so both int64 and float64 are accepted.
func (d Document) ID() int64 {
	switch v := d["id"].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	}
	return 0
}

// JobType identifies one of the four indexing recipes.
type JobType string

const (
	JobTypeSingle  JobType = "index-licitacion"
	JobTypeScraper JobType = "index-scraper-publications"
	JobTypeSync    JobType = "sync-since"
	JobTypeBulk    JobType = "index-bulk"
)

// ValidJobType reports whether t names a known recipe.
func ValidJobType(t JobType) bool {
	switch t {
	case JobTypeSingle, JobTypeScraper, JobTypeSync, JobTypeBulk:
		return true
	}
	return false
}

// JobStatus is the lifecycle state of a job. Running is the only
// non-terminal state; transitions out of a terminal state never happen.
type JobStatus string

const (
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusStopped   JobStatus = "stopped"
)

// IsTerminal reports whether the status is final.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusStopped
}

// Progress is the best-effort, last-write-wins progress snapshot of a job.
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Indexed int    `json:"indexed"`
	Failed  int    `json:"failed"`
	Message string `json:"message,omitempty"`
}

// Job is the durable record of one background indexing run. The record
// exists before any work is scheduled, so a job id is always resolvable.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	Params      json.RawMessage `json:"params,omitempty"`
	Owner       int64           `json:"owner"`
	Progress    Progress        `json:"progress"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// JobFilter narrows List results. Zero values mean "any".
type JobFilter struct {
	Status JobStatus
	Type   JobType
	Owner  int64
	Limit  int
	Offset int
}

// JobStore persists job records.
type JobStore interface {
	// Create persists a new running job record.
	Create(ctx context.Context, job *Job) error

	// Get returns the job or a NotFound-coded error.
	Get(ctx context.Context, id string) (*Job, error)

	// List returns jobs matching the filter, newest first.
	List(ctx context.Context, filter JobFilter) ([]*Job, error)

	// UpdateStatus moves a running job into the given terminal status and
	// stamps completed_at. It reports whether the transition applied; a job
	// already terminal is left untouched.
	UpdateStatus(ctx context.Context, id string, status JobStatus, errMsg string) (bool, error)

	// UpdateProgress overwrites the progress snapshot.
	UpdateProgress(ctx context.Context, id string, p Progress) error

	// Delete removes one job record.
	Delete(ctx context.Context, id string) error

	// DeleteOlderThan removes terminal jobs whose completion (or start,
	// when completion was never stamped) predates the cutoff. Returns the
	// number of records removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// AllIDs returns every job id currently in the store.
	AllIDs(ctx context.Context) ([]string, error)

	Close() error
}

// SearchResult is one page of matching document ids.
type SearchResult struct {
	IDs   []int64
	Total uint64
}

// BulkItem is the outcome of one document inside a bulk write.
type BulkItem struct {
	ID  int64
	Err error
}

// BulkResult is the per-document outcome of one bulk write.
type BulkResult struct {
	Items   []BulkItem
	Indexed int
	Failed  int
}

// SearchIndex is the search engine collaborator: matching plus document
// body retrieval.
type SearchIndex interface {
	// Upsert writes one document under the given id.
	Upsert(ctx context.Context, id int64, doc Document) error

	// BulkUpsert writes many documents in one batch and reports the
	// per-document outcome. A batch-level failure returns an error and no
	// result.
	BulkUpsert(ctx context.Context, docs []Document) (*BulkResult, error)

	// Search runs the compiled query and returns matching ids plus the
	// total hit count. Sort entries follow bleve syntax ("-editado").
	Search(ctx context.Context, q query.Query, from, size int, sort []string) (*SearchResult, error)

	// GetDocument returns the stored body for one id.
	GetDocument(ctx context.Context, id int64) (Document, error)

	// GetDocuments returns stored bodies for the given ids; missing ids
	// are absent from the map, not an error.
	GetDocuments(ctx context.Context, ids []int64) (map[int64]Document, error)

	// Ready reports whether the index can accept reads and writes.
	Ready(ctx context.Context) error

	Close() error
}
