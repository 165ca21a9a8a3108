// Package jobs is the orchestration core: durable job records, the
// in-memory cancellation-handle table, the bounded worker pool, and the
// retention reaper. A job's durable record always exists before any work
// is scheduled, and status transitions are monotone: running is the only
// non-terminal state.
package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/licindex/licindex/internal/errors"
	"github.com/licindex/licindex/internal/store"
)

// Params is the typed parameter variant for one recipe. Each recipe
// carries only the fields it needs; validation happens at job creation,
// never inside the executor.
type Params interface {
	// JobType names the recipe this variant belongs to.
	JobType() store.JobType

	// Validate checks required fields.
	Validate() error
}

// SingleParams parameterizes the single-item recipe.
type SingleParams struct {
	PublicacionID int64 `json:"publicacion_id"`
}

// JobType implements Params.
func (p SingleParams) JobType() store.JobType { return store.JobTypeSingle }

// Validate implements Params.
func (p SingleParams) Validate() error {
	if p.PublicacionID <= 0 {
		return errors.ValidationError("publicacion_id is required and must be positive", nil)
	}
	return nil
}

// ScraperParams parameterizes the incremental-by-scraper recipe.
type ScraperParams struct {
	ScraperID string `json:"scraper_id"`
	Since     string `json:"since"`
}

// JobType implements Params.
func (p ScraperParams) JobType() store.JobType { return store.JobTypeScraper }

// Validate implements Params.
func (p ScraperParams) Validate() error {
	if p.ScraperID == "" {
		return errors.ValidationError("scraper_id is required", nil)
	}
	if p.Since == "" {
		return errors.ValidationError("since is required", nil)
	}
	return nil
}

// SyncParams parameterizes the unscoped resync-since recipe.
type SyncParams struct {
	Since string `json:"since"`
}

// JobType implements Params.
func (p SyncParams) JobType() store.JobType { return store.JobTypeSync }

// Validate implements Params.
func (p SyncParams) Validate() error {
	if p.Since == "" {
		return errors.ValidationError("since is required", nil)
	}
	return nil
}

// BulkParams parameterizes the full-reindex recipe. It has no required
// fields; the page size comes from configuration.
type BulkParams struct{}

// JobType implements Params.
func (p BulkParams) JobType() store.JobType { return store.JobTypeBulk }

// Validate implements Params.
func (p BulkParams) Validate() error { return nil }

// ParseParams decodes the raw parameter bag into the typed variant for
// the job type and validates it.
func ParseParams(jobType store.JobType, raw json.RawMessage) (Params, error) {
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}

	var p Params
	switch jobType {
	case store.JobTypeSingle:
		var v SingleParams
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, errors.ValidationError("invalid params for "+string(jobType), err)
		}
		p = v
	case store.JobTypeScraper:
		var v ScraperParams
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, errors.ValidationError("invalid params for "+string(jobType), err)
		}
		p = v
	case store.JobTypeSync:
		var v SyncParams
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, errors.ValidationError("invalid params for "+string(jobType), err)
		}
		p = v
	case store.JobTypeBulk:
		var v BulkParams
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, errors.ValidationError("invalid params for "+string(jobType), err)
		}
		p = v
	default:
		return nil, errors.New(errors.ErrCodeUnknownJobType,
			fmt.Sprintf("unknown job type %q", jobType), nil)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// MarshalParams encodes a typed variant back into the durable record's
// parameter bag.
func MarshalParams(p Params) (json.RawMessage, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, errors.ValidationError("failed to encode job params", err)
	}
	return raw, nil
}
