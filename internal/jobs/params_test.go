package jobs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licindex/licindex/internal/errors"
	"github.com/licindex/licindex/internal/store"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name     string
		jobType  store.JobType
		raw      string
		wantErr  bool
		wantCode string
	}{
		{
			name:    "single with id",
			jobType: store.JobTypeSingle,
			raw:     `{"publicacion_id": 42}`,
		},
		{
			name:     "single missing id",
			jobType:  store.JobTypeSingle,
			raw:      `{}`,
			wantErr:  true,
			wantCode: errors.ErrCodeInvalidParams,
		},
		{
			name:    "scraper complete",
			jobType: store.JobTypeScraper,
			raw:     `{"scraper_id": "mercado-publico", "since": "2026-01-01 00:00:00"}`,
		},
		{
			name:     "scraper missing since",
			jobType:  store.JobTypeScraper,
			raw:      `{"scraper_id": "mercado-publico"}`,
			wantErr:  true,
			wantCode: errors.ErrCodeInvalidParams,
		},
		{
			name:    "sync with since",
			jobType: store.JobTypeSync,
			raw:     `{"since": "2026-01-01 00:00:00"}`,
		},
		{
			name:     "sync missing since",
			jobType:  store.JobTypeSync,
			raw:      `{}`,
			wantErr:  true,
			wantCode: errors.ErrCodeInvalidParams,
		},
		{
			name:    "bulk takes no params",
			jobType: store.JobTypeBulk,
			raw:     `{}`,
		},
		{
			name:    "bulk with empty raw",
			jobType: store.JobTypeBulk,
			raw:     ``,
		},
		{
			name:     "unknown recipe",
			jobType:  store.JobType("reindex-everything"),
			raw:      `{}`,
			wantErr:  true,
			wantCode: errors.ErrCodeUnknownJobType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseParams(tt.jobType, json.RawMessage(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, errors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.jobType, p.JobType())
		})
	}
}

func TestMarshalParams_RoundTrip(t *testing.T) {
	// Given: typed scraper params
	original := ScraperParams{ScraperID: "comprasnet", Since: "2026-02-01 12:00:00"}

	// When: marshalling and parsing back
	raw, err := MarshalParams(original)
	require.NoError(t, err)

	parsed, err := ParseParams(store.JobTypeScraper, raw)
	require.NoError(t, err)

	// Then: the variant survives unchanged
	assert.Equal(t, original, parsed)
}
