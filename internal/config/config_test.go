package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	// When: creating a new config
	cfg := NewConfig()

	// Then: defaults are sensible
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 10, cfg.Jobs.Workers)
	assert.Equal(t, 1000, cfg.Jobs.LogBufferCapacity)
	assert.Equal(t, 1000, cfg.Limits.ScraperBatch)
	assert.Equal(t, 5000, cfg.Limits.SyncBatch)
	assert.Equal(t, 1000, cfg.Limits.BulkPage)
	assert.Equal(t, 30, cfg.Reaper.RetentionDays)
	assert.Equal(t, 15, cfg.Search.DefaultPageSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	// Given: a config path that does not exist
	path := filepath.Join(t.TempDir(), "nope.yaml")

	// When: loading
	cfg, err := Load(path)

	// Then: defaults are returned without error
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Jobs.Workers)
}

func TestLoadYAMLFile(t *testing.T) {
	// Given: a config file overriding a few fields
	dir := t.TempDir()
	path := filepath.Join(dir, "licindex.yaml")
	content := `
data_dir: /var/lib/licindex
jobs:
  workers: 4
reaper:
  retention_days: 7
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	// When: loading
	cfg, err := Load(path)

	// Then: file values override defaults, untouched fields keep defaults
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/licindex", cfg.DataDir)
	assert.Equal(t, 4, cfg.Jobs.Workers)
	assert.Equal(t, 7, cfg.Reaper.RetentionDays)
	assert.Equal(t, 5000, cfg.Limits.SyncBatch)
}

func TestEnvOverridesFile(t *testing.T) {
	// Given: a config file and a conflicting environment variable
	dir := t.TempDir()
	path := filepath.Join(dir, "licindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jobs:\n  workers: 4\n"), 0o644))
	t.Setenv("LICINDEX_WORKERS", "2")

	// When: loading
	cfg, err := Load(path)

	// Then: the environment wins
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Jobs.Workers)
}

func TestEnvOverrideIgnoresGarbage(t *testing.T) {
	// Given: a non-numeric worker override
	t.Setenv("LICINDEX_WORKERS", "lots")

	// When: loading with no file
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	// Then: the default survives
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Jobs.Workers)
}

func TestNormalizeDerivesPaths(t *testing.T) {
	// Given: a config with only the data dir set
	cfg := NewConfig()
	cfg.DataDir = "/srv/licindex"

	// When: normalizing
	cfg.normalize()

	// Then: all component paths hang off the data dir
	assert.Equal(t, filepath.Join("/srv/licindex", "source.db"), cfg.Source.DSN)
	assert.Equal(t, filepath.Join("/srv/licindex", "index"), cfg.Index.Dir)
	assert.Equal(t, filepath.Join("/srv/licindex", "jobs.db"), cfg.Jobs.StorePath)
	assert.Equal(t, filepath.Join("/srv/licindex", "logs", "licindex.log"), cfg.Logging.File)
}

func TestNormalizeKeepsExplicitPaths(t *testing.T) {
	// Given: an explicit source DSN
	cfg := NewConfig()
	cfg.Source.DSN = "/mnt/other/pubs.db"

	// When: normalizing
	cfg.normalize()

	// Then: the explicit value is untouched
	assert.Equal(t, "/mnt/other/pubs.db", cfg.Source.DSN)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Jobs.Workers = 0 }},
		{"zero buffer capacity", func(c *Config) { c.Jobs.LogBufferCapacity = 0 }},
		{"negative retention", func(c *Config) { c.Reaper.RetentionDays = -1 }},
		{"bad interval", func(c *Config) { c.Reaper.Interval = "soon" }},
		{"zero bulk page", func(c *Config) { c.Limits.BulkPage = 0 }},
		{"zero page size", func(c *Config) { c.Search.DefaultPageSize = 0 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestReaperIntervalParses(t *testing.T) {
	cfg := NewConfig()
	cfg.Reaper.Interval = "30m"
	assert.Equal(t, 30*time.Minute, cfg.ReaperInterval())
}

func TestRetentionWindow(t *testing.T) {
	cfg := NewConfig()
	cfg.Reaper.RetentionDays = 30
	assert.Equal(t, 30*24*time.Hour, cfg.Retention())
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	// Given: a config with non-default values
	cfg := NewConfig()
	cfg.Jobs.Workers = 3
	path := filepath.Join(t.TempDir(), "out.yaml")

	// When: writing and reloading
	require.NoError(t, cfg.WriteYAML(path))
	loaded, err := Load(path)

	// Then: the value survives
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Jobs.Workers)
}
