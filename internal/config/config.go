// Package config loads and validates the licindex configuration.
//
// Configuration is applied in order of increasing precedence:
//  1. Hardcoded defaults (NewConfig)
//  2. YAML config file (licindex.yaml)
//  3. Environment variables (LICINDEX_*)
//
// A .env file in the working directory is loaded into the environment
// first, so deployments can keep overrides next to the binary.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete licindex configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	DataDir string        `yaml:"data_dir" json:"data_dir"`
	Source  SourceConfig  `yaml:"source" json:"source"`
	Index   IndexConfig   `yaml:"index" json:"index"`
	Jobs    JobsConfig    `yaml:"jobs" json:"jobs"`
	Limits  LimitsConfig  `yaml:"limits" json:"limits"`
	Reaper  ReaperConfig  `yaml:"reaper" json:"reaper"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SourceConfig configures the relational data source.
type SourceConfig struct {
	// DSN is the SQLite DSN of the publications database.
	// Empty means <data_dir>/source.db.
	DSN string `yaml:"dsn" json:"dsn"`
}

// IndexConfig configures the search index.
type IndexConfig struct {
	// Dir holds the bleve index and the document store.
	// Empty means <data_dir>/index.
	Dir string `yaml:"dir" json:"dir"`

	// CacheSize is the number of hydrated documents kept in the LRU cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// JobsConfig configures the job registry and worker pool.
type JobsConfig struct {
	// StorePath is the SQLite file holding durable job records.
	// Empty means <data_dir>/jobs.db.
	StorePath string `yaml:"store_path" json:"store_path"`

	// Workers is the size of the fixed worker pool.
	Workers int `yaml:"workers" json:"workers"`

	// QueueSize is the backlog of submitted-but-unstarted jobs.
	QueueSize int `yaml:"queue_size" json:"queue_size"`

	// LogBufferCapacity is the per-job ring buffer capacity.
	LogBufferCapacity int `yaml:"log_buffer_capacity" json:"log_buffer_capacity"`
}

// LimitsConfig bounds the candidate sets of the indexing recipes.
type LimitsConfig struct {
	// ScraperBatch caps ids fetched by the incremental-by-scraper recipe.
	ScraperBatch int `yaml:"scraper_batch" json:"scraper_batch"`

	// SyncBatch caps ids fetched by the unscoped resync recipe.
	SyncBatch int `yaml:"sync_batch" json:"sync_batch"`

	// BulkPage is the page size of the full-reindex recipe; one bulk
	// write is issued per page.
	BulkPage int `yaml:"bulk_page" json:"bulk_page"`
}

// ReaperConfig configures the retention sweep.
type ReaperConfig struct {
	// Interval between sweeps, as a Go duration string (e.g. "1h").
	Interval string `yaml:"interval" json:"interval"`

	// RetentionDays keeps terminal jobs queryable for this many days.
	RetentionDays int `yaml:"retention_days" json:"retention_days"`
}

// SearchConfig configures the synchronous query path.
type SearchConfig struct {
	// DefaultPageSize is used when the caller sends no page_size.
	DefaultPageSize int `yaml:"default_page_size" json:"default_page_size"`
}

// LoggingConfig configures the service log.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	// File is the log file path. Empty means <data_dir>/logs/licindex.log.
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
	Stderr    bool   `yaml:"stderr" json:"stderr"`
}

// NewConfig returns the configuration defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		DataDir: "data",
		Index: IndexConfig{
			CacheSize: 1000,
		},
		Jobs: JobsConfig{
			Workers:           10,
			QueueSize:         100,
			LogBufferCapacity: 1000,
		},
		Limits: LimitsConfig{
			ScraperBatch: 1000,
			SyncBatch:    5000,
			BulkPage:     1000,
		},
		Reaper: ReaperConfig{
			Interval:      "1h",
			RetentionDays: 30,
		},
		Search: SearchConfig{
			DefaultPageSize: 15,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
			Stderr:    true,
		},
	}
}

// Load loads configuration from the given YAML file path. An empty path
// falls back to $LICINDEX_CONFIG, then ./licindex.yaml; a missing file is
// fine and leaves the defaults in place.
func Load(path string) (*Config, error) {
	// Deployments keep overrides in a .env next to the binary
	_ = godotenv.Load()

	cfg := NewConfig()

	if path == "" {
		path = os.Getenv("LICINDEX_CONFIG")
	}
	if path == "" {
		path = "licindex.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies LICINDEX_* environment variables, the highest
// precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LICINDEX_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("LICINDEX_SOURCE_DSN"); v != "" {
		c.Source.DSN = v
	}
	if v := os.Getenv("LICINDEX_INDEX_DIR"); v != "" {
		c.Index.Dir = v
	}
	if v := os.Getenv("LICINDEX_JOBS_STORE"); v != "" {
		c.Jobs.StorePath = v
	}
	if v := os.Getenv("LICINDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Jobs.Workers = n
		}
	}
	if v := os.Getenv("LICINDEX_LOG_BUFFER_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Jobs.LogBufferCapacity = n
		}
	}
	if v := os.Getenv("LICINDEX_REAPER_INTERVAL"); v != "" {
		c.Reaper.Interval = v
	}
	if v := os.Getenv("LICINDEX_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Reaper.RetentionDays = n
		}
	}
	if v := os.Getenv("LICINDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// normalize derives the paths that default relative to the data dir.
func (c *Config) normalize() {
	if c.Source.DSN == "" {
		c.Source.DSN = filepath.Join(c.DataDir, "source.db")
	}
	if c.Index.Dir == "" {
		c.Index.Dir = filepath.Join(c.DataDir, "index")
	}
	if c.Jobs.StorePath == "" {
		c.Jobs.StorePath = filepath.Join(c.DataDir, "jobs.db")
	}
	if c.Logging.File == "" {
		c.Logging.File = filepath.Join(c.DataDir, "logs", "licindex.log")
	}
}

// ReaperInterval parses the sweep interval. Validate guarantees it parses.
func (c *Config) ReaperInterval() time.Duration {
	d, err := time.ParseDuration(c.Reaper.Interval)
	if err != nil {
		return time.Hour
	}
	return d
}

// Retention returns the job retention window as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Reaper.RetentionDays) * 24 * time.Hour
}

// LockPath returns the instance lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, "licindex.lock")
}

// Validate checks the final configuration for consistency.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("jobs.workers must be positive, got %d", c.Jobs.Workers)
	}
	if c.Jobs.QueueSize < 0 {
		return fmt.Errorf("jobs.queue_size must be non-negative, got %d", c.Jobs.QueueSize)
	}
	if c.Jobs.LogBufferCapacity <= 0 {
		return fmt.Errorf("jobs.log_buffer_capacity must be positive, got %d", c.Jobs.LogBufferCapacity)
	}
	if c.Index.CacheSize <= 0 {
		return fmt.Errorf("index.cache_size must be positive, got %d", c.Index.CacheSize)
	}
	if c.Limits.ScraperBatch <= 0 || c.Limits.SyncBatch <= 0 || c.Limits.BulkPage <= 0 {
		return fmt.Errorf("limits must be positive, got %+v", c.Limits)
	}
	if c.Reaper.RetentionDays < 0 {
		return fmt.Errorf("reaper.retention_days must be non-negative, got %d", c.Reaper.RetentionDays)
	}
	if _, err := time.ParseDuration(c.Reaper.Interval); err != nil {
		return fmt.Errorf("reaper.interval is not a valid duration: %q", c.Reaper.Interval)
	}
	if c.Search.DefaultPageSize <= 0 {
		return fmt.Errorf("search.default_page_size must be positive, got %d", c.Search.DefaultPageSize)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
