// Package service wires the full construction graph: configuration in,
// a running indexing service out. The CLI commands talk to the service,
// never to the stores directly.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/metric"

	"github.com/licindex/licindex/internal/config"
	"github.com/licindex/licindex/internal/denorm"
	"github.com/licindex/licindex/internal/indexer"
	"github.com/licindex/licindex/internal/joblog"
	"github.com/licindex/licindex/internal/jobs"
	"github.com/licindex/licindex/internal/observability"
	"github.com/licindex/licindex/internal/search"
	"github.com/licindex/licindex/internal/source"
	"github.com/licindex/licindex/internal/store"
)

// Options tune construction beyond the file configuration.
type Options struct {
	// Logger is the service log. Defaults to slog.Default().
	Logger *slog.Logger

	// MeterProvider enables metric export. Defaults to no-op.
	MeterProvider metric.MeterProvider

	// SkipLock disables the instance lock, for tests and one-shot
	// commands that only read.
	SkipLock bool
}

// Service owns every component and their shutdown order.
type Service struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *observability.Metrics

	lock     *InstanceLock
	src      *source.SQLSource
	index    store.SearchIndex
	jobStore store.JobStore
	logs     *joblog.Aggregator
	pool     *jobs.Pool
	registry *jobs.Registry
	reaper   *jobs.Reaper
	indexer  *indexer.Indexer
	engine   *search.Engine

	mu      sync.Mutex
	started bool
	stopped bool
}

// New builds the full graph from configuration. Nothing runs yet;
// Start launches the pool and the reaper.
func New(cfg *config.Config, opts Options) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	metrics := observability.NewNoopMetrics()
	if opts.MeterProvider != nil {
		metrics = observability.NewMetrics(opts.MeterProvider)
	}

	s := &Service{cfg: cfg, log: log, metrics: metrics}
	if !opts.SkipLock {
		s.lock = NewInstanceLock(cfg.LockPath())
	}

	var err error
	defer func() {
		if err != nil {
			s.closeStores()
		}
	}()

	s.src, err = source.NewSQLSource(cfg.Source.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open data source: %w", err)
	}

	idx, err := store.NewBleveIndex(cfg.Index.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}
	s.index = store.NewCachedIndex(idx, cfg.Index.CacheSize)

	s.jobStore, err = store.NewSQLiteJobStore(cfg.Jobs.StorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open job store: %w", err)
	}

	s.logs = joblog.NewAggregator(cfg.Jobs.LogBufferCapacity)
	s.pool = jobs.NewPool(cfg.Jobs.Workers, cfg.Jobs.QueueSize)

	s.registry, err = jobs.NewRegistry(jobs.RegistryDependencies{
		Store:  s.jobStore,
		Logs:   s.logs,
		Pool:   s.pool,
		Logger: log,
	})
	if err != nil {
		return nil, err
	}

	s.reaper = jobs.NewReaper(s.jobStore, s.logs, cfg.ReaperInterval(), cfg.Retention(), log)

	s.indexer, err = indexer.New(indexer.Dependencies{
		Source:       s.src,
		Denormalizer: denorm.New(s.src, log),
		Index:        s.index,
		Registry:     s.registry,
		Metrics:      metrics,
		Limits: indexer.Limits{
			ScraperBatch: cfg.Limits.ScraperBatch,
			SyncBatch:    cfg.Limits.SyncBatch,
			BulkPage:     cfg.Limits.BulkPage,
		},
	})
	if err != nil {
		return nil, err
	}

	s.engine, err = search.NewEngine(search.EngineDependencies{
		Index:           s.index,
		Metrics:         metrics,
		DefaultPageSize: cfg.Search.DefaultPageSize,
		Logger:          log,
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Start acquires the instance lock and launches the worker pool and
// the reaper. A second instance on the same data dir is refused.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.lock != nil {
		acquired, err := s.lock.TryLock()
		if err != nil {
			return err
		}
		if !acquired {
			return fmt.Errorf("another licindex instance already runs on %s", s.cfg.DataDir)
		}
	}

	s.pool.Start(ctx)
	s.reaper.Start(ctx)
	s.started = true

	s.log.Info("service_started",
		slog.String("data_dir", s.cfg.DataDir),
		slog.Int("workers", s.cfg.Jobs.Workers))

	return nil
}

// Stop shuts everything down in dependency order: reaper, pool (drains
// running jobs), stores, lock.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true

	if s.started {
		s.reaper.Stop()
		s.pool.Stop()
	}

	err := s.closeStores()

	if s.lock != nil {
		if uerr := s.lock.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}

	s.log.Info("service_stopped")
	return err
}

func (s *Service) closeStores() error {
	var first error
	if s.jobStore != nil {
		if err := s.jobStore.Close(); err != nil {
			first = err
		}
	}
	if s.index != nil {
		if err := s.index.Close(); err != nil && first == nil {
			first = err
		}
	}
	if s.src != nil {
		if err := s.src.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SubmitJob creates the durable record and schedules the recipe on the
// worker pool, returning the job id.
func (s *Service) SubmitJob(ctx context.Context, params jobs.Params, owner int64) (string, error) {
	id, err := s.registry.Create(ctx, params, owner)
	if err != nil {
		return "", err
	}
	if err := s.registry.Submit(id, s.indexer.Unit(id)); err != nil {
		return "", err
	}
	return id, nil
}

// Registry exposes the job surface: status, stop, logs.
func (s *Service) Registry() *jobs.Registry { return s.registry }

// Indexer exposes the executor, for synchronous one-shot runs.
func (s *Service) Indexer() *indexer.Indexer { return s.indexer }

// Engine exposes the synchronous query path.
func (s *Service) Engine() *search.Engine { return s.engine }

// Reaper exposes the retention sweep, for on-demand sweeps.
func (s *Service) Reaper() *jobs.Reaper { return s.reaper }

// Source exposes the data source, for seeding tools.
func (s *Service) Source() *source.SQLSource { return s.src }
