// Package indexer runs the four indexing recipes. All of them share one
// skeleton: probe the search index, resolve the candidate id set, then
// for each candidate check the cancellation flag, denormalize, write and
// tally, emitting progress at the recipe's cadence and finalizing the
// job's durable record on exit.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/licindex/licindex/internal/denorm"
	"github.com/licindex/licindex/internal/errors"
	"github.com/licindex/licindex/internal/jobs"
	"github.com/licindex/licindex/internal/observability"
	"github.com/licindex/licindex/internal/source"
	"github.com/licindex/licindex/internal/store"
)

// Progress cadences per recipe: how many items between durable progress
// writes. The bulk recipe reports once per page instead.
const (
	scraperProgressEvery = 10
	syncProgressEvery    = 50
)

// Limits bounds the candidate sets of the recipes.
type Limits struct {
	// ScraperBatch caps the incremental-by-scraper candidate set.
	ScraperBatch int

	// SyncBatch caps the unscoped resync candidate set.
	SyncBatch int

	// BulkPage is the full-reindex page size; one bulk write per page.
	BulkPage int
}

// DefaultLimits mirror the configuration defaults.
func DefaultLimits() Limits {
	return Limits{ScraperBatch: 1000, SyncBatch: 5000, BulkPage: 1000}
}

// Dependencies contains the injected collaborators for Indexer.
type Dependencies struct {
	// Source resolves candidate id sets (required).
	Source source.DataSource

	// Denormalizer flattens one publication into a document (required).
	Denormalizer *denorm.Denormalizer

	// Index receives the documents (required).
	Index store.SearchIndex

	// Registry owns job state and per-job logging (required).
	Registry *jobs.Registry

	// Metrics records job and item counts. Defaults to no-op.
	Metrics *observability.Metrics

	// Limits bound the candidate sets. Zero values take defaults.
	Limits Limits
}

// Indexer executes indexing jobs. One Execute call owns one job: it is
// the only writer of that job's progress, and the finalizer of its
// status unless a pre-start stop got there first.
type Indexer struct {
	src      source.DataSource
	denorm   *denorm.Denormalizer
	index    store.SearchIndex
	registry *jobs.Registry
	metrics  *observability.Metrics
	limits   Limits
}

// New creates an Indexer with injected dependencies.
func New(deps Dependencies) (*Indexer, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("data source is required")
	}
	if deps.Denormalizer == nil {
		return nil, fmt.Errorf("denormalizer is required")
	}
	if deps.Index == nil {
		return nil, fmt.Errorf("search index is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = observability.NewNoopMetrics()
	}

	limits := deps.Limits
	if limits.ScraperBatch <= 0 {
		limits.ScraperBatch = DefaultLimits().ScraperBatch
	}
	if limits.SyncBatch <= 0 {
		limits.SyncBatch = DefaultLimits().SyncBatch
	}
	if limits.BulkPage <= 0 {
		limits.BulkPage = DefaultLimits().BulkPage
	}

	return &Indexer{
		src:      deps.Source,
		denorm:   deps.Denormalizer,
		index:    deps.Index,
		registry: deps.Registry,
		metrics:  metrics,
		limits:   limits,
	}, nil
}

// Unit returns the unit of work for a created job, ready for Submit.
func (ix *Indexer) Unit(jobID string) jobs.UnitOfWork {
	return func(ctx context.Context) {
		ix.Execute(ctx, jobID)
	}
}

// Execute runs the job to its terminal state. The context carries the
// job's cooperative cancellation; durable writes use a background
// context so a cancelled job can still record its final state.
func (ix *Indexer) Execute(ctx context.Context, jobID string) {
	started := time.Now()
	log := ix.registry.Logger(jobID)

	job, err := ix.registry.Get(context.Background(), jobID)
	if err != nil {
		log.Error("job_record_unresolvable", slog.String("error", err.Error()))
		return
	}

	prog, runErr := ix.run(ctx, log, job)

	status := store.StatusCompleted
	errMsg := ""
	switch {
	case runErr == nil:
		prog.Message = "completed"
	case errors.IsCancelled(runErr):
		status = store.StatusStopped
		prog.Message = "process was stopped"
	default:
		status = store.StatusFailed
		errMsg = errors.GetMessage(runErr)
		prog.Message = errMsg
	}

	if perr := ix.registry.UpdateProgress(context.Background(), jobID, prog); perr != nil {
		log.Warn("progress_write_failed", slog.String("error", perr.Error()))
	}

	applied, ferr := ix.registry.Finalize(context.Background(), jobID, status, errMsg)
	if ferr != nil {
		log.Error("finalize_failed", slog.String("error", ferr.Error()))
	}

	log.Info("job_finished",
		slog.String("job_type", string(job.Type)),
		slog.String("status", string(status)),
		slog.Bool("applied", applied),
		slog.Int("indexed", prog.Indexed),
		slog.Int("failed", prog.Failed),
		slog.Duration("duration", time.Since(started)))

	ix.metrics.RecordJob(context.Background(), string(job.Type), string(status), time.Since(started))
	ix.metrics.RecordItems(context.Background(), string(job.Type), int64(prog.Indexed), int64(prog.Failed))
}

// run dispatches to the recipe. Any panic escaping a recipe is caught
// once here and recorded as the job's error.
func (ix *Indexer) run(ctx context.Context, log *slog.Logger, job *store.Job) (prog store.Progress, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.InternalError(fmt.Sprintf("executor panic: %v", r), nil)
		}
	}()

	params, err := jobs.RawParams(job)
	if err != nil {
		return prog, err
	}

	// An unreachable index at job start is fatal; nothing is processed.
	if rerr := ix.index.Ready(ctx); rerr != nil {
		log.Error("index_not_ready", slog.String("error", rerr.Error()))
		return prog, rerr
	}

	switch p := params.(type) {
	case jobs.SingleParams:
		return ix.runSingle(ctx, log, job.ID, p)
	case jobs.ScraperParams:
		return ix.runChanged(ctx, log, job.ID, p.Since, p.ScraperID, ix.limits.ScraperBatch, scraperProgressEvery)
	case jobs.SyncParams:
		return ix.runChanged(ctx, log, job.ID, p.Since, "", ix.limits.SyncBatch, syncProgressEvery)
	case jobs.BulkParams:
		return ix.runBulk(ctx, log, job.ID)
	default:
		return prog, errors.New(errors.ErrCodeUnknownJobType,
			fmt.Sprintf("unknown job type %q", job.Type), nil)
	}
}

// cancelled wraps the context error once the stop flag is observed.
func cancelled(ctx context.Context) error {
	return errors.New(errors.ErrCodeCancelled, "process was stopped", ctx.Err())
}

// writeProgress overwrites the durable snapshot, best-effort.
func (ix *Indexer) writeProgress(log *slog.Logger, jobID string, p store.Progress) {
	if err := ix.registry.UpdateProgress(context.Background(), jobID, p); err != nil {
		log.Warn("progress_write_failed", slog.String("error", err.Error()))
	}
}

// runSingle indexes exactly one publication. A missing publication fails
// the job; the skip-and-continue rule applies only to batch recipes.
func (ix *Indexer) runSingle(ctx context.Context, log *slog.Logger, jobID string, p jobs.SingleParams) (store.Progress, error) {
	prog := store.Progress{Total: 2, Message: "fetching publication"}

	if ctx.Err() != nil {
		return prog, cancelled(ctx)
	}
	ix.writeProgress(log, jobID, prog)

	log.Info("indexing_publication", slog.Int64("publicacion_id", p.PublicacionID))

	doc, err := ix.denorm.Denormalize(ctx, p.PublicacionID)
	if err != nil {
		if ctx.Err() != nil {
			return prog, cancelled(ctx)
		}
		return prog, err
	}

	prog.Current = 1
	prog.Message = "writing document"
	ix.writeProgress(log, jobID, prog)

	if err := ix.index.Upsert(ctx, p.PublicacionID, doc); err != nil {
		if ctx.Err() != nil {
			return prog, cancelled(ctx)
		}
		return prog, err
	}

	prog.Current = 2
	prog.Indexed = 1
	log.Info("publication_indexed", slog.Int64("publicacion_id", p.PublicacionID))
	return prog, nil
}

// runChanged is the shared loop of the incremental recipes: ids changed
// after a timestamp, optionally scoped to one scraper, written one by
// one with per-item failure isolation.
func (ix *Indexer) runChanged(ctx context.Context, log *slog.Logger, jobID, since, scraper string, limit, progressEvery int) (store.Progress, error) {
	var prog store.Progress

	ids, err := ix.src.ListChangedSince(ctx, since, scraper, limit)
	if err != nil {
		if ctx.Err() != nil {
			return prog, cancelled(ctx)
		}
		return prog, err
	}

	prog.Total = len(ids)
	prog.Message = "indexing changed publications"
	ix.writeProgress(log, jobID, prog)

	log.Info("candidates_resolved",
		slog.Int("count", len(ids)),
		slog.String("since", since),
		slog.String("scraper", scraper))

	for i, id := range ids {
		if ctx.Err() != nil {
			return prog, cancelled(ctx)
		}

		ix.indexOne(ctx, log, id, &prog)
		prog.Current = i + 1

		if prog.Current%progressEvery == 0 || prog.Current == prog.Total {
			ix.writeProgress(log, jobID, prog)
		}
	}

	return prog, nil
}

// indexOne denormalizes and writes one candidate. Failures are tallied,
// never escalated: a missing publication is skipped, anything else
// counts as failed.
func (ix *Indexer) indexOne(ctx context.Context, log *slog.Logger, id int64, prog *store.Progress) {
	doc, err := ix.denorm.Denormalize(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			log.Warn("publication_missing", slog.Int64("publicacion_id", id))
			return
		}
		log.Warn("denormalize_failed",
			slog.Int64("publicacion_id", id),
			slog.String("error", err.Error()))
		prog.Failed++
		return
	}

	if err := ix.index.Upsert(ctx, id, doc); err != nil {
		log.Warn("index_write_failed",
			slog.Int64("publicacion_id", id),
			slog.String("error", err.Error()))
		prog.Failed++
		return
	}

	prog.Indexed++
}

// runBulk reindexes the full visible id space in two passes. Pass one
// pages purely to compute the total for progress reporting; pass two
// re-pages, denormalizes each page and submits one bulk write per page,
// tallying per-document outcomes from the batch response.
func (ix *Indexer) runBulk(ctx context.Context, log *slog.Logger, jobID string) (store.Progress, error) {
	var prog store.Progress
	pageSize := ix.limits.BulkPage

	total := 0
	for offset := 0; ; offset += pageSize {
		if ctx.Err() != nil {
			return prog, cancelled(ctx)
		}
		ids, err := ix.src.ListAllIDs(ctx, pageSize, offset)
		if err != nil {
			return prog, err
		}
		total += len(ids)
		if len(ids) < pageSize {
			break
		}
	}

	prog.Total = total
	prog.Message = fmt.Sprintf("reindexing %d publications", total)
	ix.writeProgress(log, jobID, prog)
	log.Info("bulk_reindex_started", slog.Int("total", total), slog.Int("page_size", pageSize))

	page := 0
	for offset := 0; ; offset += pageSize {
		if ctx.Err() != nil {
			return prog, cancelled(ctx)
		}

		ids, err := ix.src.ListAllIDs(ctx, pageSize, offset)
		if err != nil {
			return prog, err
		}
		if len(ids) == 0 {
			break
		}
		page++

		docs := make([]store.Document, 0, len(ids))
		for _, id := range ids {
			if ctx.Err() != nil {
				return prog, cancelled(ctx)
			}
			doc, derr := ix.denorm.Denormalize(ctx, id)
			if derr != nil {
				if errors.IsNotFound(derr) {
					log.Warn("publication_missing", slog.Int64("publicacion_id", id))
					continue
				}
				log.Warn("denormalize_failed",
					slog.Int64("publicacion_id", id),
					slog.String("error", derr.Error()))
				prog.Failed++
				continue
			}
			docs = append(docs, doc)
		}

		res, err := ix.index.BulkUpsert(ctx, docs)
		if err != nil {
			if ctx.Err() != nil {
				return prog, cancelled(ctx)
			}
			return prog, err
		}
		ix.metrics.RecordBulkBatch(context.Background(), len(docs))

		prog.Indexed += res.Indexed
		prog.Failed += res.Failed
		prog.Current += len(ids)
		prog.Message = fmt.Sprintf("page %d written", page)
		ix.writeProgress(log, jobID, prog)

		log.Info("bulk_page_written",
			slog.Int("page", page),
			slog.Int("documents", len(docs)),
			slog.Int("indexed", res.Indexed),
			slog.Int("failed", res.Failed))

		if len(ids) < pageSize {
			break
		}
	}

	return prog, nil
}
