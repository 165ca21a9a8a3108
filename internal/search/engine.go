package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/licindex/licindex/internal/observability"
	"github.com/licindex/licindex/internal/store"
)

// DefaultPageSize is used when the caller sends no page_size.
const DefaultPageSize = 15

// Sorting is fixed: most recently edited first, id as tiebreaker.
var sortOrder = []string{"-editado", "-id"}

// ResultPage is the legacy response envelope: full documents plus the
// pagination frame.
type ResultPage struct {
	Publicaciones []store.Document `json:"publicaciones"`
	Total         uint64           `json:"total"`
	Pagina        int              `json:"pagina"`
	Paginas       int              `json:"paginas"`
}

// EngineDependencies contains the injected collaborators for Engine.
type EngineDependencies struct {
	// Index resolves matches and document bodies (required).
	Index store.SearchIndex

	// Metrics records search durations. Defaults to no-op.
	Metrics *observability.Metrics

	// DefaultPageSize overrides the package default when positive.
	DefaultPageSize int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Engine runs the synchronous query path: compile, execute, hydrate,
// reshape. There is no blocking point beyond the index call itself.
type Engine struct {
	index    store.SearchIndex
	metrics  *observability.Metrics
	pageSize int
	log      *slog.Logger
}

// NewEngine creates an Engine with injected dependencies.
func NewEngine(deps EngineDependencies) (*Engine, error) {
	if deps.Index == nil {
		return nil, fmt.Errorf("search index is required")
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = observability.NewNoopMetrics()
	}

	pageSize := deps.DefaultPageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Engine{index: deps.Index, metrics: metrics, pageSize: pageSize, log: log}, nil
}

// Search compiles the parameters, runs the query and reshapes the hits
// into the legacy page envelope. Hits whose document body is gone are
// dropped from the page, not errors.
func (e *Engine) Search(ctx context.Context, p Params) (*ResultPage, error) {
	started := time.Now()

	page := p.Page
	if page < 1 {
		page = 1
	}
	size := p.PageSize
	if size <= 0 {
		size = e.pageSize
	}
	from := (page - 1) * size

	compiled := Compile(p)
	res, err := e.index.Search(ctx, compiled.BleveQuery(), from, size, sortOrder)
	if err != nil {
		return nil, err
	}

	docs, err := e.index.GetDocuments(ctx, res.IDs)
	if err != nil {
		return nil, err
	}

	out := &ResultPage{
		Publicaciones: make([]store.Document, 0, len(res.IDs)),
		Total:         res.Total,
		Pagina:        page,
	}
	for _, id := range res.IDs {
		if doc, ok := docs[id]; ok {
			out.Publicaciones = append(out.Publicaciones, doc)
		}
	}

	out.Paginas = int((res.Total + uint64(size) - 1) / uint64(size))
	if out.Paginas < 1 {
		out.Paginas = 1
	}

	e.metrics.RecordSearch(ctx, time.Since(started), int64(res.Total))
	e.log.Debug("search_executed",
		slog.Uint64("total", res.Total),
		slog.Int("pagina", page),
		slog.Int("hits", len(out.Publicaciones)),
		slog.Duration("duration", time.Since(started)))

	return out, nil
}
