package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/licindex/licindex/internal/errors"
)

// BleveIndex implements SearchIndex with a Bleve index for matching and a
// SQLite table for the full document bodies. Bleve resolves which ids
// match; SQLite resolves what those documents look like.
type BleveIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	db     *sql.DB
	dir    string
	closed bool
}

// Verify interface implementation at compile time
var _ SearchIndex = (*BleveIndex)(nil)

// NewBleveIndex opens (or creates) the search index under dir. An empty
// dir creates an in-memory index for testing.
func NewBleveIndex(dir string) (*BleveIndex, error) {
	indexMapping, err := buildIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	var (
		idx bleve.Index
		dsn = ":memory:"
	)
	if dir == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		blevePath := filepath.Join(dir, "bleve")
		idx, err = bleve.Open(blevePath)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(blevePath, indexMapping)
		}
		dsn = filepath.Join(dir, "docs.db")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = idx.Close()
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id         INTEGER PRIMARY KEY,
		body       TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = idx.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &BleveIndex{index: idx, db: db, dir: dir}, nil
}

// Upsert writes one document under the given id.
func (b *BleveIndex) Upsert(ctx context.Context, id int64, doc Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSearchFailed, fmt.Errorf("failed to marshal document %d: %w", id, err))
	}

	if err := b.index.Index(strconv.FormatInt(id, 10), map[string]any(doc)); err != nil {
		return errors.Wrap(errors.ErrCodeSearchFailed, fmt.Errorf("failed to index document %d: %w", id, err))
	}

	if err := b.putBody(ctx, id, body); err != nil {
		return err
	}

	return nil
}

// BulkUpsert writes many documents in one Bleve batch and one SQLite
// transaction, reporting the per-document outcome. Documents that fail to
// enter the batch are tallied, not fatal; a batch-level failure is.
func (b *BleveIndex) BulkUpsert(ctx context.Context, docs []Document) (*BulkResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}

	result := &BulkResult{Items: make([]BulkItem, 0, len(docs))}
	if len(docs) == 0 {
		return result, nil
	}

	batch := b.index.NewBatch()
	batched := make([]Document, 0, len(docs))
	for _, doc := range docs {
		id := doc.ID()
		if err := batch.Index(strconv.FormatInt(id, 10), map[string]any(doc)); err != nil {
			result.Items = append(result.Items, BulkItem{ID: id, Err: err})
			result.Failed++
			continue
		}
		batched = append(batched, doc)
	}

	if err := b.index.Batch(batch); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSearchFailed, fmt.Errorf("failed to execute batch: %w", err))
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, fmt.Errorf("failed to prepare statement: %w", err))
	}
	defer stmt.Close()

	now := time.Now().UTC().Unix()
	for _, doc := range batched {
		id := doc.ID()
		body, err := json.Marshal(doc)
		if err == nil {
			_, err = stmt.ExecContext(ctx, id, string(body), now)
		}
		if err != nil {
			result.Items = append(result.Items, BulkItem{ID: id, Err: err})
			result.Failed++
			continue
		}
		result.Items = append(result.Items, BulkItem{ID: id})
		result.Indexed++
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, fmt.Errorf("failed to commit documents: %w", err))
	}

	return result, nil
}

// Search runs the compiled query and returns matching ids plus the total.
func (b *BleveIndex) Search(ctx context.Context, q query.Query, from, size int, sort []string) (*SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}

	req := bleve.NewSearchRequestOptions(q, size, from, false)
	if len(sort) > 0 {
		req.SortBy(sort)
	}

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSearchFailed, fmt.Errorf("search failed: %w", err))
	}

	out := &SearchResult{IDs: make([]int64, 0, len(res.Hits)), Total: res.Total}
	for _, hit := range res.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		out.IDs = append(out.IDs, id)
	}

	return out, nil
}

// GetDocument returns the stored body for one id.
func (b *BleveIndex) GetDocument(ctx context.Context, id int64) (Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}

	var body string
	err := b.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE id = ?`, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, fmt.Errorf("failed to read document %d: %w", id, err))
	}

	var doc Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, fmt.Errorf("failed to decode document %d: %w", id, err))
	}

	return doc, nil
}

// GetDocuments returns stored bodies for the given ids. Missing ids are
// simply absent from the map.
func (b *BleveIndex) GetDocuments(ctx context.Context, ids []int64) (map[int64]Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}

	out := make(map[int64]Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT id, body FROM documents WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, fmt.Errorf("failed to read documents: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			body string
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreFailed, fmt.Errorf("failed to scan document: %w", err))
		}

		var doc Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			continue
		}
		out[id] = doc
	}

	return out, rows.Err()
}

// Ready reports whether both halves of the index can serve traffic. Jobs
// probe this once at start; an unreachable index fails the job before any
// item is processed.
func (b *BleveIndex) Ready(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return errors.IndexUnavailable("index is closed", nil)
	}

	if _, err := b.index.DocCount(); err != nil {
		return errors.IndexUnavailable("search index unreachable", err)
	}
	if err := b.db.PingContext(ctx); err != nil {
		return errors.IndexUnavailable("document store unreachable", err)
	}

	return nil
}

// DocCount returns the number of indexed documents.
func (b *BleveIndex) DocCount() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, fmt.Errorf("index is closed")
	}

	return b.index.DocCount()
}

// Close releases the Bleve index and the document store.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	ierr := b.index.Close()
	derr := b.db.Close()
	if ierr != nil {
		return ierr
	}
	return derr
}

func (b *BleveIndex) putBody(ctx context.Context, id int64, body []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO documents (id, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		id, string(body), time.Now().UTC().Unix())
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, fmt.Errorf("failed to store document %d: %w", id, err))
	}
	return nil
}
